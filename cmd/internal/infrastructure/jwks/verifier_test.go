package jwks

import (
	"context"
	"strings"
	"testing"
	"time"

	"notekeeper/cmd/internal/domain/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func testVerifier() *Verifier {
	_, cfg := FirebaseConfig("notes-app")
	cfg.Methods = []string{jwt.SigningMethodHS256.Alg()}

	return NewWithKeyfunc(func(*jwt.Token) (any, error) {
		return secret, nil
	}, cfg)
}

func sign(t *testing.T, c jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "https://securetoken.google.com/notes-app",
		"aud":   "notes-app",
		"sub":   "u1",
		"email": "u1@example.com",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
}

func TestVerify_Valid(t *testing.T) {
	c := validClaims()
	subject, err := testVerifier().Verify(context.Background(), sign(t, c))
	require.NoError(t, err)

	assert.Equal(t, &identity.Subject{
		ID:        "u1",
		Email:     "u1@example.com",
		ExpiresAt: c["exp"].(int64),
	}, subject)
}

func TestVerify_Rejections(t *testing.T) {
	cases := map[string]func(c jwt.MapClaims){
		"expired":         func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() },
		"no expiry":       func(c jwt.MapClaims) { delete(c, "exp") },
		"wrong issuer":    func(c jwt.MapClaims) { c["iss"] = "https://securetoken.google.com/other" },
		"wrong audience":  func(c jwt.MapClaims) { c["aud"] = "other" },
		"issued later":    func(c jwt.MapClaims) { c["iat"] = time.Now().Add(time.Hour).Unix() },
		"empty subject":   func(c jwt.MapClaims) { c["sub"] = "" },
		"missing subject": func(c jwt.MapClaims) { delete(c, "sub") },
		"long subject":    func(c jwt.MapClaims) { c["sub"] = strings.Repeat("x", maxSubjectLength+1) },
	}

	v := testVerifier()
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validClaims()
			mutate(c)

			_, err := v.Verify(context.Background(), sign(t, c))
			assert.ErrorIs(t, err, identity.ErrInvalidCredential)
		})
	}
}

func TestVerify_BadSignatureAndGarbage(t *testing.T) {
	v := testVerifier()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for _, token := range []string{forged, "garbage", "a.b.c", ""} {
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, identity.ErrInvalidCredential, "token %q", token)
	}
}

func TestVerify_RejectsUnexpectedAlgorithm(t *testing.T) {
	_, cfg := FirebaseConfig("notes-app")
	v := NewWithKeyfunc(func(*jwt.Token) (any, error) { return secret, nil }, cfg)

	_, err := v.Verify(context.Background(), sign(t, validClaims()))
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestCognitoConfig(t *testing.T) {
	url, cfg := CognitoConfig("us-east-2", "us-east-2_abc", "")
	assert.Equal(t, "https://cognito-idp.us-east-2.amazonaws.com/us-east-2_abc/.well-known/jwks.json", url)
	assert.Equal(t, "https://cognito-idp.us-east-2.amazonaws.com/us-east-2_abc", cfg.Issuer)
	assert.Empty(t, cfg.Audience)
	assert.Equal(t, "id", cfg.TokenUse)
}

func TestCognitoVerifier_OnlyIDTokens(t *testing.T) {
	_, cfg := CognitoConfig("us-east-2", "us-east-2_abc", "")
	cfg.Methods = []string{jwt.SigningMethodHS256.Alg()}
	v := NewWithKeyfunc(func(*jwt.Token) (any, error) { return secret, nil }, cfg)

	idToken := validClaims()
	idToken["iss"] = cfg.Issuer
	idToken["aud"] = "any-app-client"
	idToken["token_use"] = "id"

	subject, err := v.Verify(context.Background(), sign(t, idToken))
	require.NoError(t, err)
	assert.Equal(t, "u1", subject.ID)

	accessToken := validClaims()
	accessToken["iss"] = cfg.Issuer
	delete(accessToken, "aud")
	accessToken["client_id"] = "any-app-client"
	accessToken["token_use"] = "access"

	_, err = v.Verify(context.Background(), sign(t, accessToken))
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)

	delete(idToken, "token_use")
	_, err = v.Verify(context.Background(), sign(t, idToken))
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestCognitoVerifier_ChecksClientWhenConfigured(t *testing.T) {
	_, cfg := CognitoConfig("us-east-2", "us-east-2_abc", "app-client")
	cfg.Methods = []string{jwt.SigningMethodHS256.Alg()}
	v := NewWithKeyfunc(func(*jwt.Token) (any, error) { return secret, nil }, cfg)

	c := validClaims()
	c["iss"] = cfg.Issuer
	c["token_use"] = "id"
	c["aud"] = "other-client"

	_, err := v.Verify(context.Background(), sign(t, c))
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)

	c["aud"] = "app-client"
	_, err = v.Verify(context.Background(), sign(t, c))
	assert.NoError(t, err)
}

func TestVerify_Uninitialized(t *testing.T) {
	_, err := (&Verifier{}).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, identity.ErrVerifierUnavailable)
}
