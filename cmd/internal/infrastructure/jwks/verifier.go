package jwks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notekeeper/cmd/internal/domain/identity"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/gommon/log"
)

// Firebase signs ID tokens with the securetoken service account keys.
const firebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// Firebase rejects uids longer than this, so a longer "sub" cannot be one of theirs.
const maxSubjectLength = 128

var errNotStarted = errors.New("JWKS not initialized")

type Config struct {
	// Issuer must match the "iss" claim exactly. Required.
	Issuer string

	// Audience, when set, must be one of the "aud" claim values.
	Audience string

	// Methods lists the accepted "alg" values, RS256 when empty.
	Methods []string

	// TokenUse, when set, must equal the "token_use" claim.
	TokenUse string

	// Leeway tolerates clock skew when checking exp/nbf/iat.
	Leeway time.Duration
}

type claims struct {
	Email    string `json:"email"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// Verifier checks tokens locally against a key set. Only the key download
// touches the network, and keyfunc refreshes it in the background.
type Verifier struct {
	keyfunc  jwt.Keyfunc
	parser   *jwt.Parser
	tokenUse string
	cancel   context.CancelFunc
}

// FirebaseConfig returns the key set URL and claim rules for ID tokens
// issued to the given Firebase project.
func FirebaseConfig(projectID string) (string, *Config) {
	return firebaseJWKSURL, &Config{
		Issuer:   "https://securetoken.google.com/" + projectID,
		Audience: projectID,
	}
}

// CognitoConfig returns the key set URL and claim rules for ID tokens issued
// by a Cognito user pool. Access tokens are left to the remote verifier.
// The audience is only checked when clientID is set.
func CognitoConfig(region, poolID, clientID string) (string, *Config) {
	issuer := fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", region, poolID)
	return issuer + "/.well-known/jwks.json", &Config{
		Issuer:   issuer,
		Audience: clientID,
		TokenUse: "id",
	}
}

// New downloads the key set at jwksURL and keeps it fresh until Close.
func New(ctx context.Context, jwksURL string, cfg *Config) (*Verifier, error) {
	ctx, cancel := context.WithCancel(ctx)

	kf, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS from resource at %s: %w", jwksURL, err)
	}

	log.Infof("JWKS initialized. Keys loaded from %s", jwksURL)
	v := NewWithKeyfunc(kf.Keyfunc, cfg)
	v.cancel = cancel
	return v, nil
}

// NewWithKeyfunc builds a Verifier around an already resolved key lookup.
func NewWithKeyfunc(kf jwt.Keyfunc, cfg *Config) *Verifier {
	methods := cfg.Methods
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Alg()}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{
		keyfunc:  kf,
		parser:   jwt.NewParser(opts...),
		tokenUse: cfg.TokenUse,
	}
}

// Verify parses and validates the token signature and claims.
// Every rejection wraps identity.ErrInvalidCredential.
func (v *Verifier) Verify(_ context.Context, token string) (*identity.Subject, error) {
	if v.keyfunc == nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrVerifierUnavailable, errNotStarted)
	}

	var c claims
	parsed, err := v.parser.ParseWithClaims(token, &c, v.keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidCredential, err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("%w: token is not valid", identity.ErrInvalidCredential)
	}

	if v.tokenUse != "" && c.TokenUse != v.tokenUse {
		return nil, fmt.Errorf("%w: token_use %q, want %q", identity.ErrInvalidCredential, c.TokenUse, v.tokenUse)
	}

	if c.Subject == "" || len(c.Subject) > maxSubjectLength {
		return nil, fmt.Errorf("%w: bad subject", identity.ErrInvalidCredential)
	}

	return &identity.Subject{
		ID:        c.Subject,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt.Unix(),
	}, nil
}

// Close stops the background key refresh.
func (v *Verifier) Close() {
	if v.cancel != nil {
		v.cancel()
	}
}
