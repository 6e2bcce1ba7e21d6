package cognitoclient

import (
	"context"
	"errors"
	"fmt"

	"notekeeper/cmd/internal/domain/identity"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/smithy-go"
)

// IdentityAPI is the slice of the Cognito client the verifier needs.
type IdentityAPI interface {
	GetUser(ctx context.Context, params *cognito.GetUserInput, optFns ...func(*cognito.Options)) (*cognito.GetUserOutput, error)
}

// RemoteVerifier asks Cognito about every access token instead of checking
// it locally. Slower, but signed-out and deleted users are rejected at once.
type RemoteVerifier struct {
	client IdentityAPI
}

func NewRemoteVerifier(ctx context.Context, region string) (*RemoteVerifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewRemoteVerifierWithClient(cognito.NewFromConfig(cfg)), nil
}

func NewRemoteVerifierWithClient(client IdentityAPI) *RemoteVerifier {
	return &RemoteVerifier{client: client}
}

func (r *RemoteVerifier) Verify(ctx context.Context, token string) (*identity.Subject, error) {
	out, err := r.client.GetUser(ctx, &cognito.GetUserInput{
		AccessToken: aws.String(token),
	})
	if err != nil {
		if isRejection(err) {
			return nil, fmt.Errorf("%w: %v", identity.ErrInvalidCredential, err)
		}
		return nil, fmt.Errorf("%w: %v", identity.ErrVerifierUnavailable, err)
	}

	subject := &identity.Subject{}
	for _, attr := range out.UserAttributes {
		switch aws.ToString(attr.Name) {
		case "sub":
			subject.ID = aws.ToString(attr.Value)
		case "email":
			subject.Email = aws.ToString(attr.Value)
		}
	}

	// Pools created before the "sub" attribute was exposed only give us the username
	if subject.ID == "" {
		subject.ID = aws.ToString(out.Username)
	}

	if subject.ID == "" {
		return nil, fmt.Errorf("%w: user has no subject", identity.ErrInvalidCredential)
	}
	return subject, nil
}

// isRejection tells "Cognito says no" apart from "could not ask Cognito".
func isRejection(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "NotAuthorizedException",
		"UserNotFoundException",
		"UserNotConfirmedException",
		"PasswordResetRequiredException",
		"InvalidParameterException":
		return true
	}
	return false
}
