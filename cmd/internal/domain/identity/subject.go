package identity

import "errors"

var (
	// ErrInvalidCredential means the identity provider rejected the token
	// (expired, malformed, bad signature, revoked...).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrVerifierUnavailable means the token could not be checked at all.
	ErrVerifierUnavailable = errors.New("identity verifier unavailable")
)

// Subject is what a verifier knows about the caller once the token checks out.
// ID is stable per user and is the only value used for authorization.
type Subject struct {
	ID        string
	Email     string
	ExpiresAt int64
}
