// Package identity defines the engine's view of the external authentication
// capability. The engine orchestrates calls to this gateway and reacts to its
// outcomes; it never hashes passwords, issues tokens, or transports sessions
// itself.
package identity

import (
	"context"
	"errors"
)

// Sentinel errors for gateway outcomes that need distinct user-facing
// handling. The flow service translates these into coded domain errors.
var (
	ErrDuplicateIdentity  = errors.New("identity already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCodeInvalid        = errors.New("verification code invalid")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

// Identity is the authenticated subject as reported by the provider.
type Identity struct {
	ID    string
	Email string
	Name  string
}

// SignUpResult reports whether the provider requires email verification
// before the new identity is usable.
type SignUpResult struct {
	RequiresVerification bool
}

// Gateway is the external identity capability the engine consumes.
//
// CurrentUser returns (nil, nil) when no identity is authenticated; this is
// the ambient authenticated-identity state, not an error.
type Gateway interface {
	SignUp(ctx context.Context, email, password, displayName string) (SignUpResult, error)
	SignIn(ctx context.Context, email, password string) error
	SendVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	CurrentUser(ctx context.Context) (*Identity, error)
}
