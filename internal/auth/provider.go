package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrAccountExists      = errors.New("auth: an account with this email already exists")
	ErrWeakPassword       = errors.New("auth: password must be at least 6 characters")
	ErrEmailNotConfirmed  = errors.New("auth: email not confirmed")
)

// MinPasswordLength matches the hosted provider's default policy.
const MinPasswordLength = 6

// SignUpResult carries a session when the account is usable right away, or
// ConfirmationSent when the user must first follow an email link.
type SignUpResult struct {
	Session          *Session
	ConfirmationSent bool
}

// Provider is the external identity service.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (SignUpResult, error)
	SignOut(ctx context.Context, s *Session) error
}
