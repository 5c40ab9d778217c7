package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type localAccount struct {
	id        string
	email     string
	hash      []byte
	confirmed bool
}

// LocalProvider keeps accounts in memory and mints tokens with the same
// verifier the gate uses. Intended for development and tests.
type LocalProvider struct {
	verifier *Verifier
	ttl      time.Duration
	cost     int
	confirm  bool

	mu       sync.RWMutex
	accounts map[string]*localAccount
}

type LocalOption func(*LocalProvider)

// WithEmailConfirmation makes new accounts unusable until Confirm is called.
func WithEmailConfirmation() LocalOption {
	return func(p *LocalProvider) { p.confirm = true }
}

func WithTokenTTL(ttl time.Duration) LocalOption {
	return func(p *LocalProvider) { p.ttl = ttl }
}

func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) { p.cost = cost }
}

func NewLocalProvider(v *Verifier, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		verifier: v,
		ttl:      time.Hour,
		cost:     bcrypt.DefaultCost,
		accounts: make(map[string]*localAccount),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	p.mu.RLock()
	acct, ok := p.accounts[normalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !acct.confirmed {
		return nil, ErrEmailNotConfirmed
	}
	return p.verifier.Issue(acct.id, acct.email, p.ttl)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	email = normalizeEmail(email)
	if len(password) < MinPasswordLength {
		return SignUpResult{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return SignUpResult{}, ErrAccountExists
	}
	acct := &localAccount{
		id:        uuid.NewString(),
		email:     email,
		hash:      hash,
		confirmed: !p.confirm,
	}
	p.accounts[email] = acct
	p.mu.Unlock()

	if p.confirm {
		return SignUpResult{ConfirmationSent: true}, nil
	}
	s, err := p.verifier.Issue(acct.id, acct.email, p.ttl)
	if err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{Session: s}, nil
}

// Confirm marks an account as having followed its confirmation link.
func (p *LocalProvider) Confirm(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[normalizeEmail(email)]
	if !ok {
		return ErrInvalidCredentials
	}
	acct.confirmed = true
	return nil
}

// SignOut is a no-op: local tokens simply expire.
func (p *LocalProvider) SignOut(ctx context.Context, s *Session) error {
	return nil
}
