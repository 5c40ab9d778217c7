package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseProvider calls the hosted GoTrue REST endpoints.
type SupabaseProvider struct {
	base    string
	anonKey string
	http    *http.Client
}

func NewSupabaseProvider(projectURL, anonKey string, hc *http.Client) *SupabaseProvider {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &SupabaseProvider{
		base:    strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		http:    hc,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type goTrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// goTrueSession covers both the token response and the bare user object
// signup returns when email confirmation is on.
type goTrueSession struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	ExpiresAt   int64      `json:"expires_at"`
	User        goTrueUser `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (g goTrueSession) session() *Session {
	if g.AccessToken == "" {
		return nil
	}
	s := &Session{UserID: g.User.ID, Email: g.User.Email, AccessToken: g.AccessToken}
	switch {
	case g.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(g.ExpiresAt, 0)
	case g.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(g.ExpiresIn) * time.Second)
	}
	return s
}

// ProviderError is an auth failure the provider explained.
type ProviderError struct {
	Status  int
	Message string
	kind    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider: status %d: %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.kind }

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out goTrueSession
	if err := p.post(ctx, "/token?grant_type=password", "", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	s := out.session()
	if s == nil {
		return nil, fmt.Errorf("sign in: provider returned no access token")
	}
	return s, nil
}

func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	var out goTrueSession
	if err := p.post(ctx, "/signup", "", credentials{Email: email, Password: password}, &out); err != nil {
		return SignUpResult{}, err
	}
	if s := out.session(); s != nil {
		return SignUpResult{Session: s}, nil
	}
	return SignUpResult{ConfirmationSent: true}, nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, s *Session) error {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	return p.post(ctx, "/logout", s.AccessToken, nil, nil)
}

func (p *SupabaseProvider) post(ctx context.Context, path, bearer string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth provider: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func providerError(status int, body []byte) error {
	var e struct {
		ErrorCode        string `json:"error_code"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)

	msg := e.ErrorDescription
	if msg == "" {
		msg = e.Msg
	}
	if msg == "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	pe := &ProviderError{Status: status, Message: msg}
	lower := strings.ToLower(msg)
	switch {
	case e.ErrorCode == "user_already_exists" || strings.Contains(lower, "already registered"):
		pe.kind = ErrAccountExists
	case e.ErrorCode == "weak_password" || strings.Contains(lower, "password should be"):
		pe.kind = ErrWeakPassword
	case e.ErrorCode == "email_not_confirmed" || strings.Contains(lower, "not confirmed"):
		pe.kind = ErrEmailNotConfirmed
	case e.ErrorCode == "invalid_credentials" || strings.Contains(lower, "invalid login"):
		pe.kind = ErrInvalidCredentials
	}
	return pe
}
