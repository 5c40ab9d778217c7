package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type EventKind int

const (
	SignedIn EventKind = iota + 1
	SignedOut
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	}
	return "unknown"
}

type Event struct {
	Kind    EventKind
	Session *Session
}

// Gate resolves the current session and tells subscribers when it changes.
type Gate struct {
	provider Provider
	verifier *Verifier
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

type GateOption func(*Gate)

func WithGateLogger(l zerolog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

func NewGate(p Provider, v *Verifier, opts ...GateOption) *Gate {
	g := &Gate{
		provider: p,
		verifier: v,
		logger:   zerolog.Nop(),
		now:      time.Now,
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Session returns the session behind token, or nil when the token is absent,
// invalid or expired.
func (g *Gate) Session(token string) *Session {
	if token == "" {
		return nil
	}
	s, err := g.verifier.Verify(token)
	if err != nil {
		g.logger.Debug().Err(err).Msg("rejected session token")
		return nil
	}
	if s.Expired(g.now()) {
		return nil
	}
	return s
}

func (g *Gate) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	g.logger.Info().Str("user_id", s.UserID).Msg("signed in")
	g.emit(Event{Kind: SignedIn, Session: s})
	return s, nil
}

func (g *Gate) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	res, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return SignUpResult{}, err
	}
	if res.Session != nil {
		g.logger.Info().Str("user_id", res.Session.UserID).Msg("signed up")
		g.emit(Event{Kind: SignedIn, Session: res.Session})
	}
	return res, nil
}

// SignOut always emits SignedOut; a provider failure is returned for logging
// but the local session is gone either way.
func (g *Gate) SignOut(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	err := g.provider.SignOut(ctx, s)
	g.logger.Info().Str("user_id", s.UserID).Msg("signed out")
	g.emit(Event{Kind: SignedOut, Session: s})
	return err
}

// Subscribe registers fn for session changes. The returned func removes it
// and is safe to call more than once.
func (g *Gate) Subscribe(fn func(Event)) func() {
	g.mu.Lock()
	id := g.next
	g.next++
	g.subs[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

func (g *Gate) emit(e Event) {
	g.mu.Lock()
	fns := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
