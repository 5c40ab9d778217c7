package web

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Skufu/PulseNet/internal/chat"
	"github.com/Skufu/PulseNet/internal/diagnosis"
	"github.com/Skufu/PulseNet/internal/intake"
	"github.com/Skufu/PulseNet/internal/render"
)

// Dashboard is one signed-in doctor's console: the intake draft, the
// diagnosis view state and the chat widget.
type Dashboard struct {
	Store   *intake.Store
	Machine *diagnosis.Machine
	Chat    *chat.Conversation

	mu           sync.Mutex
	flash        *render.Notice
	chatOpen     bool
	chatLanguage string
}

func (d *Dashboard) Flash(level, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flash = &render.Notice{Level: level, Message: msg}
}

// TakeNotice drains the pending notice, preferring the machine's own.
func (d *Dashboard) TakeNotice() *render.Notice {
	if n, ok := d.Machine.TakeNotice(); ok {
		return &render.Notice{Level: string(n.Level), Message: n.Message}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.flash
	d.flash = nil
	return n
}

func (d *Dashboard) chatState() (open bool, lang string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chatOpen, d.chatLanguage
}

func (d *Dashboard) setChat(open bool, lang string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chatOpen = open
	if lang != "" {
		d.chatLanguage = lang
	}
}

// Registry holds the live dashboards, one per doctor.
type Registry struct {
	drafts   intake.Persister
	analyzer diagnosis.Analyzer
	replier  chat.Replier
	defLang  string
	logger   zerolog.Logger

	mu    sync.Mutex
	items map[string]*Dashboard
}

func NewRegistry(drafts intake.Persister, analyzer diagnosis.Analyzer, replier chat.Replier, defLang string, logger zerolog.Logger) *Registry {
	if defLang == "" {
		defLang = intake.DefaultLanguage
	}
	return &Registry{
		drafts:   drafts,
		analyzer: analyzer,
		replier:  replier,
		defLang:  defLang,
		logger:   logger,
		items:    make(map[string]*Dashboard),
	}
}

// Get returns the doctor's dashboard, opening the saved draft on first use.
func (r *Registry) Get(ctx context.Context, doctorID string) (*Dashboard, error) {
	r.mu.Lock()
	d, ok := r.items[doctorID]
	r.mu.Unlock()
	if ok {
		return d, nil
	}

	logger := r.logger.With().Str("doctor_id", doctorID).Logger()
	store, err := intake.Open(ctx, r.drafts, intake.Key(doctorID),
		intake.WithLogger(logger),
		intake.WithDefaultLanguage(r.defLang),
	)
	if err != nil {
		return nil, fmt.Errorf("open draft: %w", err)
	}
	fresh := &Dashboard{
		Store: store,
		Machine: diagnosis.NewMachine(r.analyzer,
			diagnosis.WithMachineLogger(logger),
			diagnosis.WithTransitionHook(func(from, to diagnosis.State) {
				logger.Debug().Stringer("from", from).Stringer("to", to).Msg("dashboard transition")
			}),
		),
		Chat:         chat.NewConversation(r.replier, chat.WithLogger(logger)),
		chatLanguage: store.Language(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.items[doctorID]; ok {
		return existing, nil
	}
	r.items[doctorID] = fresh
	return fresh, nil
}

// Drop forgets a doctor's dashboard. The saved draft stays in the store.
// A dashboard with a submission in flight is kept, so signing back in finds
// the same machine instead of starting a second request; Drop reports
// whether the entry was removed.
func (r *Registry) Drop(doctorID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[doctorID]
	if !ok {
		return false
	}
	if d.Machine.State() == diagnosis.Submitting {
		return false
	}
	delete(r.items, doctorID)
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
