package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Namespace prefixes every persisted draft key.
const Namespace = "health-app-storage"

const DefaultLanguage = "en"

// ErrNotFound is returned by a Persister when no draft is stored under a key.
var ErrNotFound = errors.New("intake: draft not found")

// Persister is the durable side of the store. Load runs once when the store
// opens; Save runs after every mutation.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Key returns the persistence key for a draft owner.
func Key(owner string) string {
	if owner == "" {
		return Namespace
	}
	return Namespace + ":" + owner
}

// Store holds one doctor's in-progress intake record.
type Store struct {
	mu        sync.Mutex
	key       string
	persister Persister
	logger    zerolog.Logger
	defLang   string
	draft     Draft
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDefaultLanguage sets the language a fresh draft starts with.
func WithDefaultLanguage(lang string) Option {
	return func(s *Store) {
		if lang != "" {
			s.defLang = lang
		}
	}
}

// Open loads the draft stored under key. A missing draft starts empty; a
// draft that no longer decodes is discarded.
func Open(ctx context.Context, p Persister, key string, opts ...Option) (*Store, error) {
	s := &Store{
		key:       key,
		persister: p,
		logger:    zerolog.Nop(),
		defLang:   DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.draft = Draft{Language: s.defLang}

	if p == nil {
		return s, nil
	}

	data, err := p.Load(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load draft %s: %w", key, err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable draft")
		return s, nil
	}
	if d.Language == "" {
		d.Language = s.defLang
	}
	s.draft = d
	return s, nil
}

// Record returns a copy of the current record.
func (s *Store) Record() PatientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Patient
}

func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Store) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Language
}

// SetPatientField merges the set keys of p into the top-level record. The
// merge is kept even when saving fails; the save error is returned.
func (s *Store) SetPatientField(ctx context.Context, p PatientPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.apply(&s.draft.Patient)
	return s.persist(ctx)
}

// SetVitals merges the set keys of p into the nested vitals only.
func (s *Store) SetVitals(ctx context.Context, p VitalsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.apply(&s.draft.Patient.Vitals)
	return s.persist(ctx)
}

func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	if lang == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Language = lang
	return s.persist(ctx)
}

// Reset restores the empty record. The selected language survives.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Patient = PatientRecord{}
	return s.persist(ctx)
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	data, err := json.Marshal(s.draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("draft save failed")
		return fmt.Errorf("save draft %s: %w", s.key, err)
	}
	return nil
}
