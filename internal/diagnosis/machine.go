package diagnosis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/PulseNet/internal/intake"
)

type State int

const (
	Idle State = iota
	Submitting
	Success
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	}
	return "unknown"
}

// Analyzer sends a normalized request to the diagnosis backend.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a one-shot message for the user, shown once and then dropped.
type Notice struct {
	Level   NoticeLevel
	Message string
}

var (
	ErrSubmissionInFlight = errors.New("diagnosis: a submission is already in flight")
	ErrResultShown        = errors.New("diagnosis: start a new patient before submitting again")
)

const (
	msgSuccess = "Diagnosis generated successfully"
	msgFailed  = "Unable to process diagnosis"
)

// Machine drives one dashboard between the intake form, the loading view
// and the result view. At most one request is in flight.
type Machine struct {
	analyzer Analyzer
	logger   zerolog.Logger
	hooks    []func(from, to State)

	mu      sync.Mutex
	state   State
	result  *Result
	notice  *Notice
	since   time.Time
	pending []transition

	// hookMu serializes hook delivery so pending drains in order.
	hookMu sync.Mutex
}

type transition struct {
	from, to State
}

type MachineOption func(*Machine)

// WithTransitionHook registers fn to observe every state change. Hooks run
// outside the machine lock, one at a time and in transition order. A hook
// may read the machine but must not call Submit or NewPatient.
func WithTransitionHook(fn func(from, to State)) MachineOption {
	return func(m *Machine) { m.hooks = append(m.hooks, fn) }
}

func WithMachineLogger(l zerolog.Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

func NewMachine(a Analyzer, opts ...MachineOption) *Machine {
	m := &Machine{
		analyzer: a,
		logger:   zerolog.Nop(),
		state:    Idle,
		since:    time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Since reports when the machine entered its current state.
func (m *Machine) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.since
}

// Result is the displayed diagnosis, nil outside Success.
func (m *Machine) Result() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result
}

// TakeNotice returns the pending notice and clears it.
func (m *Machine) TakeNotice() (Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notice == nil {
		return Notice{}, false
	}
	n := *m.notice
	m.notice = nil
	return n, true
}

// Submit validates rec and, when it is well formed, moves to Submitting and
// calls the analyzer on its own goroutine. Validation errors come back
// synchronously and leave the machine Idle. The returned channel closes once
// the machine has settled to Success or Idle.
func (m *Machine) Submit(ctx context.Context, rec intake.PatientRecord, id Identity, lang string) (<-chan struct{}, error) {
	m.mu.Lock()
	switch m.state {
	case Submitting:
		m.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case Success:
		m.mu.Unlock()
		return nil, ErrResultShown
	}

	req, err := Normalize(rec, id, lang)
	if err != nil {
		m.notice = &Notice{Level: NoticeError, Message: userMessage(err)}
		m.mu.Unlock()
		m.logger.Info().Err(err).Str("doctor_id", id.DoctorID).Msg("diagnosis request rejected")
		return nil, err
	}

	m.state = Submitting
	m.result = nil
	m.since = time.Now()
	m.record(Idle, Submitting)
	m.mu.Unlock()
	m.fire()

	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		res, err := m.analyzer.Analyze(ctx, req)
		m.settle(res, err, time.Since(start))
	}()
	return done, nil
}

func (m *Machine) settle(res *Result, err error, took time.Duration) {
	if err == nil && res == nil {
		err = errors.New("diagnosis: empty response")
	}

	m.mu.Lock()
	to := Success
	if err != nil {
		to = Idle
		m.notice = &Notice{Level: NoticeError, Message: userMessage(err)}
	} else {
		m.result = res
		m.notice = &Notice{Level: NoticeSuccess, Message: msgSuccess}
	}
	m.state = to
	m.since = time.Now()
	m.record(Submitting, to)
	m.mu.Unlock()

	evt := m.logger.Info()
	if err != nil {
		evt = m.logger.Warn().Err(err)
	}
	evt.Str("state", to.String()).Dur("latency", took).Msg("diagnosis settled")

	m.fire()
}

// NewPatient clears a displayed result and returns to the intake form.
func (m *Machine) NewPatient() error {
	m.mu.Lock()
	switch m.state {
	case Submitting:
		m.mu.Unlock()
		return ErrSubmissionInFlight
	case Idle:
		m.mu.Unlock()
		return nil
	}
	m.state = Idle
	m.result = nil
	m.since = time.Now()
	m.record(Success, Idle)
	m.mu.Unlock()
	m.fire()
	return nil
}

// record queues a transition for the hooks. Callers hold m.mu.
func (m *Machine) record(from, to State) {
	if len(m.hooks) > 0 {
		m.pending = append(m.pending, transition{from: from, to: to})
	}
}

// fire delivers queued transitions. Whichever goroutine holds hookMu drains
// everything queued so far, so hooks never see transitions out of order.
func (m *Machine) fire() {
	if len(m.hooks) == 0 {
		return
	}
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	for {
		m.mu.Lock()
		batch := m.pending
		m.pending = nil
		m.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, tr := range batch {
			for _, h := range m.hooks {
				h(tr.from, tr.to)
			}
		}
	}
}

// userMessage picks the text shown for err: the error's own user message
// when it carries one, else the generic failure line.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return msgFailed
}
