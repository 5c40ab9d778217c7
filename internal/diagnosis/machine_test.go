package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/PulseNet/internal/intake"
)

type fakeAnalyzer struct {
	release chan struct{}
	result  *Result
	err     error

	mu    sync.Mutex
	calls []Request
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type messageErr struct{ msg string }

func (e messageErr) Error() string       { return "api: " + e.msg }
func (e messageErr) UserMessage() string { return e.msg }

type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) hook(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, fmt.Sprintf("%s->%s", from, to))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "submission never settled")
	}
}

func TestSubmitSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &Result{Diagnosis: "Influenza", Confidence: 82}}
	rec := &recorder{}
	m := NewMachine(analyzer, WithTransitionHook(rec.hook))

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, Success, m.State())
	assert.Equal(t, []string{"idle->submitting", "submitting->success"}, rec.all())
	require.NotNil(t, m.Result())
	assert.Equal(t, "Influenza", m.Result().Diagnosis)

	n, ok := m.TakeNotice()
	require.True(t, ok)
	assert.Equal(t, NoticeSuccess, n.Level)
	_, ok = m.TakeNotice()
	assert.False(t, ok, "notice must be shown once")
}

func TestSubmitFailureReturnsToIdle(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("connection reset")}
	rec := &recorder{}
	m := NewMachine(analyzer, WithTransitionHook(rec.hook))

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Result())
	assert.Equal(t, []string{"idle->submitting", "submitting->idle"}, rec.all())

	n, ok := m.TakeNotice()
	require.True(t, ok)
	assert.Equal(t, NoticeError, n.Level)
	assert.Equal(t, "Unable to process diagnosis", n.Message)
}

func TestSubmitFailureSurfacesServerMessage(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("analyze: %w", messageErr{msg: "field required"})}
	m := NewMachine(analyzer)

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)

	n, ok := m.TakeNotice()
	require.True(t, ok)
	assert.Equal(t, "field required", n.Message)
}

func TestEmptyResponseCountsAsFailure(t *testing.T) {
	m := NewMachine(&fakeAnalyzer{})

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)
	assert.Equal(t, Idle, m.State())
}

func TestBlankBloodPressureNeverSubmits(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &Result{Diagnosis: "x"}}
	rec := &recorder{}
	m := NewMachine(analyzer, WithTransitionHook(rec.hook))

	r := ashaRecord()
	r.Vitals.BloodPressure = ""
	done, err := m.Submit(context.Background(), r, doctor, "en")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindMalformedVitals, verr.Kind)
	assert.Nil(t, done)
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, rec.all())
	assert.Zero(t, analyzer.callCount())

	n, ok := m.TakeNotice()
	require.True(t, ok)
	assert.Equal(t, "Please enter Blood Pressure in '120/80' format", n.Message)
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	analyzer := &fakeAnalyzer{release: make(chan struct{}), result: &Result{Diagnosis: "x"}}
	m := NewMachine(analyzer)

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	assert.Equal(t, Submitting, m.State())

	_, err = m.Submit(context.Background(), ashaRecord(), doctor, "en")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, m.NewPatient(), ErrSubmissionInFlight)

	close(analyzer.release)
	waitDone(t, done)
	assert.Equal(t, 1, analyzer.callCount())
	assert.Equal(t, Success, m.State())
}

func TestNewPatientClearsResult(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &Result{Diagnosis: "x"}}
	rec := &recorder{}
	m := NewMachine(analyzer, WithTransitionHook(rec.hook))

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)

	_, err = m.Submit(context.Background(), ashaRecord(), doctor, "en")
	assert.ErrorIs(t, err, ErrResultShown)

	require.NoError(t, m.NewPatient())
	assert.Equal(t, Idle, m.State())
	assert.Nil(t, m.Result())
	assert.Equal(t, "success->idle", rec.all()[len(rec.all())-1])

	require.NoError(t, m.NewPatient(), "new patient from idle is a no-op")
}

func TestSubmitSendsNormalizedRequest(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &Result{Diagnosis: "x"}}
	m := NewMachine(analyzer)

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "bn")
	require.NoError(t, err)
	waitDone(t, done)

	require.Equal(t, 1, analyzer.callCount())
	got := analyzer.calls[0]
	assert.Equal(t, "bn", got.Language)
	assert.Equal(t, BloodPressure{118, 76}, got.Vitals.BP)
	assert.Equal(t, "doc@clinic.test", got.DoctorEmail)
}

func TestMachineNeverTouchesRecord(t *testing.T) {
	m := NewMachine(&fakeAnalyzer{err: errors.New("boom")})
	r := ashaRecord()
	before := r

	done, err := m.Submit(context.Background(), r, doctor, "en")
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, before, r)
	assert.Equal(t, intake.Field("118/76"), r.Vitals.BloodPressure)
}

func TestHooksSeeTransitionsInOrder(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &Result{Diagnosis: "Influenza"}}
	rec := &recorder{}
	reached := make(chan struct{})
	slowHook := func(from, to State) {
		if to == Success {
			close(reached)
			time.Sleep(50 * time.Millisecond)
		}
		rec.hook(from, to)
	}
	m := NewMachine(analyzer, WithTransitionHook(slowHook))

	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)

	<-reached
	require.NoError(t, m.NewPatient())
	waitDone(t, done)

	assert.Equal(t, []string{"idle->submitting", "submitting->success", "success->idle"}, rec.all())
}

func TestSinceTracksLastTransition(t *testing.T) {
	analyzer := &fakeAnalyzer{release: make(chan struct{}), result: &Result{Diagnosis: "Influenza"}}
	m := NewMachine(analyzer)
	created := m.Since()

	time.Sleep(5 * time.Millisecond)
	before := time.Now()
	done, err := m.Submit(context.Background(), ashaRecord(), doctor, "en")
	require.NoError(t, err)

	assert.Equal(t, Submitting, m.State())
	assert.True(t, m.Since().After(created))
	assert.False(t, m.Since().Before(before))

	close(analyzer.release)
	waitDone(t, done)
}
