package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
	"github.com/noah-isme/secure-print-api/internal/printcore/surface"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
)

var desktopReport = capability.Report{PointerFine: true, MaxTouchPoints: 0, Platform: "Win32"}

type stubSource struct {
	desc Descriptor
	err  error
}

func (s *stubSource) Descriptor(context.Context, string) (Descriptor, error) {
	return s.desc, s.err
}

type stubSink struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (s *stubSink) Record(_ context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fixture struct {
	controller *Controller
	sink       *stubSink
	source     *stubSource

	mu          sync.Mutex
	transitions []State
	outcomes    []string
	stale       int
}

func newFixture(t *testing.T, mutate func(*Config, *fixture)) *fixture {
	t.Helper()
	f := &fixture{
		sink:   &stubSink{},
		source: &stubSource{desc: Descriptor{Filename: "report.pdf", URL: "/files/report.pdf", MimeType: "application/pdf"}},
	}
	cfg := Config{
		ProbeTimeout:      time.Second,
		CompletionTimeout: 5 * time.Second,
		WatermarkText:     "CONFIDENTIAL",
		OnTransition: func(_, to State) {
			f.mu.Lock()
			f.transitions = append(f.transitions, to)
			f.mu.Unlock()
		},
		OnOutcome: func(_ State, code string) {
			f.mu.Lock()
			f.outcomes = append(f.outcomes, code)
			f.mu.Unlock()
		},
		OnStale: func() {
			f.mu.Lock()
			f.stale++
			f.mu.Unlock()
		},
	}
	factory := &surface.MemoryFactory{Report: desktopReport}
	var strategy surface.Strategy = surface.ManualStrategy{}
	if mutate != nil {
		mutate(&cfg, f)
	}
	b := bus.New(64)
	f.controller = NewController(cfg, f.source, f.sink, factory, strategy, b, nil)
	t.Cleanup(f.controller.Close)
	return f
}

func openRequest() Request {
	return Request{
		FileID:    "file-1",
		UserID:    "user-1",
		OwnerName: "Jane Roe",
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
	}
}

func deliver(t *testing.T, c *Controller, kind bus.Kind, generation uint64) {
	t.Helper()
	raw, err := json.Marshal(bus.Message{Kind: kind, Generation: generation})
	require.NoError(t, err)
	require.NoError(t, c.Deliver(raw))
}

func waitForState(t *testing.T, c *Controller, want State) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		s, err := c.Current()
		if err != nil {
			return false
		}
		snap = s
		return s.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestOpenHappyPathToCompletion(t *testing.T) {
	f := newFixture(t, nil)

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCompletion, snap.State)
	assert.True(t, snap.Available)

	deliver(t, f.controller, bus.KindPrintComplete, snap.Generation)
	final := waitForState(t, f.controller, StateComplete)
	assert.NotNil(t, final.FinishedAt)
	assert.Empty(t, final.ErrorCode)

	require.Eventually(t, func() bool { return f.sink.count() == 1 }, time.Second, 5*time.Millisecond)
	entry := f.sink.entries[0]
	assert.Equal(t, "file-1", entry.FileID)
	assert.Equal(t, "report.pdf", entry.Filename)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []State{StateLoading, StateCapabilityCheck, StateRendering, StateAwaitingCompletion, StateComplete}, f.transitions)
}

func TestOpenDescriptorFetchFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.source.err = errors.New("upstream down")

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, appErrors.ErrDescriptorFetch.Code, snap.ErrorCode)
	assert.Zero(t, f.sink.count())
}

func TestOpenCapabilityUnavailable(t *testing.T) {
	f := newFixture(t, func(cfg *Config, f *fixture) {})
	// Rebuild with a report that resolves to unavailable.
	b := bus.New(64)
	f.controller.Close()
	f.controller = NewController(Config{ProbeTimeout: time.Second, CompletionTimeout: time.Second},
		f.source, f.sink, &surface.MemoryFactory{}, surface.ManualStrategy{}, b, nil)
	defer f.controller.Close()

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, appErrors.ErrCapabilityUnavailable.Code, snap.ErrorCode)
	assert.False(t, snap.Available)
}

func TestCompletionTimeout(t *testing.T) {
	f := newFixture(t, func(cfg *Config, _ *fixture) {
		cfg.CompletionTimeout = 30 * time.Millisecond
	})

	_, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)

	final := waitForState(t, f.controller, StateFailed)
	assert.Equal(t, appErrors.ErrCompletionTimeout.Code, final.ErrorCode)
	assert.Zero(t, f.sink.count())
}

func TestAuditWriteFailureKeepsComplete(t *testing.T) {
	f := newFixture(t, nil)
	f.sink.err = errors.New("disk full")

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)
	deliver(t, f.controller, bus.KindPrintComplete, snap.Generation)

	final := waitForState(t, f.controller, StateComplete)
	assert.Empty(t, final.ErrorCode)

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, code := range f.outcomes {
			if code == appErrors.ErrLogWrite.Code {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestOpenForcesTeardownOfPreviousSession(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCompletion, first.State)

	second, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCompletion, second.State)
	assert.Greater(t, second.Generation, first.Generation)

	// A completion signal for the old generation is stale, not applied.
	deliver(t, f.controller, bus.KindPrintComplete, first.Generation)
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.stale > 0
	}, time.Second, 5*time.Millisecond)

	snap, err := f.controller.Current()
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCompletion, snap.State)
	assert.Equal(t, second.Generation, snap.Generation)
	assert.Zero(t, f.sink.count())
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	f := newFixture(t, nil)

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)
	deliver(t, f.controller, bus.KindPrintComplete, snap.Generation)
	waitForState(t, f.controller, StateComplete)

	deliver(t, f.controller, bus.KindPrintError, snap.Generation)
	time.Sleep(30 * time.Millisecond)
	cur, err := f.controller.Current()
	require.NoError(t, err)
	assert.Equal(t, StateComplete, cur.State)
	assert.Equal(t, 1, f.sink.count())
}

func TestCancelActiveSession(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)

	snap, err := f.controller.Cancel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, appErrors.ErrSessionCancelled.Code, snap.ErrorCode)

	// Cancelling again reports the terminal snapshot unchanged.
	again, err := f.controller.Cancel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.State, again.State)
}

func TestCurrentWithoutSession(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.controller.Current()
	assert.ErrorIs(t, err, appErrors.ErrNoSession)

	_, err = f.controller.Cancel(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrNoSession)
}

func TestPDFStrategyCompletesWithOutput(t *testing.T) {
	f := newFixture(t, nil)
	b := bus.New(64)
	f.controller.Close()
	f.controller = NewController(Config{ProbeTimeout: time.Second, CompletionTimeout: 5 * time.Second},
		f.source, f.sink, &surface.MemoryFactory{Report: desktopReport}, surface.PDFStrategy{}, b, nil)
	defer f.controller.Close()

	_, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)

	final := waitForState(t, f.controller, StateComplete)
	assert.Positive(t, final.OutputBytes)

	out, err := f.controller.Output()
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestDeterrenceEventsAccumulate(t *testing.T) {
	f := newFixture(t, nil)

	snap, err := f.controller.Open(context.Background(), openRequest())
	require.NoError(t, err)

	f.controller.NotifyDeterrence(deterrence.KindWindowBlur)
	assert.True(t, f.controller.InterceptKey(deterrence.KeyChord{Key: "p", Ctrl: true}))
	assert.False(t, f.controller.InterceptKey(deterrence.KeyChord{Key: "x"}))

	require.Eventually(t, func() bool {
		cur, err := f.controller.Current()
		return err == nil && len(cur.Deterrence) == 2
	}, time.Second, 5*time.Millisecond)

	cur, err := f.controller.Current()
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingCompletion, cur.State)
	assert.Equal(t, snap.Generation, cur.Generation)
}

func TestDeliverRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, nil)
	err := f.controller.Deliver([]byte(`{"kind":"print-finished","generation":1}`))
	assert.Error(t, err)
}

// gateSource blocks the first descriptor fetch until released, letting a test
// interleave a second Open while the first is suspended mid-pipeline.
type gateSource struct {
	desc    Descriptor
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gateSource) Descriptor(context.Context, string) (Descriptor, error) {
	first := false
	s.once.Do(func() {
		first = true
		close(s.entered)
	})
	if first {
		<-s.release
	}
	return s.desc, nil
}

func TestSupersededOpenStaysTerminal(t *testing.T) {
	src := &gateSource{
		desc:    Descriptor{Filename: "report.pdf", URL: "/files/report.pdf", MimeType: "application/pdf"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sink := &stubSink{}

	var mu sync.Mutex
	var transitions [][2]State
	cfg := Config{
		ProbeTimeout:      time.Second,
		CompletionTimeout: 5 * time.Second,
		OnTransition: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, [2]State{from, to})
			mu.Unlock()
		},
	}
	b := bus.New(64)
	c := NewController(cfg, src, sink, &surface.MemoryFactory{Report: desktopReport}, surface.ManualStrategy{}, b, nil)
	defer c.Close()

	type result struct {
		snap Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := c.Open(context.Background(), openRequest())
		done <- result{snap: snap, err: err}
	}()
	<-src.entered

	// The second Open force-fails the suspended first session and wins.
	second, err := c.Open(context.Background(), openRequest())
	require.NoError(t, err)
	require.Equal(t, StateAwaitingCompletion, second.State)

	close(src.release)
	first := <-done
	assert.ErrorIs(t, first.err, appErrors.ErrSessionCancelled)
	assert.Equal(t, StateFailed, first.snap.State)
	assert.Equal(t, appErrors.ErrSessionCancelled.Code, first.snap.ErrorCode)

	cur, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, second.Generation, cur.Generation)
	assert.Equal(t, StateAwaitingCompletion, cur.State)

	deliver(t, c, bus.KindPrintComplete, second.Generation)
	waitForState(t, c, StateComplete)

	mu.Lock()
	defer mu.Unlock()
	for _, tr := range transitions {
		assert.False(t, tr[0].Terminal(), "transition out of terminal state: %s -> %s", tr[0], tr[1])
	}
}
