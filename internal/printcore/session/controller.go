package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
	"github.com/noah-isme/secure-print-api/internal/printcore/surface"
	"github.com/noah-isme/secure-print-api/internal/printcore/watermark"
	appErrors "github.com/noah-isme/secure-print-api/pkg/errors"
)

// DefaultCompletionTimeout bounds how long a session may sit in
// AwaitingCompletion before it is failed.
const DefaultCompletionTimeout = 45 * time.Second

// Config tunes one controller. Hook fields are optional; they feed metrics
// and tests.
type Config struct {
	ProbeTimeout      time.Duration
	CompletionTimeout time.Duration
	WatermarkText     string

	// NewDetectors builds a fresh detector set per session. Detectors carry
	// per-session state (baselines), so they must not be shared.
	NewDetectors func() []deterrence.Detector

	OnTransition func(from, to State)
	OnOutcome    func(state State, errorCode string)
	OnDeterrence func(kind deterrence.EventKind)
	OnStale      func()
}

// Controller owns at most one print session at a time. All transitions happen
// under its lock; bus messages are applied strictly in arrival order by a
// single event-loop goroutine.
type Controller struct {
	cfg      Config
	source   DescriptorSource
	sink     AuditSink
	factory  surface.Factory
	manager  *surface.Manager
	strategy surface.Strategy
	probe    *capability.Probe
	b        *bus.Bus
	log      *zap.Logger

	mu      sync.Mutex
	gen     uint64
	current *session
	closed  bool

	timeouts chan uint64
	done     chan struct{}
}

// NewController wires a controller and starts its event loop. Close stops it.
func NewController(cfg Config, source DescriptorSource, sink AuditSink, factory surface.Factory, strategy surface.Strategy, b *bus.Bus, log *zap.Logger) *Controller {
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = DefaultCompletionTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		cfg:      cfg,
		source:   source,
		sink:     sink,
		factory:  factory,
		manager:  surface.NewManager(factory, b, log),
		strategy: strategy,
		probe:    capability.New(cfg.ProbeTimeout, log),
		b:        b,
		log:      log,
		timeouts: make(chan uint64, 4),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

// Open starts a new session for the document, force-tearing-down any previous
// one first. It drives the pipeline through Loading, CapabilityCheck and
// Rendering synchronously and leaves the session in AwaitingCompletion (or a
// terminal state) when it returns.
func (c *Controller) Open(ctx context.Context, req Request) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{}, appErrors.ErrNoSession
	}
	c.teardownLocked()
	c.gen++
	gen := c.gen
	s := &session{
		id:         uuid.NewString(),
		fileID:     req.FileID,
		userID:     req.UserID,
		ownerName:  req.OwnerName,
		ipAddress:  req.IPAddress,
		userAgent:  req.UserAgent,
		generation: gen,
		state:      StateIdle,
		startedAt:  time.Now(),
	}
	c.current = s
	c.transitionLocked(s, StateLoading)
	c.mu.Unlock()

	desc, err := c.source.Descriptor(ctx, req.FileID)
	if err != nil {
		return c.fail(gen, appErrors.ErrDescriptorFetch.Wrap(err))
	}
	c.mu.Lock()
	if c.supersededLocked(s) {
		return c.abandonLocked(s)
	}
	s.filename = desc.Filename
	c.transitionLocked(s, StateCapabilityCheck)
	c.mu.Unlock()

	report, available := c.runProbe(ctx, gen)
	c.mu.Lock()
	if c.supersededLocked(s) {
		return c.abandonLocked(s)
	}
	s.capability = report
	s.available = available
	if !available {
		c.mu.Unlock()
		return c.fail(gen, appErrors.ErrCapabilityUnavailable)
	}
	c.transitionLocked(s, StateRendering)
	c.mu.Unlock()

	doc := buildDocument(desc, req, c.cfg.WatermarkText)
	env, err := c.manager.Mount(ctx, gen, doc)
	if errors.Is(err, surface.ErrStaleMount) {
		c.mu.Lock()
		return c.abandonLocked(s)
	}
	if err != nil {
		return c.fail(gen, appErrors.ErrSurfaceMount.Wrap(err))
	}

	c.mu.Lock()
	if c.supersededLocked(s) {
		// A newer Open already tore the mount down via the manager.
		return c.abandonLocked(s)
	}
	monitor := deterrence.NewMonitor(c.manager, c.b, c.log, c.newDetectors()...)
	monitor.Start(context.Background(), gen)
	c.manager.OnTeardown(monitor.Stop)
	c.transitionLocked(s, StateAwaitingCompletion)
	s.timer = time.AfterFunc(c.cfg.CompletionTimeout, func() {
		select {
		case c.timeouts <- gen:
		case <-c.done:
		}
	})
	c.mu.Unlock()

	res, err := c.strategy.Trigger(ctx, env, doc)
	switch {
	case err != nil:
		payload, _ := json.Marshal(map[string]string{"message": err.Error()})
		c.b.Publish(bus.Message{Kind: bus.KindPrintError, Generation: gen, Payload: payload})
	case res.Triggered:
		c.mu.Lock()
		if !c.supersededLocked(s) {
			s.output = res.Output
		}
		c.mu.Unlock()
		c.b.Publish(bus.Message{Kind: bus.KindPrintComplete, Generation: gen})
	}

	return c.snapshotOf(gen)
}

// supersededLocked reports whether s has been displaced by a newer Open or
// force-terminated. A superseded Open continuation must not touch the session
// or the shared surface again.
func (c *Controller) supersededLocked(s *session) bool {
	return c.current != s || s.state.Terminal()
}

// abandonLocked finishes a superseded Open continuation: the session was
// already failed and torn down by whoever displaced it, so only report.
// Callers hold c.mu; it is released here.
func (c *Controller) abandonLocked(s *session) (Snapshot, error) {
	snap := s.snapshot()
	c.mu.Unlock()
	return snap, appErrors.ErrSessionCancelled
}

// Cancel aborts the active session. Terminal sessions are left untouched.
func (c *Controller) Cancel(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	s := c.current
	if s == nil {
		c.mu.Unlock()
		return Snapshot{}, appErrors.ErrNoSession
	}
	if s.state.Terminal() {
		snap := s.snapshot()
		c.mu.Unlock()
		return snap, nil
	}
	c.failLocked(s, appErrors.ErrSessionCancelled)
	snap := s.snapshot()
	c.mu.Unlock()
	return snap, nil
}

// Current returns a snapshot of the active session.
func (c *Controller) Current() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Snapshot{}, appErrors.ErrNoSession
	}
	return c.current.snapshot(), nil
}

// Output returns the rendered document of a completed session, when the
// strategy produced one server-side.
func (c *Controller) Output() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.state != StateComplete || len(c.current.output) == 0 {
		return nil, appErrors.ErrNoSession
	}
	out := make([]byte, len(c.current.output))
	copy(out, c.current.output)
	return out, nil
}

// Deliver feeds a raw envelope from an external rendering context into the
// bus. Malformed or unknown messages are rejected here; stale generations are
// dropped later by the loop.
func (c *Controller) Deliver(raw []byte) error {
	return c.b.Deliver(raw)
}

// NotifyDeterrence publishes a push-style observation from the client context
// under the active generation.
func (c *Controller) NotifyDeterrence(kind deterrence.EventKind) {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	ev := deterrence.Event{Kind: kind, DetectedAt: time.Now(), Confidence: deterrence.ConfidenceMedium}
	payload, _ := json.Marshal(ev)
	c.b.Publish(bus.Message{Kind: bus.KindDeterrenceEvent, Generation: gen, Payload: payload})
}

// InterceptKey checks a key chord against the blocklist and reports whether
// the press must be swallowed.
func (c *Controller) InterceptKey(chord deterrence.KeyChord) bool {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	return deterrence.NewKeyInterceptor(c.b, gen).Intercept(chord)
}

// Close tears down the active session and stops the event loop.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.teardownLocked()
	c.mu.Unlock()
	c.b.Close()
	<-c.done
}

// loop applies bus messages and timeout signals strictly in order.
func (c *Controller) loop() {
	defer close(c.done)
	for {
		select {
		case msg, ok := <-c.b.Messages():
			if !ok {
				return
			}
			c.apply(msg)
		case gen := <-c.timeouts:
			c.applyTimeout(gen)
		}
	}
}

func (c *Controller) apply(msg bus.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current
	if s == nil || msg.Generation != s.generation {
		c.staleLocked(msg)
		return
	}
	if s.state.Terminal() {
		return
	}

	switch msg.Kind {
	case bus.KindProbeAvailable, bus.KindProbeUnavailable:
		// Outcome already folded in by Open; nothing further to apply.
	case bus.KindPrintStarted:
		// Surface mounted; Open moves the state itself.
	case bus.KindPrintComplete:
		c.completeLocked(s)
	case bus.KindPrintError:
		var detail struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(msg.Payload, &detail)
		err := appErrors.ErrSurfaceMount
		if detail.Message != "" {
			err = appErrors.ErrSurfaceMount.Wrap(fmt.Errorf("%s", detail.Message))
		}
		c.failLocked(s, err)
	case bus.KindDeterrenceEvent:
		var ev deterrence.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			c.log.Debug("undecodable deterrence event", zap.Error(err))
			return
		}
		s.events = append(s.events, ev)
		if c.cfg.OnDeterrence != nil {
			c.cfg.OnDeterrence(ev.Kind)
		}
	}
}

func (c *Controller) applyTimeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current
	if s == nil || s.generation != gen || s.state.Terminal() {
		return
	}
	c.failLocked(s, appErrors.ErrCompletionTimeout)
}

// completeLocked finalizes a successful session: state, audit write, teardown.
// The audit write is best-effort; a failure is logged and counted but the
// outcome stays Complete.
func (c *Controller) completeLocked(s *session) {
	c.transitionLocked(s, StateComplete)
	now := time.Now()
	s.finishedAt = &now
	c.recordAudit(s)
	c.teardownSurfaceLocked(s)
	if c.cfg.OnOutcome != nil {
		c.cfg.OnOutcome(StateComplete, "")
	}
}

func (c *Controller) failLocked(s *session, err *appErrors.Error) {
	c.transitionLocked(s, StateFailed)
	now := time.Now()
	s.finishedAt = &now
	s.errorCode = err.Code
	c.teardownSurfaceLocked(s)
	if c.cfg.OnOutcome != nil {
		c.cfg.OnOutcome(StateFailed, err.Code)
	}
	c.log.Info("print session failed",
		zap.String("session_id", s.id),
		zap.String("file_id", s.fileID),
		zap.String("code", err.Code),
	)
}

func (c *Controller) fail(gen uint64, err *appErrors.Error) (Snapshot, error) {
	c.mu.Lock()
	s := c.current
	if s == nil || s.generation != gen || s.state.Terminal() {
		snap := Snapshot{}
		if s != nil {
			snap = s.snapshot()
		}
		c.mu.Unlock()
		return snap, err
	}
	c.failLocked(s, err)
	snap := s.snapshot()
	c.mu.Unlock()
	return snap, err
}

// teardownLocked force-terminates whatever session is active before a new one
// mounts. A non-terminal session is failed as cancelled.
func (c *Controller) teardownLocked() {
	s := c.current
	if s == nil {
		return
	}
	if !s.state.Terminal() {
		c.failLocked(s, appErrors.ErrSessionCancelled)
		return
	}
	c.teardownSurfaceLocked(s)
}

func (c *Controller) teardownSurfaceLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if err := c.manager.Teardown(context.Background()); err != nil {
		c.log.Warn("surface teardown failed", zap.Error(err))
	}
}

func (c *Controller) transitionLocked(s *session, to State) {
	from := s.state
	s.state = to
	if c.cfg.OnTransition != nil {
		c.cfg.OnTransition(from, to)
	}
}

func (c *Controller) staleLocked(msg bus.Message) {
	if c.cfg.OnStale != nil {
		c.cfg.OnStale()
	}
	c.log.Debug("dropped stale bus message",
		zap.String("kind", string(msg.Kind)),
		zap.Uint64("generation", msg.Generation),
	)
}

func (c *Controller) recordAudit(s *session) {
	entry := AuditEntry{
		FileID:    s.fileID,
		UserID:    s.userID,
		Filename:  s.filename,
		IPAddress: s.ipAddress,
		UserAgent: s.userAgent,
		PrintedAt: time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.sink.Record(ctx, entry); err != nil {
		c.log.Error("audit log write failed",
			zap.String("session_id", s.id),
			zap.String("file_id", s.fileID),
			zap.Error(err),
		)
		if c.cfg.OnOutcome != nil {
			c.cfg.OnOutcome(StateComplete, appErrors.ErrLogWrite.Code)
		}
	}
}

// runProbe mounts a throwaway environment and asks it for a capability
// report. A factory failure counts as unavailable.
func (c *Controller) runProbe(ctx context.Context, gen uint64) (capability.Report, bool) {
	env, err := c.factory.NewEnvironment(ctx)
	if err != nil {
		c.log.Warn("probe surface unavailable", zap.Error(err))
		c.b.Publish(bus.Message{Kind: bus.KindProbeUnavailable, Generation: gen})
		return capability.Report{}, false
	}
	defer func() {
		if err := env.Unmount(ctx); err != nil {
			c.log.Debug("probe surface unmount failed", zap.Error(err))
		}
	}()
	report := c.probe.Run(ctx, env, c.b, gen)
	return report, report.Available()
}

func (c *Controller) newDetectors() []deterrence.Detector {
	if c.cfg.NewDetectors == nil {
		return nil
	}
	return c.cfg.NewDetectors()
}

func (c *Controller) snapshotOf(gen uint64) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.current
	if s == nil || s.generation != gen {
		return Snapshot{}, appErrors.ErrNoSession
	}
	return s.snapshot(), nil
}

func buildDocument(desc Descriptor, req Request, defaultText string) surface.Document {
	text := strings.TrimSpace(req.WatermarkText)
	if text == "" {
		text = defaultText
	}
	spec := watermark.Compose(req.OwnerName, time.Now(), text)
	body := surface.EmbedBody(desc.URL, desc.MimeType)
	return surface.Document{
		Title:     desc.Filename,
		BodyHTML:  body,
		Lines:     []string{desc.Filename, desc.URL},
		Watermark: spec,
	}
}
