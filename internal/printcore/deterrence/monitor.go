package deterrence

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
)

// Monitor runs every polling detector on its own ticker for the lifetime of
// one session. Stop cancels all of them and waits; once Stop returns, no
// further tick can publish.
type Monitor struct {
	insp      Inspector
	b         *bus.Bus
	log       *zap.Logger
	detectors []Detector

	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	generation uint64
	running    bool
}

// NewMonitor builds a monitor over the given detectors. Detectors with a
// non-positive interval are skipped.
func NewMonitor(insp Inspector, b *bus.Bus, log *zap.Logger, detectors ...Detector) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	kept := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		if d.Interval() > 0 {
			kept = append(kept, d)
		}
	}
	return &Monitor{insp: insp, b: b, log: log, detectors: kept}
}

// Start launches the detector loops stamped with the session generation.
// Starting an already running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.generation = generation

	ctx, m.cancel = context.WithCancel(ctx)
	for _, d := range m.detectors {
		m.wg.Add(1)
		go m.loop(ctx, d, generation)
	}
}

// Stop cancels every detector loop and blocks until all have exited. Safe to
// call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Notify publishes a push-style observation (visibility change, window blur)
// reported by the rendering context rather than polled for.
func (m *Monitor) Notify(kind EventKind) {
	m.mu.Lock()
	generation := m.generation
	m.mu.Unlock()
	m.publish(generation, Event{Kind: kind, DetectedAt: time.Now(), Confidence: ConfidenceMedium})
}

func (m *Monitor) loop(ctx context.Context, d Detector, generation uint64) {
	defer m.wg.Done()
	ticker := time.NewTicker(d.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, d, generation)
		}
	}
}

// tick runs one detector check. A panicking or failing detector skips the
// tick; the session must never die to a heuristic.
func (m *Monitor) tick(ctx context.Context, d Detector, generation uint64) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("detector panicked", zap.String("detector", string(d.Kind())), zap.Any("panic", r))
		}
	}()

	insp, err := m.insp.Inspect(ctx)
	if err != nil {
		m.log.Debug("inspection failed", zap.String("detector", string(d.Kind())), zap.Error(err))
		return
	}
	if ev := d.Check(ctx, insp); ev != nil {
		m.publish(generation, *ev)
	}
}

func (m *Monitor) publish(generation uint64, ev Event) {
	m.b.Publish(bus.Message{
		Kind:       bus.KindDeterrenceEvent,
		Generation: generation,
		Payload:    marshalEvent(ev),
	})
}
