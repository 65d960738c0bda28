package surface

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
)

// ErrStaleMount is returned by Mount when a newer generation has already
// claimed the manager. The stale caller must not retry.
var ErrStaleMount = errors.New("surface: mount superseded by a newer generation")

// Manager owns the lifecycle of the active rendering environment: create,
// mount, announce, tear down. At most one environment is live at a time, and
// only the highest generation seen may hold it.
type Manager struct {
	factory Factory
	b       *bus.Bus
	log     *zap.Logger

	mu        sync.Mutex
	gen       uint64
	env       Environment
	teardowns []func()
}

// NewManager builds a manager over the given environment factory.
func NewManager(factory Factory, b *bus.Bus, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{factory: factory, b: b, log: log}
}

// Mount creates a fresh environment and mounts the document into it,
// publishing print-started on success and print-error on failure. A previous
// live environment is torn down first. Mounts for a generation older than one
// already seen are refused with ErrStaleMount; a mount overtaken while in
// flight is unmounted instead of registered, so a stale caller can never
// displace a newer session's surface.
func (m *Manager) Mount(ctx context.Context, generation uint64, doc Document) (Environment, error) {
	m.mu.Lock()
	if generation < m.gen {
		m.mu.Unlock()
		return nil, ErrStaleMount
	}
	m.gen = generation
	m.mu.Unlock()

	if err := m.Teardown(ctx); err != nil {
		m.log.Warn("teardown of previous surface failed", zap.Error(err))
	}

	env, err := m.factory.NewEnvironment(ctx)
	if err != nil {
		m.publishError(generation, err)
		return nil, err
	}
	if err := env.Mount(ctx, doc); err != nil {
		if uerr := env.Unmount(ctx); uerr != nil {
			m.log.Warn("unmount after failed mount", zap.Error(uerr))
		}
		m.publishError(generation, err)
		return nil, err
	}

	m.mu.Lock()
	if m.gen != generation {
		m.mu.Unlock()
		if uerr := env.Unmount(ctx); uerr != nil {
			m.log.Warn("unmount of overtaken surface failed", zap.Error(uerr))
		}
		return nil, ErrStaleMount
	}
	m.env = env
	m.mu.Unlock()

	m.b.Publish(bus.Message{Kind: bus.KindPrintStarted, Generation: generation})
	return env, nil
}

// OnTeardown registers a hook to run during the next Teardown. Hooks run in
// reverse registration order, before the environment is unmounted.
func (m *Manager) OnTeardown(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns = append(m.teardowns, fn)
}

// Teardown runs the registered hooks and unmounts the live environment. It is
// idempotent: a manager with nothing mounted returns nil.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	env := m.env
	hooks := m.teardowns
	m.env = nil
	m.teardowns = nil
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	if env == nil {
		return nil
	}
	return env.Unmount(ctx)
}

// Environment returns the live environment, or nil when nothing is mounted.
func (m *Manager) Environment() Environment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.env
}

// Inspect satisfies deterrence.Inspector against whatever environment is
// currently live.
func (m *Manager) Inspect(ctx context.Context) (deterrence.Inspection, error) {
	env := m.Environment()
	if env == nil {
		return deterrence.Inspection{}, ErrNoPrintFacility
	}
	return env.Inspect(ctx)
}

func (m *Manager) publishError(generation uint64, err error) {
	payload, _ := json.Marshal(map[string]string{"message": err.Error()})
	m.b.Publish(bus.Message{Kind: bus.KindPrintError, Generation: generation, Payload: payload})
}

var _ deterrence.Inspector = (*Manager)(nil)
