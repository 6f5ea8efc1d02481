// Package lifecycle runs ordered start and stop hooks for the components
// living in a container.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"kestrel/container"
)

// ErrStarted is returned when hooks are appended to, or Start is called on, a
// running manager.
var ErrStarted = errors.New("lifecycle already started")

// Hook is a pair of callbacks bound to one component. Either may be nil.
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Manager starts hooks in registration order and stops them in reverse.
type Manager struct {
	mu      sync.Mutex
	hooks   []Hook
	started int
	running bool
	logger  *zap.SugaredLogger
}

// NewManager creates an empty manager. A nil logger disables logging.
func NewManager(logger *zap.SugaredLogger) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{logger: logger}
}

// Append registers h after all previously registered hooks.
func (m *Manager) Append(h Hook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("append hook %q: %w", h.Name, ErrStarted)
	}
	m.hooks = append(m.hooks, h)
	return nil
}

// Start runs every OnStart in order. If one fails, the hooks already started
// are stopped in reverse order and the start error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrStarted
	}

	for i, h := range m.hooks {
		if h.OnStart != nil {
			if err := h.OnStart(ctx); err != nil {
				m.started = i
				m.logger.Errorw("Lifecycle hook failed to start", "hook", h.Name, "error", err)
				if stopErr := m.stopLocked(ctx); stopErr != nil {
					m.logger.Warnw("Rollback after failed start was incomplete", "error", stopErr)
				}
				return fmt.Errorf("start %s: %w", h.Name, err)
			}
		}
		m.logger.Debugw("Lifecycle hook started", "hook", h.Name)
	}
	m.started = len(m.hooks)
	m.running = true
	return nil
}

// Stop runs OnStop for every started hook in reverse order. All hooks are
// stopped even if some fail; failures are joined. Stop on a manager that is
// not running is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := m.started - 1; i >= 0; i-- {
		h := m.hooks[i]
		if h.OnStop == nil {
			continue
		}
		if err := h.OnStop(ctx); err != nil {
			m.logger.Errorw("Lifecycle hook failed to stop", "hook", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", h.Name, err))
			continue
		}
		m.logger.Debugw("Lifecycle hook stopped", "hook", h.Name)
	}
	m.started = 0
	return errors.Join(errs...)
}

// Running reports whether Start succeeded and Stop has not been called since.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Len returns the number of registered hooks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hooks)
}

// Module binds a fresh *Manager per container. It is composed first so every
// later module can register hooks against it.
func Module() container.Module {
	return container.ModuleFunc("lifecycle", func(b *container.Binder) error {
		container.Provide(b, func(r container.Resolver) (*Manager, error) {
			logger, err := container.Resolve[*zap.SugaredLogger](r)
			if err != nil && !errors.Is(err, container.ErrNotBound) {
				return nil, err
			}
			if logger != nil {
				logger = logger.Named("lifecycle")
			}
			return NewManager(logger), nil
		}, container.Eager())
		return nil
	})
}
