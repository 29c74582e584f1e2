package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mpdriver/mpdriver/pkg/logger"
)

// Manager owns the loaded configuration for the lifetime of a command.
type Manager struct {
	Service Service

	mu      sync.Mutex
	sources []Source
	current atomic.Pointer[Config]
	closed  bool
}

// NewManager wraps service, or a fresh loader when service is nil.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{Service: service}
}

// Load builds the configuration from sources and publishes it.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.sources = sources
	m.current.Store(cfg)
	return cfg, nil
}

// Get returns the last loaded configuration, or nil before the first Load.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Close releases the sources once; later calls are no-ops.
func (m *Manager) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	var errs []error
	for _, s := range m.sources {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s source: %w", s.Type(), err))
		}
	}
	return errors.Join(errs...)
}

type managerKey struct{}

// ContextWithManager attaches m to ctx.
func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// ManagerFromContext returns the attached manager. Without one it returns a
// process-wide manager loaded from defaults and the environment.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx != nil {
		if m, ok := ctx.Value(managerKey{}).(*Manager); ok && m != nil {
			return m
		}
	}
	return fallbackManager()
}

// FromContext returns the configuration visible to ctx.
func FromContext(ctx context.Context) *Config {
	return ManagerFromContext(ctx).Get()
}

var fallbackManager = sync.OnceValue(func() *Manager {
	m := NewManager(NewService())
	if _, err := m.Load(context.Background(), NewEnvProvider()); err != nil {
		logger.FromContext(context.Background()).Warn("Environment configuration invalid, using defaults", "error", err)
		m.current.Store(Default())
	}
	return m
})
