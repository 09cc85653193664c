package circuit

import (
	"sync"

	"github.com/sony/gobreaker"
)

// Manager owns a registry of named breakers, one per upstream provider.
// It is the process-wide singleton documented in the concurrency model:
// created during init, handed to components by reference, no teardown
// needed beyond dropping the reference (breakers hold no goroutines of
// their own — gobreaker is purely state plus timestamps).
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	configs  map[string]Config
}

// NewManager returns an empty breaker registry.
func NewManager() *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
		configs:  make(map[string]Config),
	}
}

// AddProvider registers (or replaces) the breaker for name.
func (m *Manager) AddProvider(name string, cfg Config) *Breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := New(name, cfg)
	m.breakers[name] = b
	m.configs[name] = cfg
	return b
}

// GetBreaker returns the breaker for name, or nil if unregistered.
func (m *Manager) GetBreaker(name string) *Breaker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.breakers[name]
}

// Call executes fn through the named breaker, registering a default-config
// breaker on first use if name is unknown.
func (m *Manager) Call(name string, fn func() (interface{}, error)) (interface{}, error) {
	m.mu.RLock()
	b, ok := m.breakers[name]
	m.mu.RUnlock()
	if !ok {
		b = m.AddProvider(name, DefaultConfig)
	}
	return b.Execute(fn)
}

// ProviderStats is a diagnostic snapshot of one breaker.
type ProviderStats struct {
	Name    string
	State   gobreaker.State
	Counts  gobreaker.Counts
	Healthy bool
}

// Stats returns a snapshot for every registered provider.
func (m *Manager) Stats() []ProviderStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ProviderStats, 0, len(m.breakers))
	for name, b := range m.breakers {
		out = append(out, ProviderStats{
			Name:    name,
			State:   b.State(),
			Counts:  b.Counts(),
			Healthy: b.State() == gobreaker.StateClosed,
		})
	}
	return out
}

// IsHealthy reports whether the named provider's breaker is closed.
func (m *Manager) IsHealthy(name string) bool {
	b := m.GetBreaker(name)
	if b == nil {
		return true
	}
	return b.State() == gobreaker.StateClosed
}

// UnhealthyProviders lists the names of every registered breaker not in
// the closed state.
func (m *Manager) UnhealthyProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name, b := range m.breakers {
		if b.State() != gobreaker.StateClosed {
			out = append(out, name)
		}
	}
	return out
}
