package profile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"droidcore/internal/metrics"
	"droidcore/internal/schedule"
)

// Listener is told about profile changes after the manager lock is released,
// one call at a time and in change order. Overtaken changes are dropped.
type Listener interface {
	ProfileChanged(ctx context.Context, p Profile)
}

type Config struct {
	Profiles []Profile
	Default  string
}

func DefaultConfig() Config {
	return Config{Profiles: DefaultRegistry(), Default: DefaultName}
}

// RevertStatus describes the pending auto-revert, if any.
type RevertStatus struct {
	Active bool      `json:"active"`
	Target string    `json:"target"`
	Due    time.Time `json:"due,omitempty"`
}

type Manager struct {
	order    []string
	registry map[string]Profile
	def      string
	listener Listener
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	current Profile
	seq     uint64
	revert  schedule.Timer

	notifyMu sync.Mutex
	notified uint64
}

func NewManager(cfg Config, listener Listener, m *metrics.Metrics, logger *slog.Logger) (*Manager, error) {
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultRegistry()
	}
	if cfg.Default == "" {
		cfg.Default = DefaultName
	}

	registry := make(map[string]Profile, len(cfg.Profiles))
	order := make([]string, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		if _, dup := registry[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile: %s", p.Name)
		}
		registry[p.Name] = p
		order = append(order, p.Name)
	}
	def, ok := registry[cfg.Default]
	if !ok {
		return nil, fmt.Errorf("default profile: %w: %q", ErrUnknownProfile, cfg.Default)
	}
	if def.AutoRevert > 0 {
		return nil, fmt.Errorf("default profile %s must not auto-revert", def.Name)
	}

	return &Manager{
		order:    order,
		registry: registry,
		def:      def.Name,
		listener: listener,
		metrics:  m,
		logger:   logger,
		current:  def,
	}, nil
}

// Set switches the active profile. Any pending auto-revert is cancelled first,
// even when name is already active, and a new one is scheduled if the profile
// declares it.
func (m *Manager) Set(name string) error {
	p, ok := m.registry[name]
	if !ok {
		m.logger.Warn("unknown profile", "profile", name)
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}

	m.mu.Lock()
	seq := m.applyLocked(p)
	m.mu.Unlock()

	m.logger.Info("profile set", "profile", p.Name)
	if p.AutoRevert > 0 {
		m.logger.Info("profile auto-revert scheduled", "profile", p.Name, "target", m.def, "after", p.AutoRevert)
	}
	m.changed(p, seq, "set")
	return nil
}

func (m *Manager) applyLocked(p Profile) uint64 {
	m.revert.Cancel()
	m.current = p
	m.seq++
	if p.AutoRevert > 0 {
		m.revert.Schedule(p.AutoRevert, m.autoRevert)
	}
	return m.seq
}

func (m *Manager) autoRevert(gen uint64) {
	m.mu.Lock()
	if !m.revert.Claim(gen) {
		m.mu.Unlock()
		return
	}
	from := m.current.Name
	def := m.registry[m.def]
	seq := m.applyLocked(def)
	m.mu.Unlock()

	m.logger.Info("profile auto-revert", "from", from, "to", def.Name)
	m.changed(def, seq, "auto_revert")
}

func (m *Manager) changed(p Profile, seq uint64, cause string) {
	m.metrics.ProfileChanged(p.Name, cause)
	if m.listener == nil {
		return
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.notified {
		return
	}
	m.notified = seq
	m.listener.ProfileChanged(context.Background(), p)
}

func (m *Manager) Get() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Name() string {
	return m.Get().Name
}

func (m *Manager) Default() string {
	return m.def
}

func (m *Manager) AttentionEnabled() bool {
	return m.Get().AttentionEnabled
}

func (m *Manager) CinematicEnabled() bool {
	return m.Get().CinematicEnabled
}

func (m *Manager) QuickMoodEnabled() bool {
	return m.Get().QuickMoodEnabled
}

// Profiles lists the registry in declaration order.
func (m *Manager) Profiles() []Profile {
	out := make([]Profile, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.registry[name])
	}
	return out
}

func (m *Manager) AutoRevertStatus() RevertStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return RevertStatus{
		Active: m.revert.Pending(),
		Target: m.def,
		Due:    m.revert.Due(),
	}
}

// Close cancels a pending auto-revert.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revert.Cancel()
}
