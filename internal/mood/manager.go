package mood

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"droidcore/internal/metrics"
)

// State is the current mood and when it last changed. ChangedAt keeps the
// monotonic clock reading, so elapsed time is immune to wall clock jumps.
type State struct {
	Mood      Mood
	ChangedAt time.Time
}

// Listener is told about mood changes after the manager lock is released,
// one call at a time and in change order. A change overtaken by a newer one
// before it was delivered is dropped.
type Listener interface {
	MoodChanged(ctx context.Context, st State)
}

type Config struct {
	TickInterval time.Duration
	Holds        map[Mood]time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		Holds:        DefaultHolds(),
	}
}

type Manager struct {
	tickInterval time.Duration
	holds        map[Mood]time.Duration
	listener     Listener
	metrics      *metrics.Metrics
	logger       *slog.Logger

	mu    sync.Mutex
	state State
	seq   uint64

	notifyMu sync.Mutex
	notified uint64
}

func NewManager(cfg Config, listener Listener, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Holds == nil {
		cfg.Holds = DefaultHolds()
	}
	holds := make(map[Mood]time.Duration, len(cfg.Holds))
	for k, v := range cfg.Holds {
		holds[k] = v
	}
	return &Manager{
		tickInterval: cfg.TickInterval,
		holds:        holds,
		listener:     listener,
		metrics:      m,
		logger:       logger,
		state:        State{Mood: Neutral, ChangedAt: time.Now()},
	}
}

// Set changes the mood immediately. Unknown moods leave the state untouched.
func (m *Manager) Set(next Mood) error {
	if !next.Valid() {
		m.logger.Warn("unknown mood", "mood", string(next))
		return fmt.Errorf("%w: %q", ErrUnknownMood, string(next))
	}

	m.mu.Lock()
	m.state = State{Mood: next, ChangedAt: time.Now()}
	m.seq++
	st, seq := m.state, m.seq
	m.mu.Unlock()

	m.logger.Info("mood set", "mood", string(next))
	m.changed(st, seq, "set")
	return nil
}

func (m *Manager) Get() Mood {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Mood
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Hold reports the hold duration of a transient mood.
func (m *Manager) Hold(md Mood) (time.Duration, bool) {
	d, ok := m.holds[md]
	return d, ok
}

// Run resets expired transient moods until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	m.logger.Info("mood auto-reset started", "interval", m.tickInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(time.Now())
		}
	}
}

func (m *Manager) tick(now time.Time) {
	m.mu.Lock()
	hold, transient := m.holds[m.state.Mood]
	if !transient || now.Sub(m.state.ChangedAt) < hold {
		m.mu.Unlock()
		return
	}
	prev := m.state.Mood
	m.state = State{Mood: ResetTarget, ChangedAt: now}
	m.seq++
	st, seq := m.state, m.seq
	m.mu.Unlock()

	m.logger.Info("mood auto-reset", "from", string(prev), "to", string(ResetTarget))
	m.changed(st, seq, "auto_reset")
}

func (m *Manager) changed(st State, seq uint64, cause string) {
	m.metrics.MoodChanged(string(st.Mood), cause)
	if m.listener == nil {
		return
	}

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.notified {
		return
	}
	m.notified = seq
	m.listener.MoodChanged(context.Background(), st)
}
