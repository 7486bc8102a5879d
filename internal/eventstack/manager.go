package eventstack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"droidcore/internal/metrics"
	"droidcore/internal/mood"
	"droidcore/internal/profile"
)

type MoodSetter interface {
	Set(m mood.Mood) error
}

type ProfileController interface {
	Name() string
	Set(name string) error
	CinematicEnabled() bool
	QuickMoodEnabled() bool
}

// CinematicDispatcher plays a pre-approved sequence.
type CinematicDispatcher interface {
	Run(ctx context.Context, sequence string) error
}

type Config struct {
	// Pace is the pause after each handled event.
	Pace time.Duration
	// IdlePoll bounds how long an idle consumer waits before checking again.
	IdlePoll time.Duration
}

func DefaultConfig() Config {
	return Config{Pace: 500 * time.Millisecond, IdlePoll: 100 * time.Millisecond}
}

// Outcomes reported to metrics and logs.
const (
	outcomeApplied    = "applied"
	outcomeSuppressed = "suppressed"
	outcomeFailed     = "failed"
	outcomeUnknown    = "unknown"
)

type Manager struct {
	pace       time.Duration
	idlePoll   time.Duration
	profiles   ProfileController
	moods      MoodSetter
	cinematics CinematicDispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	wake       chan struct{}

	mu      sync.Mutex
	queue   []Event
	running bool
	gen     uint64
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(cfg Config, profiles ProfileController, moods MoodSetter, cinematics CinematicDispatcher, m *metrics.Metrics, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.Pace < 0 {
		cfg.Pace = def.Pace
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = def.IdlePoll
	}
	return &Manager{
		pace:       cfg.Pace,
		idlePoll:   cfg.IdlePoll,
		profiles:   profiles,
		moods:      moods,
		cinematics: cinematics,
		metrics:    m,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue appends ev at the tail. It never blocks.
func (m *Manager) Enqueue(ev Event) {
	if ev == nil {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, ev)
	depth := len(m.queue)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	m.logger.Info("event queued", "kind", ev.Kind(), "data", ev.Payload(), "depth", depth)
	m.metrics.EventEnqueued(string(ev.Kind()), depth)
}

// Snapshot returns the pending events in order.
func (m *Manager) Snapshot() []Pending {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Pending, 0, len(m.queue))
	for _, ev := range m.queue {
		out = append(out, Pending{Kind: ev.Kind(), Data: ev.Payload()})
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Start launches the consumer unless one is already running. It reports
// whether a consumer was started.
func (m *Manager) Start(ctx context.Context) bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return false
	}
	m.gen++
	gen := m.gen
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.running = true
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("event consumer started")
	go m.consume(runCtx, gen, done)
	return true
}

// Stop halts the consumer and discards every pending event. An event the
// consumer already took keeps its effects. Returns the number discarded.
func (m *Manager) Stop() int {
	m.mu.Lock()
	if m.running {
		m.cancel()
		m.running = false
		m.gen++
	}
	dropped := len(m.queue)
	m.queue = nil
	m.mu.Unlock()

	m.logger.Info("event consumer stopped", "dropped", dropped)
	m.metrics.QueueDepth(0)
	return dropped
}

// Wait blocks until the most recently started consumer has exited.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (m *Manager) consume(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer m.exited(gen)
	idle := time.NewTimer(m.idlePoll)
	defer idle.Stop()

	for {
		ev, depth, ok := m.pop(gen)
		if !ok {
			if ctx.Err() != nil || !m.live(gen) {
				return
			}
			idle.Reset(m.idlePoll)
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
			case <-idle.C:
			}
			continue
		}

		outcome := m.handle(ctx, ev)
		m.metrics.EventHandled(string(ev.Kind()), outcome, depth)

		if m.pace > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pace):
			}
		}
	}
}

// pop takes the head event if gen is still the live consumer.
func (m *Manager) pop(gen uint64) (Event, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || gen != m.gen || len(m.queue) == 0 {
		return nil, len(m.queue), false
	}
	ev := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return ev, len(m.queue), true
}

// exited clears the running flag when a live consumer returns on its own,
// so a later Start can launch a new one.
func (m *Manager) exited(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running && gen == m.gen {
		m.running = false
		m.cancel()
	}
}

func (m *Manager) live(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running && gen == m.gen
}

func (m *Manager) handle(ctx context.Context, ev Event) string {
	current := m.profiles.Name()
	m.logger.Info("handling event", "kind", ev.Kind(), "data", ev.Payload(), "profile", current)

	outcome, err := m.dispatch(ctx, ev, current)
	if err != nil {
		m.logger.Error("event failed", "kind", ev.Kind(), "data", ev.Payload(), "error", err)
		return outcomeFailed
	}
	if outcome == outcomeSuppressed {
		m.logger.Info("event suppressed by profile", "kind", ev.Kind(), "data", ev.Payload(), "profile", current)
	}
	return outcome
}

func (m *Manager) dispatch(ctx context.Context, ev Event, currentProfile string) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailed
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch e := ev.(type) {
	case MoodEvent:
		target := e.Mood
		if currentProfile == profile.KidEvent && (target == mood.Mad || target == mood.Scared) {
			m.logger.Info("kid-safe mood override", "requested", string(target), "applied", string(mood.Friendly))
			target = mood.Friendly
		}
		return outcomeApplied, m.moods.Set(target)
	case ProfileEvent:
		return outcomeApplied, m.profiles.Set(e.Profile)
	case CinematicEvent:
		if !m.profiles.CinematicEnabled() {
			return outcomeSuppressed, nil
		}
		return outcomeApplied, m.cinematics.Run(ctx, e.Sequence)
	case QuickMoodEvent:
		if !m.profiles.QuickMoodEnabled() {
			return outcomeSuppressed, nil
		}
		return outcomeApplied, m.moods.Set(e.Mood)
	default:
		m.logger.Warn("unknown event type", "kind", ev.Kind())
		return outcomeUnknown, nil
	}
}
