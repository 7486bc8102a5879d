// Package attention reacts to perceived stimuli with a time-boxed session:
// the robot turns CURIOUS, points its visuals at the target, and returns to
// FRIENDLY once the hold expires.
package attention

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"droidcore/internal/metrics"
	"droidcore/internal/mood"
	"droidcore/internal/schedule"
)

var (
	ErrAttentionDisabled = errors.New("attention disabled by profile")
	ErrSessionActive     = errors.New("attention session already active")
)

// Gate reports whether the active profile permits attention.
type Gate interface {
	AttentionEnabled() bool
}

type MoodSetter interface {
	Set(m mood.Mood) error
}

// VisualEffector drives the hardware side of a session. Errors are logged and
// never change session state.
type VisualEffector interface {
	Activate(ctx context.Context, target string) error
	Deactivate(ctx context.Context) error
}

type Config struct {
	Hold          time.Duration
	EffectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Hold: 5 * time.Second, EffectTimeout: 3 * time.Second}
}

// Session is a read-only view of the attention state.
type Session struct {
	Active    bool          `json:"active"`
	Source    string        `json:"source,omitempty"`
	Target    string        `json:"target,omitempty"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Hold      time.Duration `json:"hold"`
}

type Layer struct {
	hold          time.Duration
	effectTimeout time.Duration
	gate          Gate
	moods         MoodSetter
	effector      VisualEffector
	metrics       *metrics.Metrics
	logger        *slog.Logger

	mu      sync.Mutex
	session Session
	gen     uint64
	clear   schedule.Timer

	// fx orders the mood and effector calls of a session. It is taken before
	// mu, never while holding it.
	fx sync.Mutex
}

func NewLayer(cfg Config, gate Gate, moods MoodSetter, effector VisualEffector, m *metrics.Metrics, logger *slog.Logger) *Layer {
	def := DefaultConfig()
	if cfg.Hold <= 0 {
		cfg.Hold = def.Hold
	}
	if cfg.EffectTimeout <= 0 {
		cfg.EffectTimeout = def.EffectTimeout
	}
	return &Layer{
		hold:          cfg.Hold,
		effectTimeout: cfg.EffectTimeout,
		gate:          gate,
		moods:         moods,
		effector:      effector,
		metrics:       m,
		logger:        logger,
		session:       Session{Hold: cfg.Hold},
	}
}

// Trigger opens a session for target unless the profile disables attention or
// a session is already live.
func (l *Layer) Trigger(source, target string) error {
	if !l.gate.AttentionEnabled() {
		l.logger.Info("attention disabled in profile, ignoring", "source", source, "target", target)
		l.metrics.AttentionTrigger("disabled")
		return ErrAttentionDisabled
	}

	l.mu.Lock()
	if l.session.Active {
		l.mu.Unlock()
		l.logger.Info("attention already active, ignoring", "source", source, "target", target)
		l.metrics.AttentionTrigger("busy")
		return ErrSessionActive
	}
	l.session = Session{
		Active:    true,
		Source:    source,
		Target:    target,
		StartedAt: time.Now(),
		Hold:      l.hold,
	}
	l.gen++
	gen := l.gen
	l.clear.Schedule(l.hold, l.autoClear)
	l.mu.Unlock()

	l.logger.Info("attention triggered", "source", source, "target", target, "hold", l.hold)
	l.metrics.AttentionTrigger("accepted")

	l.fx.Lock()
	defer l.fx.Unlock()
	if !l.live(gen) {
		l.logger.Info("attention ended before it was shown", "target", target)
		return nil
	}
	l.metrics.AttentionActive(true)
	if err := l.moods.Set(mood.Curious); err != nil {
		l.logger.Warn("attention mood change failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.effectTimeout)
	defer cancel()
	if err := l.effector.Activate(ctx, target); err != nil {
		l.logger.Warn("activate attention visuals failed", "target", target, "error", err)
	}
	return nil
}

func (l *Layer) autoClear(gen uint64) {
	l.mu.Lock()
	if !l.clear.Claim(gen) {
		l.mu.Unlock()
		return
	}
	ended := l.endLocked()
	l.mu.Unlock()

	l.logger.Info("attention hold expired")
	l.restore(ended)
}

// Clear ends the session and returns the robot to FRIENDLY.
func (l *Layer) Clear() {
	l.mu.Lock()
	l.clear.Cancel()
	ended := l.endLocked()
	l.mu.Unlock()

	l.logger.Info("attention cleared")
	l.restore(ended)
}

// ForceClear cancels a pending auto-clear and clears a live session at once.
// Without a live session it does nothing.
func (l *Layer) ForceClear() {
	l.mu.Lock()
	l.clear.Cancel()
	if !l.session.Active {
		l.mu.Unlock()
		return
	}
	ended := l.endLocked()
	l.mu.Unlock()

	l.logger.Info("attention force cleared")
	l.restore(ended)
}

// endLocked drops the session and returns the generation it belonged to.
func (l *Layer) endLocked() uint64 {
	l.session = Session{Hold: l.hold}
	return l.gen
}

func (l *Layer) live(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.Active && l.gen == gen
}

// restore returns the robot to FRIENDLY unless a newer session has already
// taken over the visuals.
func (l *Layer) restore(ended uint64) {
	l.fx.Lock()
	defer l.fx.Unlock()

	l.mu.Lock()
	superseded := l.session.Active && l.gen != ended
	l.mu.Unlock()
	if superseded {
		return
	}

	l.metrics.AttentionActive(false)
	if err := l.moods.Set(mood.Friendly); err != nil {
		l.logger.Warn("attention mood restore failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.effectTimeout)
	defer cancel()
	if err := l.effector.Deactivate(ctx); err != nil {
		l.logger.Warn("deactivate attention visuals failed", "error", err)
	}
}

func (l *Layer) State() Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// Enabled reports whether the active profile currently permits attention.
func (l *Layer) Enabled() bool {
	return l.gate.AttentionEnabled()
}

// Close cancels a pending auto-clear without touching mood or visuals.
func (l *Layer) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clear.Cancel()
}
