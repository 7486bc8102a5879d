package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"droidcore/internal/actionlog"
	"droidcore/internal/attention"
	"droidcore/internal/cinematic"
	"droidcore/internal/domain"
	"droidcore/internal/eventstack"
	"droidcore/internal/mood"
	"droidcore/internal/perception"
	"droidcore/internal/profile"
	"droidcore/internal/sequence"
	"droidcore/internal/terminals"
)

// Deps are the components the service coordinates. All are required except
// Terminals.
type Deps struct {
	Moods      *mood.Manager
	Profiles   *profile.Manager
	Events     *eventstack.Manager
	Attention  *attention.Layer
	Cinematics *cinematic.Dispatcher
	Detector   *perception.Detector
	Sequences  *sequence.Loader
	Actions    *actionlog.Log
	Terminals  *terminals.Registry
}

// Service is the operator-facing facade over the behavior managers. Every
// operator action goes through it so it lands in the recent-actions log.
type Service struct {
	moods      *mood.Manager
	profiles   *profile.Manager
	events     *eventstack.Manager
	attention  *attention.Layer
	cinematics *cinematic.Dispatcher
	detector   *perception.Detector
	sequences  *sequence.Loader
	actions    *actionlog.Log
	terminals  *terminals.Registry
	logger     *slog.Logger

	mu   sync.Mutex
	base context.Context
}

func New(deps Deps, logger *slog.Logger) *Service {
	return &Service{
		moods:      deps.Moods,
		profiles:   deps.Profiles,
		events:     deps.Events,
		attention:  deps.Attention,
		cinematics: deps.Cinematics,
		detector:   deps.Detector,
		sequences:  deps.Sequences,
		actions:    deps.Actions,
		terminals:  deps.Terminals,
		logger:     logger,
		base:       context.Background(),
	}
}

// Run starts the mood ticker and the event consumer and blocks until ctx is
// done. On return no background work is left running.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	s.events.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.moods.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.events.Stop()
		s.events.Wait()
		return nil
	})
	err := g.Wait()

	s.profiles.Close()
	s.attention.Close()
	s.logger.Info("behavior core stopped")
	return err
}

// consumerContext is the lifetime a restarted consumer inherits. It is never
// a request context.
func (s *Service) consumerContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *Service) SetProfile(ctx context.Context, name string) error {
	if err := s.profiles.Set(name); err != nil {
		return err
	}
	s.actions.Record(ctx, "Set Profile: "+name)
	return nil
}

func (s *Service) SetMood(ctx context.Context, name string) error {
	m, err := mood.Parse(name)
	if err != nil {
		return err
	}
	if err := s.moods.Set(m); err != nil {
		return err
	}
	s.actions.Record(ctx, "Set Mood: "+m.String())
	return nil
}

// QuickMood queues a quick_mood event; the profile gate applies when it is
// handled.
func (s *Service) QuickMood(ctx context.Context, name string) error {
	ev, err := eventstack.Parse(string(eventstack.KindQuickMood), name)
	if err != nil {
		return err
	}
	s.events.Enqueue(ev)
	s.actions.Record(ctx, "Triggered Quick Mood: "+ev.Payload())
	return nil
}

func (s *Service) RunCinematic(ctx context.Context, name string) error {
	if err := s.cinematics.Run(ctx, name); err != nil {
		return err
	}
	s.actions.Record(ctx, "Triggered Cinematic: "+name)
	return nil
}

// Enqueue validates a (kind, payload) pair and appends it to the event stack.
func (s *Service) Enqueue(ctx context.Context, kind, payload string) error {
	ev, err := eventstack.Parse(kind, payload)
	if err != nil {
		return err
	}
	s.events.Enqueue(ev)
	s.actions.Record(ctx, fmt.Sprintf("Added Event: %s/%s", ev.Kind(), ev.Payload()))
	return nil
}

// EnqueueEvent is the bus entry point. It does not touch the operator log.
func (s *Service) EnqueueEvent(_ context.Context, kind, payload string) error {
	ev, err := eventstack.Parse(kind, payload)
	if err != nil {
		return err
	}
	s.events.Enqueue(ev)
	return nil
}

func (s *Service) HandleDetection(_ context.Context, det domain.Detection) bool {
	return s.detector.Handle(det)
}

// LoadSequence enqueues every event of the named sequence, or none of them.
func (s *Service) LoadSequence(ctx context.Context, name string) (int, error) {
	events, err := s.sequences.Load(name)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		s.events.Enqueue(ev)
	}
	s.actions.Record(ctx, "Loaded Sequence: "+name)
	return len(events), nil
}

func (s *Service) Sequences() ([]string, error) {
	return s.sequences.List()
}

func (s *Service) PendingEvents() []eventstack.Pending {
	return s.events.Snapshot()
}

// ClearEvents discards pending events and restarts the consumer.
func (s *Service) ClearEvents(ctx context.Context) int {
	dropped := s.events.Stop()
	s.events.Wait()
	s.events.Start(s.consumerContext())
	s.actions.Record(ctx, "Cleared Event Stack")
	return dropped
}

// StartEvents resumes the consumer after StopAll. It reports whether a new
// consumer was started.
func (s *Service) StartEvents(ctx context.Context) bool {
	started := s.events.Start(s.consumerContext())
	if started {
		s.actions.Record(ctx, "Started Event Stack")
	}
	return started
}

// StopAll returns the robot to a calm baseline: default profile, FRIENDLY,
// no pending events and no attention session. The consumer stays halted
// until StartEvents.
func (s *Service) StopAll(ctx context.Context) error {
	// Halt the consumer and let an event it already took finish, so no queued
	// mood lands after FRIENDLY.
	dropped := s.events.Stop()
	s.events.Wait()
	if err := s.profiles.Set(s.profiles.Default()); err != nil {
		return err
	}
	if err := s.moods.Set(mood.Friendly); err != nil {
		return err
	}
	s.attention.ForceClear()
	s.logger.Warn("force stop all", "dropped_events", dropped)
	s.actions.Record(ctx, "Force Stop All")
	return nil
}

func (s *Service) TriggerAttention(ctx context.Context, source, target string) error {
	if source == "" {
		source = "operator"
	}
	if err := s.attention.Trigger(source, target); err != nil {
		return err
	}
	s.actions.Record(ctx, "Triggered Attention: "+target)
	return nil
}

func (s *Service) ClearAttention(ctx context.Context) {
	s.attention.ForceClear()
	s.actions.Record(ctx, "Cleared Attention")
}

// SetPerception flips the operator switch for camera-driven attention.
func (s *Service) SetPerception(ctx context.Context, enabled bool) {
	if enabled {
		s.detector.Enable()
		s.actions.Record(ctx, "Enabled Perception")
		return
	}
	s.detector.Disable()
	s.actions.Record(ctx, "Disabled Perception")
}

func (s *Service) Profiles() []profile.Profile {
	return s.profiles.Profiles()
}

func (s *Service) RecentActions() []domain.ActionEntry {
	return s.actions.Recent()
}

type Status struct {
	Profile       string               `json:"profile"`
	Mood          string               `json:"mood"`
	MoodChangedAt time.Time            `json:"mood_changed_at"`
	Heartbeat     int64                `json:"heartbeat"`
	AutoRevert    profile.RevertStatus `json:"auto_revert"`
	EventsPending int                  `json:"events_pending"`
	EventsRunning bool                 `json:"events_running"`
	Attention     AttentionStatus      `json:"attention"`
	Terminals     []terminals.State    `json:"terminals"`
	Cinematics    []string             `json:"cinematics"`
	Capabilities  map[string]bool      `json:"capabilities"`
}

type AttentionStatus struct {
	PerceptionEnabled bool      `json:"attention_enabled"`
	ProfileAllows     bool      `json:"profile_allows"`
	Active            bool      `json:"attention_active"`
	Target            string    `json:"attention_target"`
	Source            string    `json:"source,omitempty"`
	StartedAt         time.Time `json:"started_at,omitempty"`
}

func (s *Service) AttentionStatus() AttentionStatus {
	st := s.attention.State()
	return AttentionStatus{
		PerceptionEnabled: s.detector.Enabled(),
		ProfileAllows:     s.attention.Enabled(),
		Active:            st.Active,
		Target:            st.Target,
		Source:            st.Source,
		StartedAt:         st.StartedAt,
	}
}

func (s *Service) Status() Status {
	ms := s.moods.State()
	p := s.profiles.Get()
	var terms []terminals.State
	if s.terminals != nil {
		terms = s.terminals.List()
	}
	return Status{
		Profile:       p.Name,
		Mood:          ms.Mood.String(),
		MoodChangedAt: ms.ChangedAt,
		Heartbeat:     time.Now().Unix(),
		AutoRevert:    s.profiles.AutoRevertStatus(),
		EventsPending: s.events.Len(),
		EventsRunning: s.events.Running(),
		Attention:     s.AttentionStatus(),
		Terminals:     terms,
		Cinematics:    s.cinematics.Sequences(),
		Capabilities: map[string]bool{
			"attention":  p.AttentionEnabled,
			"cinematic":  p.CinematicEnabled,
			"quick_mood": p.QuickMoodEnabled,
		},
	}
}
