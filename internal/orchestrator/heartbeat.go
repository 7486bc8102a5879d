package orchestrator

import (
	"context"
	"time"

	"droidcore/internal/domain"
)

// HeartbeatPublisher carries the periodic robot heartbeat to terminals.
type HeartbeatPublisher interface {
	PublishHeartbeat(ctx context.Context, hb domain.Heartbeat) error
}

// RunHeartbeat publishes a heartbeat every interval while at least one
// terminal is online. It returns when ctx is done.
func (s *Service) RunHeartbeat(ctx context.Context, publisher HeartbeatPublisher, interval time.Duration) {
	if publisher == nil || s.terminals == nil {
		return
	}
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("heartbeat publisher started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case tickAt := <-ticker.C:
			s.publishHeartbeat(ctx, publisher, tickAt.UTC())
		}
	}
}

func (s *Service) publishHeartbeat(ctx context.Context, publisher HeartbeatPublisher, now time.Time) {
	online := 0
	for _, st := range s.terminals.List() {
		if st.Online {
			online++
		}
	}
	if online == 0 {
		return
	}

	hb := domain.Heartbeat{
		Profile:         s.profiles.Name(),
		Mood:            s.moods.Get().String(),
		EventsPending:   s.events.Len(),
		AttentionActive: s.attention.State().Active,
		TerminalsOnline: online,
		TS:              now.Format(time.RFC3339Nano),
	}
	if err := publisher.PublishHeartbeat(ctx, hb); err != nil {
		s.logger.Warn("heartbeat tick: publish failed", "error", err)
	}
}
