package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"droidcore/internal/domain"
	"droidcore/internal/mood"
	"droidcore/internal/profile"
	"droidcore/internal/terminals"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeInbound struct {
	detections []domain.Detection
	events     []string
	err        error
}

func (f *fakeInbound) HandleDetection(_ context.Context, det domain.Detection) bool {
	f.detections = append(f.detections, det)
	return true
}

func (f *fakeInbound) EnqueueEvent(_ context.Context, kind, payload string) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, kind+"="+payload)
	return nil
}

func newDetachedHub(t *testing.T) (*Hub, *fakeInbound, *terminals.Registry) {
	t.Helper()
	reg := terminals.NewRegistry(time.Minute)
	h := NewHub(HubConfig{TopicPrefix: "droid", RobotID: "r2"}, reg, slog.New(slog.DiscardHandler))
	in := &fakeInbound{}
	require.NoError(t, h.Start(context.Background(), in))
	require.False(t, h.Enabled())
	return h, in, reg
}

func TestDetachedPublishesAreDropped(t *testing.T) {
	h, _, _ := newDetachedHub(t)
	ctx := context.Background()

	require.NoError(t, h.Activate(ctx, "person"))
	require.NoError(t, h.Deactivate(ctx))
	require.NoError(t, h.PublishCinematic(ctx, domain.CinematicCommand{Sequence: "Leia_Message"}))
	h.MoodChanged(ctx, mood.State{Mood: mood.Happy, ChangedAt: time.Now()})
	h.ProfileChanged(ctx, profile.Profile{Name: profile.Parade, AutoRevert: 20 * time.Second})
}

func TestHandleDetection(t *testing.T) {
	h, in, _ := newDetachedHub(t)

	h.handleDetection(nil, fakeMessage{topic: TopicDetection("droid", "r2"), payload: []byte(`{"source":"dome_cam","label":"person","confidence":0.82}`)})
	h.handleDetection(nil, fakeMessage{topic: TopicDetection("droid", "r2"), payload: []byte(`not json`)})

	require.Equal(t, []domain.Detection{{Source: "dome_cam", Label: "person", Confidence: 0.82}}, in.detections)
}

func TestHandleEvent(t *testing.T) {
	h, in, _ := newDetachedHub(t)

	h.handleEvent(nil, fakeMessage{topic: TopicEvents("droid", "r2"), payload: []byte(`{"event_type":"mood","event_data":"HAPPY"}`)})
	h.handleEvent(nil, fakeMessage{topic: TopicEvents("droid", "r2"), payload: []byte(`{`)})
	in.err = errors.New("unknown mood")
	h.handleEvent(nil, fakeMessage{topic: TopicEvents("droid", "r2"), payload: []byte(`{"event_type":"mood","event_data":"GRUMPY"}`)})

	require.Equal(t, []string{"mood=HAPPY"}, in.events)
}

func TestHandleTerminalPresence(t *testing.T) {
	h, _, reg := newDetachedHub(t)

	h.handleOnline(nil, fakeMessage{topic: TopicOnline("droid", "dome"), payload: []byte("online")})
	h.handleOnline(nil, fakeMessage{topic: TopicOnline("droid", "panels"), payload: []byte("0")})
	h.handleHeartbeat(nil, fakeMessage{topic: TopicHeartbeat("droid", "sound"), payload: nil})
	h.handleHeartbeat(nil, fakeMessage{topic: "other/terminal/x/heartbeat", payload: nil})

	states := reg.List()
	require.Len(t, states, 3)
	require.Equal(t, "dome", states[0].TerminalID)
	require.True(t, states[0].Online)
	require.Equal(t, "panels", states[1].TerminalID)
	require.False(t, states[1].Online)
	require.Equal(t, "sound", states[2].TerminalID)
	require.True(t, states[2].Online)
}

func TestParseTerminalID(t *testing.T) {
	tests := []struct {
		topic  string
		prefix string
		want   string
		ok     bool
	}{
		{topic: "droid/terminal/dome/online", prefix: "droid", want: "dome", ok: true},
		{topic: "shop/droid/terminal/dome/heartbeat", prefix: "shop/droid", want: "dome", ok: true},
		{topic: "droid/terminal/dome", prefix: "droid"},
		{topic: "other/terminal/dome/online", prefix: "droid"},
		{topic: "droid/robot/r2/online", prefix: "droid"},
		{topic: "droid/terminal//online", prefix: "droid"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := ParseTerminalID(tt.topic, tt.prefix)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTopics(t *testing.T) {
	require.Equal(t, "droid/robot/r2/perception/detection", TopicDetection("droid", "r2"))
	require.Equal(t, "droid/robot/r2/events", TopicEvents("droid", "r2"))
	require.Equal(t, "droid/robot/r2/state/mood", TopicMoodState("droid", "r2"))
	require.Equal(t, "droid/robot/r2/state/profile", TopicProfileState("droid", "r2"))
	require.Equal(t, "droid/robot/r2/attention", TopicAttention("droid", "r2"))
	require.Equal(t, "droid/robot/r2/cinematic", TopicCinematic("droid", "r2"))
	require.Equal(t, "droid/terminal/+/online", TopicTerminalOnline("droid"))
}
