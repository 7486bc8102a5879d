package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"droidcore/internal/domain"
	"droidcore/internal/eventstack"
	"droidcore/internal/mood"
	"droidcore/internal/profile"
	"droidcore/internal/terminals"
)

type HubConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	RobotID        string
	PublishTimeout time.Duration
}

// Inbound receives what the robot hears over MQTT.
type Inbound interface {
	HandleDetection(ctx context.Context, det domain.Detection) bool
	EnqueueEvent(ctx context.Context, kind, payload string) error
}

// Hub connects the behavior core to the robot's hardware bus. Without a
// broker URL it runs detached: publishes are logged and dropped.
type Hub struct {
	cfg      HubConfig
	client   paho.Client
	registry *terminals.Registry
	inbound  Inbound
	logger   *slog.Logger
}

func NewHub(cfg HubConfig, registry *terminals.Registry, logger *slog.Logger) *Hub {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Hub{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

func (h *Hub) Enabled() bool {
	return h.cfg.BrokerURL != ""
}

func (h *Hub) Start(ctx context.Context, inbound Inbound) error {
	h.inbound = inbound
	if !h.Enabled() {
		h.logger.Info("mqtt disabled, running without hardware bus")
		return nil
	}

	opts := paho.NewClientOptions().
		AddBroker(h.cfg.BrokerURL).
		SetClientID(h.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if h.cfg.Username != "" {
		opts.SetUsername(h.cfg.Username)
		opts.SetPassword(h.cfg.Password)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		h.logger.Error("mqtt connection lost", "error", err)
	})
	// Subscriptions are not persisted by the broker for clean sessions, so
	// they are renewed on every (re)connect.
	opts.SetOnConnectHandler(func(paho.Client) {
		if err := h.subscribeHandlers(); err != nil {
			h.logger.Error("mqtt subscribe failed", "error", err)
		}
	})

	h.client = paho.NewClient(opts)
	if token := h.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	h.logger.Info("mqtt connected", "broker", h.cfg.BrokerURL, "robot_id", h.cfg.RobotID)

	go func() {
		<-ctx.Done()
		h.client.Disconnect(100)
	}()

	return nil
}

func (h *Hub) subscribeHandlers() error {
	prefix, robot := h.cfg.TopicPrefix, h.cfg.RobotID
	if token := h.client.Subscribe(TopicDetection(prefix, robot), 0, h.handleDetection); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicEvents(prefix, robot), 1, h.handleEvent); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalOnline(prefix), 1, h.handleOnline); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := h.client.Subscribe(TopicTerminalHeartbeat(prefix), 0, h.handleHeartbeat); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (h *Hub) handleDetection(_ paho.Client, msg paho.Message) {
	var det domain.Detection
	if err := json.Unmarshal(msg.Payload(), &det); err != nil {
		h.logger.Warn("invalid detection payload", "topic", msg.Topic(), "error", err)
		return
	}
	if h.inbound == nil {
		return
	}
	h.inbound.HandleDetection(context.Background(), det)
}

func (h *Hub) handleEvent(_ paho.Client, msg paho.Message) {
	var req eventstack.Pending
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		h.logger.Warn("invalid event payload", "topic", msg.Topic(), "error", err)
		return
	}
	if h.inbound == nil {
		return
	}
	if err := h.inbound.EnqueueEvent(context.Background(), string(req.Kind), req.Data); err != nil {
		h.logger.Warn("rejected event from bus", "event_type", req.Kind, "event_data", req.Data, "error", err)
	}
}

func (h *Hub) handleOnline(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid online topic", "topic", msg.Topic(), "error", err)
		return
	}

	online := parseOnline(msg.Payload())
	h.registry.SetOnline(terminalID, online)
	h.logger.Info("terminal online status", "terminal_id", terminalID, "online", online)
}

func (h *Hub) handleHeartbeat(_ paho.Client, msg paho.Message) {
	terminalID, err := ParseTerminalID(msg.Topic(), h.cfg.TopicPrefix)
	if err != nil {
		h.logger.Warn("skip invalid heartbeat topic", "topic", msg.Topic(), "error", err)
		return
	}
	h.registry.Touch(terminalID)
}

// MoodChanged publishes the retained mood state.
func (h *Hub) MoodChanged(ctx context.Context, st mood.State) {
	payload := domain.MoodState{RobotID: h.cfg.RobotID, Mood: string(st.Mood), ChangedAt: st.ChangedAt}
	if err := h.publish(ctx, TopicMoodState(h.cfg.TopicPrefix, h.cfg.RobotID), true, payload); err != nil {
		h.logger.Warn("publish mood state failed", "mood", st.Mood, "error", err)
	}
}

// ProfileChanged publishes the retained profile state.
func (h *Hub) ProfileChanged(ctx context.Context, p profile.Profile) {
	payload := domain.ProfileState{
		RobotID:          h.cfg.RobotID,
		Profile:          p.Name,
		AttentionEnabled: p.AttentionEnabled,
		CinematicEnabled: p.CinematicEnabled,
		QuickMoodEnabled: p.QuickMoodEnabled,
		AutoRevertMS:     p.AutoRevert.Milliseconds(),
	}
	if err := h.publish(ctx, TopicProfileState(h.cfg.TopicPrefix, h.cfg.RobotID), true, payload); err != nil {
		h.logger.Warn("publish profile state failed", "profile", p.Name, "error", err)
	}
}

// Activate points the dome and lights at target.
func (h *Hub) Activate(ctx context.Context, target string) error {
	return h.publish(ctx, TopicAttention(h.cfg.TopicPrefix, h.cfg.RobotID), false, domain.AttentionCommand{
		RequestID: uuid.NewString(),
		Action:    domain.AttentionActivate,
		Target:    target,
	})
}

func (h *Hub) Deactivate(ctx context.Context) error {
	return h.publish(ctx, TopicAttention(h.cfg.TopicPrefix, h.cfg.RobotID), false, domain.AttentionCommand{
		RequestID: uuid.NewString(),
		Action:    domain.AttentionDeactivate,
	})
}

func (h *Hub) PublishCinematic(ctx context.Context, cmd domain.CinematicCommand) error {
	return h.publish(ctx, TopicCinematic(h.cfg.TopicPrefix, h.cfg.RobotID), false, cmd)
}

func (h *Hub) PublishHeartbeat(ctx context.Context, hb domain.Heartbeat) error {
	hb.RobotID = h.cfg.RobotID
	return h.publish(ctx, TopicRobotHeartbeat(h.cfg.TopicPrefix, h.cfg.RobotID), false, hb)
}

func (h *Hub) publish(ctx context.Context, topic string, retained bool, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if h.client == nil {
		h.logger.Debug("mqtt detached, dropping publish", "topic", topic, "payload", string(body))
		return nil
	}

	token := h.client.Publish(topic, 1, retained, body)
	timer := time.NewTimer(h.cfg.PublishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish %s: timeout", topic)
	}
}
