// Command droid-terminal simulates a hardware terminal (dome, panels, sound
// board) on the MQTT bus: it reports presence, renders what the behavior
// server commands, and can inject detections and events for bench testing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"

	"droidcore/internal/config"
	"droidcore/internal/domain"
	"droidcore/internal/eventstack"
	"droidcore/internal/mqtt"
)

const maxLogLines = 200

type terminalState struct {
	mu              sync.RWMutex
	mood            string
	profile         string
	attentionTarget string
	attentionActive bool
	lastCinematic   string
	logicDisplay    string
	updatedAt       time.Time
	logs            []string
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := config.LoadDroidTerminalConfig()

	state := &terminalState{}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := startMQTT(ctx, cfg, state, logger)
	if err != nil {
		logger.Error("start terminal mqtt failed", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(100)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		snap := state.snapshot()
		snap["terminal_id"] = cfg.TerminalID
		snap["robot_id"] = cfg.RobotID
		writeJSON(w, http.StatusOK, snap)
	})
	r.Post("/detect", func(w http.ResponseWriter, req *http.Request) {
		var det domain.Detection
		if err := json.NewDecoder(req.Body).Decode(&det); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if strings.TrimSpace(det.Label) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
			return
		}
		if det.Source == "" {
			det.Source = cfg.TerminalID
		}
		if err := publishJSON(client, mqtt.TopicDetection(cfg.MQTTTopicPrefix, cfg.RobotID), 0, det); err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		state.appendLog(fmt.Sprintf("%s [detect] %s %.2f", time.Now().Format(time.RFC3339), det.Label, det.Confidence))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/event", func(w http.ResponseWriter, req *http.Request) {
		var ev eventstack.Pending
		if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		if _, err := eventstack.Parse(string(ev.Kind), ev.Data); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := publishJSON(client, mqtt.TopicEvents(cfg.MQTTTopicPrefix, cfg.RobotID), 1, ev); err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		state.appendLog(fmt.Sprintf("%s [event] %s/%s", time.Now().Format(time.RFC3339), ev.Kind, ev.Data))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("droid terminal started", "addr", cfg.HTTPAddr, "terminal_id", cfg.TerminalID)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("droid terminal http error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("droid terminal shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("droid terminal shutdown failed", "error", err)
	}
}

func startMQTT(ctx context.Context, cfg config.DroidTerminalConfig, state *terminalState, logger *slog.Logger) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}

	onlineTopic := mqtt.TopicOnline(cfg.MQTTTopicPrefix, cfg.TerminalID)
	opts.SetWill(onlineTopic, "offline", 1, true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if token := client.Publish(onlineTopic, 1, true, "online"); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	heartbeatTopic := mqtt.TopicHeartbeat(cfg.MQTTTopicPrefix, cfg.TerminalID)
	if token := client.Publish(heartbeatTopic, 0, false, []byte("1")); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	subs := map[string]func([]byte) error{
		mqtt.TopicMoodState(cfg.MQTTTopicPrefix, cfg.RobotID):    state.applyMood,
		mqtt.TopicProfileState(cfg.MQTTTopicPrefix, cfg.RobotID): state.applyProfile,
		mqtt.TopicAttention(cfg.MQTTTopicPrefix, cfg.RobotID):    state.applyAttention,
		mqtt.TopicCinematic(cfg.MQTTTopicPrefix, cfg.RobotID):    state.applyCinematic,
	}
	for topic, apply := range subs {
		apply := apply
		if token := client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
			if err := apply(msg.Payload()); err != nil {
				logger.Warn("invalid robot payload", "topic", msg.Topic(), "error", err)
				state.appendLog(fmt.Sprintf("%s [raw] %s", time.Now().Format(time.RFC3339), strings.TrimSpace(string(msg.Payload()))))
			}
		}); token.Wait() && token.Error() != nil {
			return nil, token.Error()
		}
	}

	go func() {
		heartbeatTicker := time.NewTicker(cfg.HeartbeatInterval)
		defer heartbeatTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeatTicker.C:
				client.Publish(heartbeatTopic, 0, false, []byte("1"))
			}
		}
	}()

	go func() {
		<-ctx.Done()
		client.Publish(onlineTopic, 1, true, "offline")
	}()

	return client, nil
}

func publishJSON(client paho.Client, topic string, qos byte, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := client.Publish(topic, qos, false, buf)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	return token.Error()
}

func (s *terminalState) applyMood(payload []byte) error {
	var st domain.MoodState
	if err := json.Unmarshal(payload, &st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mood = st.Mood
	s.touchLocked("mood: " + st.Mood)
	return nil
}

func (s *terminalState) applyProfile(payload []byte) error {
	var st domain.ProfileState
	if err := json.Unmarshal(payload, &st); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = st.Profile
	s.touchLocked("profile: " + st.Profile)
	return nil
}

func (s *terminalState) applyAttention(payload []byte) error {
	var cmd domain.AttentionCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd.Action {
	case domain.AttentionActivate:
		s.attentionActive = true
		s.attentionTarget = cmd.Target
		s.touchLocked("dome tracking " + cmd.Target)
	case domain.AttentionDeactivate:
		s.attentionActive = false
		s.attentionTarget = ""
		s.touchLocked("dome released")
	default:
		return fmt.Errorf("unknown attention action %q", cmd.Action)
	}
	return nil
}

func (s *terminalState) applyCinematic(payload []byte) error {
	var cmd domain.CinematicCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCinematic = cmd.Sequence
	s.logicDisplay = cmd.Logic
	s.touchLocked(fmt.Sprintf("cinematic %s (sound=%s panels=%s)", cmd.Sequence, cmd.Sound, cmd.PanelMode))
	return nil
}

func (s *terminalState) touchLocked(what string) {
	s.updatedAt = time.Now()
	s.appendLogLocked(fmt.Sprintf("%s %s", s.updatedAt.Format(time.RFC3339), what))
}

func (s *terminalState) snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"mood":             s.mood,
		"profile":          s.profile,
		"attention_active": s.attentionActive,
		"attention_target": s.attentionTarget,
		"last_cinematic":   s.lastCinematic,
		"logic_display":    s.logicDisplay,
		"updated_at":       s.updatedAt,
		"logs":             append([]string(nil), s.logs...),
	}
}

func (s *terminalState) appendLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLogLocked(line)
}

func (s *terminalState) appendLogLocked(line string) {
	s.logs = append(s.logs, line)
	if len(s.logs) > maxLogLines {
		s.logs = s.logs[len(s.logs)-maxLogLines:]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
