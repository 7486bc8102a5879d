package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type BehaviorServerConfig struct {
	HTTPAddr           string
	RobotID            string
	DBDSN              string
	MQTTBrokerURL      string
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTTopicPrefix    string
	DefaultProfile     string
	MoodTick           time.Duration
	AttentionHold      time.Duration
	EventPace          time.Duration
	EventIdlePoll      time.Duration
	PerceptionCooldown time.Duration
	PerceptionMinConf  float64
	PerceptionLabels   []string
	SequencesDir       string
	RecentActionsLimit int
	TerminalTTL        time.Duration
	HeartbeatInterval  time.Duration
}

// DroidTerminalConfig drives the simulated hardware terminal.
type DroidTerminalConfig struct {
	HTTPAddr          string
	TerminalID        string
	RobotID           string
	HeartbeatInterval time.Duration
	MQTTBrokerURL     string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopicPrefix   string
}

// LoadBehaviorServerConfig reads the environment. knownProfiles is used to
// validate DEFAULT_PROFILE.
func LoadBehaviorServerConfig(knownProfiles []string) (BehaviorServerConfig, error) {
	robotID := getenvDefault("ROBOT_ID", "r2")
	cfg := BehaviorServerConfig{
		HTTPAddr:           getenvDefault("BEHAVIOR_HTTP_ADDR", ":9020"),
		RobotID:            robotID,
		DBDSN:              os.Getenv("DB_DSN"),
		MQTTBrokerURL:      os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:       getenvDefault("MQTT_CLIENT_ID", "behavior-"+robotID),
		MQTTUsername:       os.Getenv("MQTT_USERNAME"),
		MQTTPassword:       os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:    strings.TrimRight(getenvDefault("MQTT_TOPIC_PREFIX", "droid"), "/"),
		DefaultProfile:     getenvDefault("DEFAULT_PROFILE", "LargeCon"),
		MoodTick:           time.Duration(getenvIntDefault("MOOD_TICK_MS", 1000)) * time.Millisecond,
		AttentionHold:      time.Duration(getenvIntDefault("ATTENTION_HOLD_SECONDS", 5)) * time.Second,
		EventPace:          time.Duration(getenvIntDefault("EVENT_PACE_MS", 500)) * time.Millisecond,
		EventIdlePoll:      time.Duration(getenvIntDefault("EVENT_IDLE_POLL_MS", 100)) * time.Millisecond,
		PerceptionCooldown: time.Duration(getenvIntDefault("PERCEPTION_COOLDOWN_SECONDS", 3)) * time.Second,
		PerceptionMinConf:  getenvFloatDefault("PERCEPTION_MIN_CONFIDENCE", 0.5),
		PerceptionLabels:   splitList(os.Getenv("PERCEPTION_LABELS")),
		SequencesDir:       getenvDefault("SEQUENCES_DIR", "./sequences"),
		RecentActionsLimit: getenvIntDefault("RECENT_ACTIONS_LIMIT", 10),
		TerminalTTL:        time.Duration(getenvIntDefault("TERMINAL_TTL_SECONDS", 30)) * time.Second,
		HeartbeatInterval:  time.Duration(getenvIntDefault("HEARTBEAT_INTERVAL_SECONDS", 10)) * time.Second,
	}

	if strings.TrimSpace(cfg.RobotID) == "" {
		return BehaviorServerConfig{}, fmt.Errorf("ROBOT_ID must not be empty")
	}
	if !contains(knownProfiles, cfg.DefaultProfile) {
		return BehaviorServerConfig{}, fmt.Errorf("DEFAULT_PROFILE %q is not a known profile", cfg.DefaultProfile)
	}
	positive := []struct {
		key string
		val time.Duration
	}{
		{"MOOD_TICK_MS", cfg.MoodTick},
		{"ATTENTION_HOLD_SECONDS", cfg.AttentionHold},
		{"EVENT_IDLE_POLL_MS", cfg.EventIdlePoll},
		{"TERMINAL_TTL_SECONDS", cfg.TerminalTTL},
		{"HEARTBEAT_INTERVAL_SECONDS", cfg.HeartbeatInterval},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return BehaviorServerConfig{}, fmt.Errorf("%s must be positive", p.key)
		}
	}
	if cfg.EventPace < 0 {
		return BehaviorServerConfig{}, fmt.Errorf("EVENT_PACE_MS must not be negative")
	}
	if cfg.PerceptionCooldown < 0 {
		return BehaviorServerConfig{}, fmt.Errorf("PERCEPTION_COOLDOWN_SECONDS must not be negative")
	}
	if cfg.PerceptionMinConf < 0 || cfg.PerceptionMinConf > 1 {
		return BehaviorServerConfig{}, fmt.Errorf("PERCEPTION_MIN_CONFIDENCE must be within [0, 1]")
	}
	if cfg.RecentActionsLimit <= 0 {
		return BehaviorServerConfig{}, fmt.Errorf("RECENT_ACTIONS_LIMIT must be positive")
	}

	return cfg, nil
}

func LoadDroidTerminalConfig() DroidTerminalConfig {
	terminalID := getenvDefault("TERMINAL_ID", "dome-sim")
	return DroidTerminalConfig{
		HTTPAddr:          getenvDefault("TERMINAL_HTTP_ADDR", ":9021"),
		TerminalID:        terminalID,
		RobotID:           getenvDefault("ROBOT_ID", "r2"),
		HeartbeatInterval: time.Duration(getenvIntDefault("TERMINAL_HEARTBEAT_INTERVAL_SECONDS", 10)) * time.Second,
		MQTTBrokerURL:     getenvDefault("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:      getenvDefault("TERMINAL_MQTT_CLIENT_ID", "terminal-"+terminalID),
		MQTTUsername:      os.Getenv("MQTT_USERNAME"),
		MQTTPassword:      os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:   strings.TrimRight(getenvDefault("MQTT_TOPIC_PREFIX", "droid"), "/"),
	}
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
