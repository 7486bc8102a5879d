package domain

import "time"

// MQTT payloads

type MoodState struct {
	RobotID   string    `json:"robot_id"`
	Mood      string    `json:"mood"`
	ChangedAt time.Time `json:"changed_at"`
}

type ProfileState struct {
	RobotID          string `json:"robot_id"`
	Profile          string `json:"profile"`
	AttentionEnabled bool   `json:"attention_enabled"`
	CinematicEnabled bool   `json:"cinematic_enabled"`
	QuickMoodEnabled bool   `json:"quick_mood_enabled"`
	AutoRevertMS     int64  `json:"auto_revert_ms,omitempty"`
}

const (
	AttentionActivate   = "activate"
	AttentionDeactivate = "deactivate"
)

type AttentionCommand struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
}

type CinematicCommand struct {
	RequestID string `json:"request_id"`
	Sequence  string `json:"sequence"`
	Sound     string `json:"sound"`
	PanelMode string `json:"panel_mode"`
	Logic     string `json:"logic"`
}

// Heartbeat is published periodically while terminals are listening.
type Heartbeat struct {
	RobotID         string `json:"robot_id"`
	Profile         string `json:"profile"`
	Mood            string `json:"mood"`
	EventsPending   int    `json:"events_pending"`
	AttentionActive bool   `json:"attention_active"`
	TerminalsOnline int    `json:"terminals_online"`
	TS              string `json:"ts"`
}

// Detection is reported by the perception pipeline (camera, sensors).
type Detection struct {
	Source     string  `json:"source"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ActionEntry is one operator action in the recent-actions log.
type ActionEntry struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
