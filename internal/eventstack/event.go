package eventstack

import (
	"errors"
	"fmt"
	"strings"

	"droidcore/internal/mood"
)

// Kind is the wire name of an event variant.
type Kind string

const (
	KindMood      Kind = "mood"
	KindProfile   Kind = "profile"
	KindCinematic Kind = "cinematic"
	KindQuickMood Kind = "quick_mood"
)

var (
	ErrUnknownKind  = errors.New("unknown event kind")
	ErrEmptyPayload = errors.New("empty event payload")
)

// Event is one queued behavioral instruction. The set of variants is closed:
// MoodEvent, ProfileEvent, CinematicEvent and QuickMoodEvent.
type Event interface {
	Kind() Kind
	Payload() string
	isEvent()
}

// MoodEvent changes the mood, subject to the KidEvent content override.
type MoodEvent struct{ Mood mood.Mood }

// ProfileEvent selects an operating profile.
type ProfileEvent struct{ Profile string }

// CinematicEvent plays a named sequence if the profile allows cinematics when
// the event is reached.
type CinematicEvent struct{ Sequence string }

// QuickMoodEvent changes the mood if the profile allows quick moods when the
// event is reached.
type QuickMoodEvent struct{ Mood mood.Mood }

func (MoodEvent) Kind() Kind      { return KindMood }
func (ProfileEvent) Kind() Kind   { return KindProfile }
func (CinematicEvent) Kind() Kind { return KindCinematic }
func (QuickMoodEvent) Kind() Kind { return KindQuickMood }

func (e MoodEvent) Payload() string      { return string(e.Mood) }
func (e ProfileEvent) Payload() string   { return e.Profile }
func (e CinematicEvent) Payload() string { return e.Sequence }
func (e QuickMoodEvent) Payload() string { return string(e.Mood) }

func (MoodEvent) isEvent()      {}
func (ProfileEvent) isEvent()   {}
func (CinematicEvent) isEvent() {}
func (QuickMoodEvent) isEvent() {}

// Parse validates a (kind, payload) pair from an external producer. Mood
// payloads must name a known mood; profile and cinematic names are checked
// by their owners when the event is handled.
func Parse(kind, payload string) (Event, error) {
	payload = strings.TrimSpace(payload)
	switch Kind(strings.TrimSpace(kind)) {
	case KindMood:
		m, err := mood.Parse(payload)
		if err != nil {
			return nil, err
		}
		return MoodEvent{Mood: m}, nil
	case KindQuickMood:
		m, err := mood.Parse(payload)
		if err != nil {
			return nil, err
		}
		return QuickMoodEvent{Mood: m}, nil
	case KindProfile:
		if payload == "" {
			return nil, fmt.Errorf("%s: %w", KindProfile, ErrEmptyPayload)
		}
		return ProfileEvent{Profile: payload}, nil
	case KindCinematic:
		if payload == "" {
			return nil, fmt.Errorf("%s: %w", KindCinematic, ErrEmptyPayload)
		}
		return CinematicEvent{Sequence: payload}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Pending is the wire form of a queued event.
type Pending struct {
	Kind Kind   `json:"event_type" yaml:"event_type"`
	Data string `json:"event_data" yaml:"event_data"`
}
