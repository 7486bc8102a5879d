package mood

import (
	"errors"
	"fmt"
	"time"
)

// Mood is the robot's displayed emotional state.
type Mood string

const (
	Neutral  Mood = "NEUTRAL"
	Happy    Mood = "HAPPY"
	Friendly Mood = "FRIENDLY"
	Curious  Mood = "CURIOUS"
	Mad      Mood = "MAD"
	Scared   Mood = "SCARED"
	Excited  Mood = "EXCITED"
	Shy      Mood = "SHY"
	Sleepy   Mood = "SLEEPY"
	Sad      Mood = "SAD"
	Proud    Mood = "PROUD"
	Alert    Mood = "ALERT"
)

// ResetTarget is where transient moods settle once their hold expires.
const ResetTarget = Curious

var ErrUnknownMood = errors.New("unknown mood")

var all = []Mood{
	Neutral, Happy, Friendly, Curious,
	Mad, Scared, Excited, Shy,
	Sleepy, Sad, Proud, Alert,
}

// All returns the fixed mood set in display order.
func All() []Mood {
	return append([]Mood(nil), all...)
}

func (m Mood) Valid() bool {
	for _, v := range all {
		if v == m {
			return true
		}
	}
	return false
}

func (m Mood) String() string {
	return string(m)
}

// Parse matches name exactly against the mood set.
func Parse(name string) (Mood, error) {
	m := Mood(name)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMood, name)
	}
	return m, nil
}

// DefaultHolds are the hold durations of the transient moods.
func DefaultHolds() map[Mood]time.Duration {
	return map[Mood]time.Duration{
		Mad:    8 * time.Second,
		Scared: 8 * time.Second,
		Alert:  5 * time.Second,
	}
}
