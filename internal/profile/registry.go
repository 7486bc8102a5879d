package profile

import (
	"errors"
	"time"
)

const (
	LargeCon  = "LargeCon"
	PhotoOp   = "PhotoOp"
	KidEvent  = "KidEvent"
	Parade    = "Parade"
	Sleepy    = "Sleepy"
	Emergency = "Emergency"
)

// DefaultName is the initial profile and the target of every auto-revert.
const DefaultName = LargeCon

var ErrUnknownProfile = errors.New("unknown profile")

// Profile is a named bundle of behavior permissions. A zero AutoRevert means
// the profile persists until replaced.
type Profile struct {
	Name             string        `json:"name"`
	AttentionEnabled bool          `json:"attention_enabled"`
	CinematicEnabled bool          `json:"cinematic_enabled"`
	QuickMoodEnabled bool          `json:"quick_mood_enabled"`
	AutoRevert       time.Duration `json:"auto_revert"`
}

// DefaultRegistry is the static set of operating profiles.
func DefaultRegistry() []Profile {
	return []Profile{
		{Name: LargeCon, AttentionEnabled: true, QuickMoodEnabled: true},
		{Name: PhotoOp, AttentionEnabled: true, CinematicEnabled: true, QuickMoodEnabled: true},
		{Name: KidEvent, AttentionEnabled: true, QuickMoodEnabled: true},
		{Name: Parade, AutoRevert: 20 * time.Second},
		{Name: Sleepy},
		{Name: Emergency},
	}
}
