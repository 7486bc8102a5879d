// Package cinematic plays pre-approved show sequences: a sound clip, a panel
// animation and a logic-display line, sent to the hardware as one command.
package cinematic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"droidcore/internal/domain"
)

var (
	ErrCinematicsDisabled = errors.New("cinematics disabled by profile")
	ErrUnknownSequence    = errors.New("unknown cinematic sequence")
)

type Sequence struct {
	Name      string `json:"name"`
	Sound     string `json:"sound"`
	PanelMode string `json:"panel_mode"`
	Logic     string `json:"logic"`
}

// DefaultCatalog lists the sequences shipped with the robot.
func DefaultCatalog() []Sequence {
	return []Sequence{
		{Name: "Leia_Message", Sound: "0001_leia_message.mp3", PanelMode: "scroll", Logic: "Leia Organa speaks..."},
		{Name: "Vader_Entrance", Sound: "0002_vader_entrance.mp3", PanelMode: "dramatic", Logic: "Darth Vader Approaches"},
		{Name: "Jawa_Panic", Sound: "0003_jawa_panic.mp3", PanelMode: "panic", Logic: "Jawa! Jawa!"},
		{Name: "Vader_Encounter", Sound: "0004_sad_whistle.mp3", PanelMode: "sad", Logic: "Bow before Vader..."},
	}
}

type Gate interface {
	CinematicEnabled() bool
}

type Publisher interface {
	PublishCinematic(ctx context.Context, cmd domain.CinematicCommand) error
}

type Dispatcher struct {
	order     []string
	sequences map[string]Sequence
	gate      Gate
	publisher Publisher
	logger    *slog.Logger
}

func NewDispatcher(catalog []Sequence, gate Gate, publisher Publisher, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		sequences: make(map[string]Sequence, len(catalog)),
		gate:      gate,
		publisher: publisher,
		logger:    logger,
	}
	for _, seq := range catalog {
		if _, dup := d.sequences[seq.Name]; dup {
			continue
		}
		d.order = append(d.order, seq.Name)
		d.sequences[seq.Name] = seq
	}
	return d
}

// Run publishes the named sequence. The profile gate is read at call time.
func (d *Dispatcher) Run(ctx context.Context, name string) error {
	if !d.gate.CinematicEnabled() {
		d.logger.Info("cinematics disabled in profile, ignoring", "sequence", name)
		return ErrCinematicsDisabled
	}
	seq, ok := d.sequences[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSequence, name)
	}

	cmd := domain.CinematicCommand{
		RequestID: uuid.NewString(),
		Sequence:  seq.Name,
		Sound:     seq.Sound,
		PanelMode: seq.PanelMode,
		Logic:     seq.Logic,
	}
	if err := d.publisher.PublishCinematic(ctx, cmd); err != nil {
		return fmt.Errorf("publish cinematic %s: %w", seq.Name, err)
	}
	d.logger.Info("cinematic started", "sequence", seq.Name, "sound", seq.Sound, "request_id", cmd.RequestID)
	return nil
}

func (d *Dispatcher) Lookup(name string) (Sequence, bool) {
	seq, ok := d.sequences[name]
	return seq, ok
}

// Sequences returns the catalog names in declaration order.
func (d *Dispatcher) Sequences() []string {
	return append([]string(nil), d.order...)
}
