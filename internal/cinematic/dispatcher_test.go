package cinematic

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"droidcore/internal/domain"
)

type gate bool

func (g gate) CinematicEnabled() bool { return bool(g) }

type capture struct {
	cmds []domain.CinematicCommand
	err  error
}

func (c *capture) PublishCinematic(_ context.Context, cmd domain.CinematicCommand) error {
	if c.err != nil {
		return c.err
	}
	c.cmds = append(c.cmds, cmd)
	return nil
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		seq     string
		wantErr error
		want    Sequence
	}{
		{name: "leia", enabled: true, seq: "Leia_Message", want: Sequence{Name: "Leia_Message", Sound: "0001_leia_message.mp3", PanelMode: "scroll", Logic: "Leia Organa speaks..."}},
		{name: "encounter", enabled: true, seq: "Vader_Encounter", want: Sequence{Name: "Vader_Encounter", Sound: "0004_sad_whistle.mp3", PanelMode: "sad", Logic: "Bow before Vader..."}},
		{name: "disabled", enabled: false, seq: "Leia_Message", wantErr: ErrCinematicsDisabled},
		{name: "unknown", enabled: true, seq: "Cantina_Band", wantErr: ErrUnknownSequence},
		{name: "disabled wins over unknown", enabled: false, seq: "Cantina_Band", wantErr: ErrCinematicsDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &capture{}
			d := NewDispatcher(DefaultCatalog(), gate(tt.enabled), pub, slog.New(slog.DiscardHandler))

			err := d.Run(context.Background(), tt.seq)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "err=%v", err)
				require.Empty(t, pub.cmds)
				return
			}
			require.NoError(t, err)
			require.Len(t, pub.cmds, 1)
			cmd := pub.cmds[0]
			require.Equal(t, tt.want.Name, cmd.Sequence)
			require.Equal(t, tt.want.Sound, cmd.Sound)
			require.Equal(t, tt.want.PanelMode, cmd.PanelMode)
			require.Equal(t, tt.want.Logic, cmd.Logic)
			_, err = uuid.Parse(cmd.RequestID)
			require.NoError(t, err)
		})
	}
}

func TestRunPublishFailure(t *testing.T) {
	pub := &capture{err: errors.New("broker down")}
	d := NewDispatcher(DefaultCatalog(), gate(true), pub, slog.New(slog.DiscardHandler))
	err := d.Run(context.Background(), "Jawa_Panic")
	require.ErrorContains(t, err, "broker down")
}

func TestSequencesKeepOrderAndSkipDuplicates(t *testing.T) {
	catalog := append(DefaultCatalog(), Sequence{Name: "Leia_Message", Sound: "other.mp3"})
	d := NewDispatcher(catalog, gate(true), &capture{}, slog.New(slog.DiscardHandler))
	require.Equal(t, []string{"Leia_Message", "Vader_Entrance", "Jawa_Panic", "Vader_Encounter"}, d.Sequences())

	seq, ok := d.Lookup("Leia_Message")
	require.True(t, ok)
	require.Equal(t, "0001_leia_message.mp3", seq.Sound)
}
