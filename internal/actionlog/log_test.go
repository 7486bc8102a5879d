package actionlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"droidcore/internal/domain"
)

type memStore struct {
	saved   []domain.ActionEntry
	keep    int
	seed    []domain.ActionEntry
	saveErr error
	loadErr error
}

func (m *memStore) SaveAction(_ context.Context, e domain.ActionEntry, keep int) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, e)
	m.keep = keep
	return nil
}

func (m *memStore) RecentActions(_ context.Context, limit int) ([]domain.ActionEntry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.seed) > limit {
		return m.seed[:limit], nil
	}
	return m.seed, nil
}

func messages(entries []domain.ActionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}

func TestRecordKeepsNewestFirstAndBounded(t *testing.T) {
	l := New(3, nil, slog.New(slog.DiscardHandler))
	for i := 1; i <= 5; i++ {
		l.Record(context.Background(), fmt.Sprintf("Mood: %d", i))
	}
	require.Equal(t, []string{"Mood: 5", "Mood: 4", "Mood: 3"}, messages(l.Recent()))
}

func TestDefaultLimit(t *testing.T) {
	l := New(0, nil, slog.New(slog.DiscardHandler))
	for i := 0; i < 15; i++ {
		l.Record(context.Background(), "Stop all")
	}
	require.Len(t, l.Recent(), DefaultLimit)
}

func TestRecentReturnsCopy(t *testing.T) {
	l := New(3, nil, slog.New(slog.DiscardHandler))
	l.Record(context.Background(), "Profile: Parade")
	got := l.Recent()
	got[0].Message = "tampered"
	require.Equal(t, "Profile: Parade", l.Recent()[0].Message)
}

func TestRecordMirrorsToStore(t *testing.T) {
	store := &memStore{}
	l := New(4, store, slog.New(slog.DiscardHandler))
	l.Record(context.Background(), "Cinematic: Leia_Message")
	require.Equal(t, []string{"Cinematic: Leia_Message"}, messages(store.saved))
	require.Equal(t, 4, store.keep)
}

func TestStoreFailureIsNotSurfaced(t *testing.T) {
	store := &memStore{saveErr: errors.New("db gone")}
	l := New(4, store, slog.New(slog.DiscardHandler))
	l.Record(context.Background(), "Mood: HAPPY")
	require.Equal(t, []string{"Mood: HAPPY"}, messages(l.Recent()))
}

func TestLoadSeedsFromStore(t *testing.T) {
	now := time.Now()
	store := &memStore{seed: []domain.ActionEntry{
		{Message: "b", At: now},
		{Message: "a", At: now.Add(-time.Second)},
	}}
	l := New(4, store, slog.New(slog.DiscardHandler))
	require.NoError(t, l.Load(context.Background()))
	require.Equal(t, []string{"b", "a"}, messages(l.Recent()))

	store.loadErr = errors.New("db gone")
	require.ErrorContains(t, l.Load(context.Background()), "db gone")

	require.NoError(t, New(4, nil, slog.New(slog.DiscardHandler)).Load(context.Background()))
}
