package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"droidcore/internal/domain"
)

// newTestStore opens a store inside a throwaway schema of the database named
// by DB_DSN. Tests are skipped when it is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(admin.Close)

	schema := fmt.Sprintf("droidcore_test_%d", time.Now().UnixNano())
	ident := pgx.Identifier{schema}.Sanitize()
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+ident)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+ident+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	store, err := open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSaveActionPrunesToNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 5; i++ {
		entry := domain.ActionEntry{Message: fmt.Sprintf("Set Mood: %d", i), At: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, store.SaveAction(ctx, entry, 3))
	}

	got, err := store.RecentActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"Set Mood: 4", "Set Mood: 3", "Set Mood: 2"}, messages(got))
	require.True(t, got[0].At.Equal(base.Add(4*time.Second)))
}

func TestRecentActionsBreaksTimestampTiesByInsertOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	for _, msg := range []string{"Force Stop All", "Set Profile: LargeCon", "Set Mood: FRIENDLY"} {
		require.NoError(t, store.SaveAction(ctx, domain.ActionEntry{Message: msg, At: at}, 2))
	}

	got, err := store.RecentActions(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"Set Mood: FRIENDLY", "Set Profile: LargeCon"}, messages(got))

	got, err = store.RecentActions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Set Mood: FRIENDLY"}, messages(got))
}

func TestSaveActionWithoutLimitKeepsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 4; i++ {
		require.NoError(t, store.SaveAction(ctx, domain.ActionEntry{Message: fmt.Sprint(i), At: base.Add(time.Duration(i) * time.Millisecond)}, 0))
	}
	got, err := store.RecentActions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
}

func messages(entries []domain.ActionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}
