package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"droidcore/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return open(ctx, cfg)
}

func open(ctx context.Context, cfg *pgxpool.Config) (*Store, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS recent_actions (
			id BIGSERIAL PRIMARY KEY,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recent_actions_created ON recent_actions(created_at DESC);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// SaveAction inserts entry and prunes the table to the keep newest rows.
func (s *Store) SaveAction(ctx context.Context, entry domain.ActionEntry, keep int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO recent_actions(message, created_at)
		VALUES ($1, $2)
	`, entry.Message, entry.At); err != nil {
		return err
	}
	if keep > 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM recent_actions
			WHERE id NOT IN (
				SELECT id FROM recent_actions
				ORDER BY created_at DESC, id DESC
				LIMIT $1
			)
		`, keep); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// RecentActions returns up to limit entries, newest first.
func (s *Store) RecentActions(ctx context.Context, limit int) ([]domain.ActionEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message, created_at
		FROM recent_actions
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ActionEntry, 0, limit)
	for rows.Next() {
		var e domain.ActionEntry
		if err := rows.Scan(&e.Message, &e.At); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
