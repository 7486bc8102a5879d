// Package actionlog keeps the bounded list of recent operator actions shown
// on the control surface.
package actionlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"droidcore/internal/domain"
)

const DefaultLimit = 10

// Store mirrors the log so it survives restarts.
type Store interface {
	SaveAction(ctx context.Context, entry domain.ActionEntry, keep int) error
	RecentActions(ctx context.Context, limit int) ([]domain.ActionEntry, error)
}

type Log struct {
	limit  int
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	entries []domain.ActionEntry
}

// New returns a log holding at most limit entries. store may be nil.
func New(limit int, store Store, logger *slog.Logger) *Log {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Log{limit: limit, store: store, logger: logger}
}

// Record prepends msg. Store failures are logged and never returned.
func (l *Log) Record(ctx context.Context, msg string) {
	entry := domain.ActionEntry{Message: msg, At: time.Now()}

	l.mu.Lock()
	l.entries = append([]domain.ActionEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
	l.mu.Unlock()

	l.logger.Info("operator action", "action", msg)
	if l.store == nil {
		return
	}
	if err := l.store.SaveAction(ctx, entry, l.limit); err != nil {
		l.logger.Warn("persist recent action failed", "action", msg, "error", err)
	}
}

// Recent returns the entries newest first.
func (l *Log) Recent() []domain.ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ActionEntry(nil), l.entries...)
}

// Load seeds the log from the store. Without a store it does nothing.
func (l *Log) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	items, err := l.store.RecentActions(ctx, l.limit)
	if err != nil {
		return fmt.Errorf("load recent actions: %w", err)
	}
	if len(items) > l.limit {
		items = items[:l.limit]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]domain.ActionEntry(nil), items...)
	return nil
}
