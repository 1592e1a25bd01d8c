// Package audit stores the outcome of privileged host actions.
package audit

import (
	"context"

	"hostwatch/internal/models"
)

// Store records audit events and lists the most recent ones.
type Store interface {
	Record(ctx context.Context, event models.AuditEvent) error
	Recent(ctx context.Context, limit int) ([]models.AuditEvent, error)
	Close() error
}

// Open returns a SQLite-backed store for path, or an in-memory store when path
// is empty.
func Open(path string, logger Logger) (Store, error) {
	if path == "" {
		return NewMemoryStore(defaultRecentLimit, logger), nil
	}
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}
