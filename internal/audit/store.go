package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hostwatch/internal/models"
)

const defaultRecentLimit = 100

// SQLiteStore persists audit events.
type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

// Record inserts event, assigning an id and timestamp when missing.
func (s *SQLiteStore) Record(ctx context.Context, event models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, pid, actor, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Action, event.PID, event.Actor, event.Outcome, event.Reason, event.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, action, pid, actor, outcome, reason, created_at
		 FROM audit_events
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := []models.AuditEvent{}
	for rows.Next() {
		var e models.AuditEvent
		var created int64
		if err := rows.Scan(&e.ID, &e.Action, &e.PID, &e.Actor, &e.Outcome, &e.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.DB.Close()
}
