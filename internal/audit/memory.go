package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostwatch/internal/models"
)

// Logger is the subset of utils.Logger the audit sinks need.
type Logger interface {
	Infof(format string, args ...any)
}

// MemoryStore keeps the most recent events in a bounded ring and mirrors each
// one to the log. Used when no audit database is configured.
type MemoryStore struct {
	mu     sync.Mutex
	events []models.AuditEvent
	max    int
	logger Logger
}

func NewMemoryStore(max int, logger Logger) *MemoryStore {
	if max <= 0 {
		max = defaultRecentLimit
	}
	return &MemoryStore{max: max, logger: logger}
}

func (m *MemoryStore) Record(_ context.Context, event models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	m.mu.Lock()
	m.events = append(m.events, event)
	if len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	m.mu.Unlock()
	if m.logger != nil {
		m.logger.Infof("Audit: action=%s pid=%d actor=%s outcome=%s reason=%q",
			event.Action, event.PID, event.Actor, event.Outcome, event.Reason)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]models.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]models.AuditEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
