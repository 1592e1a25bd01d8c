package models

import "time"

const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeDenied  = "denied"

	AuditActionTerminate = "hproc.terminate"
)

// AuditEvent records a privileged action and how it ended.
type AuditEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	PID       int32     `json:"pid"`
	Actor     string    `json:"actor"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
