package entity

import "time"

// AuditEvent is the structured record forwarded to the audit sink once per
// committed transition.
type AuditEvent struct {
	ID         string                 `json:"id"`
	AdminID    *int64                 `json:"admin_id,omitempty"`
	Action     string                 `json:"action"`
	TargetType string                 `json:"target_type"`
	TargetID   int64                  `json:"target_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}
