package entity

import "time"

// ApprovalLedgerEntry is one immutable record of a successful transition.
// ActorRole is captured when the action happens and is never looked up later.
type ApprovalLedgerEntry struct {
	ID            int64        `json:"id"`
	FormID        int64        `json:"form_id"`
	AdminID       int64        `json:"admin_id"`
	ActorRole     Role         `json:"actor_role"`
	Action        LedgerAction `json:"action"`
	FromStatus    Status       `json:"from_status"`
	ToStatus      Status       `json:"to_status"`
	Comments      string       `json:"comments,omitempty"`
	SignatureURL  string       `json:"signature_url,omitempty"`
	SignatureDate *time.Time   `json:"signature_date,omitempty"`
	Score         *int         `json:"score,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
