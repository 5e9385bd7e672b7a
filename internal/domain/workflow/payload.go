package workflow

import (
	"strings"
	"time"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// Payload is the reviewer input that accompanies a submit or deny
type Payload struct {
	Comments      string     `json:"comments,omitempty"`
	SignatureURL  string     `json:"signatureUrl,omitempty"`
	SignatureDate *time.Time `json:"signatureDate,omitempty"`
	Score         *int       `json:"score,omitempty"`
}

// Validate checks the payload against what the rule demands
func (p Payload) Validate(rule Rule) error {
	if rule.RequireComments && strings.TrimSpace(p.Comments) == "" {
		return Validation("Comments are required when denying a form")
	}

	if rule.RequireScore {
		if p.Score == nil {
			return Validation("A %s between %d and %d is required to approve", rule.ScoreField, MinScore, MaxScore)
		}
		if *p.Score < MinScore || *p.Score > MaxScore {
			return Validation("%s must be between %d and %d, got %d", rule.ScoreField, MinScore, MaxScore, *p.Score)
		}
	}

	return nil
}

// NewLedgerEntry records actor firing rule on form. The score is kept only on
// rows that require one.
func NewLedgerEntry(form *entity.Form, actor *entity.Admin, rule Rule, p Payload, at time.Time) *entity.ApprovalLedgerEntry {
	entry := &entity.ApprovalLedgerEntry{
		FormID:        form.ID,
		AdminID:       actor.ID,
		ActorRole:     actor.Role,
		Action:        LedgerActionFor(rule),
		FromStatus:    rule.From,
		ToStatus:      rule.To,
		Comments:      p.Comments,
		SignatureURL:  p.SignatureURL,
		SignatureDate: p.SignatureDate,
		CreatedAt:     at,
	}
	if rule.RequireScore && p.Score != nil {
		score := *p.Score
		entry.Score = &score
	}
	return entry
}
