package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// Outcome labels reported to metrics
const (
	OutcomeSuccess           = "success"
	OutcomeNotFound          = "not_found"
	OutcomeInvalidTransition = "invalid_transition"
	OutcomeForbidden         = "forbidden"
	OutcomeValidation        = "validation"
	OutcomeConflict          = "conflict"
	OutcomeError             = "error"
)

// OutcomeOf maps an Execute error to its metrics label
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch domainwf.KindOf(err) {
	case domainwf.ErrNotFound:
		return OutcomeNotFound
	case domainwf.ErrInvalidTransition:
		return OutcomeInvalidTransition
	case domainwf.ErrForbidden:
		return OutcomeForbidden
	case domainwf.ErrValidation:
		return OutcomeValidation
	case domainwf.ErrConflict:
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

// afterTransition returns the form as it is once rule has committed
func afterTransition(form *entity.Form, rule domainwf.Rule, actor *entity.Admin, at time.Time) *entity.Form {
	next := *form
	next.Status = rule.To
	next.UpdatedAt = at
	if rule.Claims && !form.IsClaimed() {
		id := actor.ID
		next.CreatedByAdminID = &id
	}
	return &next
}

// newAuditEvent builds the audit record of a committed transition
func newAuditEvent(form *entity.Form, actor *entity.Admin, rule domainwf.Rule, entry *entity.ApprovalLedgerEntry, at time.Time) *entity.AuditEvent {
	adminID := actor.ID
	metadata := map[string]interface{}{
		"from_status":   string(rule.From),
		"to_status":     string(rule.To),
		"actor_role":    string(actor.Role),
		"ledger_action": string(entry.Action),
		"ledger_id":     entry.ID,
		"region_code":   form.RegionCode,
	}
	if form.SBUCode != "" {
		metadata["sbu_code"] = form.SBUCode
	}
	if rule.Claims {
		metadata["claimed"] = true
	}
	if entry.Score != nil {
		metadata[rule.ScoreField] = *entry.Score
	}

	return &entity.AuditEvent{
		ID:         uuid.NewString(),
		AdminID:    &adminID,
		Action:     "form." + rule.Action.String(),
		TargetType: string(form.Kind),
		TargetID:   form.ID,
		Metadata:   metadata,
		OccurredAt: at,
	}
}
