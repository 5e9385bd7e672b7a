package workflow

import (
	"fmt"
	"strings"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// RecipientSelector names who receives a notification: one admin, or every
// admin holding a role whose scope covers Region.
type RecipientSelector struct {
	AdminID *int64               `json:"admin_id,omitempty"`
	Role    entity.Role          `json:"role,omitempty"`
	Region  *entity.RegionFilter `json:"region,omitempty"`
}

// ByAdmin selects a single admin
func ByAdmin(id int64) RecipientSelector {
	return RecipientSelector{AdminID: &id}
}

// ByRole selects every admin with role, optionally narrowed by region
func ByRole(role entity.Role, region *entity.RegionFilter) RecipientSelector {
	return RecipientSelector{Role: role, Region: region}
}

// Intent is one notification the caller dispatches after commit
type Intent struct {
	Recipient RecipientSelector `json:"recipient"`
	Message   entity.Message    `json:"message"`
}

// Transition is the input to notification fan-out
type Transition struct {
	Table   *Table
	Form    *entity.Form
	From    entity.Status
	To      entity.Status
	Actor   *entity.Admin
	Payload Payload
	// Ledger holds the entries recorded before this transition
	Ledger []*entity.ApprovalLedgerEntry
}

var kindLabels = map[entity.FormKind]string{
	entity.FormKindOnboardRequest: "Onboard request",
	entity.FormKindDataRequest:    "Data request",
}

// NotificationsFor computes the notifications a committed transition produces
func NotificationsFor(t Transition) []Intent {
	var intents []Intent
	form := t.Form

	if stage, ok := t.Table.Stage(t.To); ok {
		intents = append(intents, Intent{
			Recipient: ByRole(stage.Role, stageFilter(stage, form)),
			Message: entity.Message{
				Title:    fmt.Sprintf("%s awaiting review", kindLabel(form.Kind)),
				Message:  fmt.Sprintf("%s is awaiting your review (%s).", describeForm(form), humanStatus(t.To)),
				Category: entity.CategoryInfo,
				FormID:   form.ID,
			},
		})
	}

	switch t.To {
	case entity.StatusApproved:
		intents = append(intents, approvedIntents(t)...)
	case entity.StatusDenied:
		if form.CreatedByAdminID != nil {
			intents = append(intents, Intent{
				Recipient: ByAdmin(*form.CreatedByAdminID),
				Message: entity.Message{
					Title:    fmt.Sprintf("%s denied", kindLabel(form.Kind)),
					Message:  fmt.Sprintf("%s was denied at %s. Comments: %s", describeForm(form), humanStatus(t.From), t.Payload.Comments),
					Category: entity.CategoryWarning,
					FormID:   form.ID,
				},
			})
		}
	default:
		if notifiesCreator(t) {
			intents = append(intents, Intent{
				Recipient: ByAdmin(*form.CreatedByAdminID),
				Message: entity.Message{
					Title:    "Your submission advanced",
					Message:  fmt.Sprintf("%s was approved at %s and moved to %s.", describeForm(form), humanStatus(t.From), humanStatus(t.To)),
					Category: entity.CategorySuccess,
					FormID:   form.ID,
				},
			})
		}
	}

	return intents
}

// IntakeNotifications tells in-scope coordinators about an unclaimed public submission
func IntakeNotifications(table *Table, form *entity.Form) []Intent {
	stage, ok := table.Stage(form.Status)
	if !ok {
		return nil
	}
	return []Intent{{
		Recipient: ByRole(stage.Role, stageFilter(stage, form)),
		Message: entity.Message{
			Title:    fmt.Sprintf("New %s", strings.ToLower(kindLabel(form.Kind))),
			Message:  fmt.Sprintf("%s was submitted publicly and is waiting to be claimed.", describeForm(form)),
			Category: entity.CategoryInfo,
			FormID:   form.ID,
		},
	}}
}

// notifiesCreator is true when a claimant-gated stage approved a form created by someone else
func notifiesCreator(t Transition) bool {
	if t.Form.CreatedByAdminID == nil || (t.Actor != nil && t.Form.IsCreatedBy(t.Actor.ID)) {
		return false
	}
	stage, ok := t.Table.Stage(t.From)
	if !ok {
		return false
	}
	switch stage.Role {
	case entity.RoleCoordinator, entity.RoleManager, entity.RoleSeniorManager:
		return true
	default:
		return false
	}
}

func approvedIntents(t Transition) []Intent {
	form := t.Form
	scoreText := ""
	if t.Payload.Score != nil {
		scoreText = fmt.Sprintf(" with a %s of %d%%", t.Table.ScoreField(), *t.Payload.Score)
	}
	msg := entity.Message{
		Title:    fmt.Sprintf("%s approved", kindLabel(form.Kind)),
		Message:  fmt.Sprintf("%s received final approval%s.", describeForm(form), scoreText),
		Category: entity.CategorySuccess,
		FormID:   form.ID,
	}

	var actorID int64
	if t.Actor != nil {
		actorID = t.Actor.ID
	}

	var intents []Intent
	if form.CreatedByAdminID != nil && *form.CreatedByAdminID != actorID {
		intents = append(intents, Intent{Recipient: ByAdmin(*form.CreatedByAdminID), Message: msg})
	}

	for _, id := range PriorApprovers(t.Ledger) {
		if id == actorID || form.IsCreatedBy(id) {
			continue
		}
		intents = append(intents, Intent{Recipient: ByAdmin(id), Message: msg})
	}

	return intents
}

// PriorApprovers returns, in first-seen order, the distinct admins who moved the
// form forward since it last entered review. Entries before the latest denial
// belong to an earlier round.
func PriorApprovers(ledger []*entity.ApprovalLedgerEntry) []int64 {
	start := 0
	for i, e := range ledger {
		if e.Action == entity.LedgerActionDenied {
			start = i + 1
		}
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range ledger[start:] {
		if e.Action == entity.LedgerActionDenied || seen[e.AdminID] {
			continue
		}
		seen[e.AdminID] = true
		ids = append(ids, e.AdminID)
	}
	return ids
}

func stageFilter(stage Stage, form *entity.Form) *entity.RegionFilter {
	switch stage.Scope {
	case ScopeRegion:
		return &entity.RegionFilter{RegionCode: form.RegionCode}
	case ScopeRegionSBU:
		return &entity.RegionFilter{RegionCode: form.RegionCode, SBUCode: form.SBUCode, MatchSBU: true}
	default:
		return nil
	}
}

func kindLabel(kind entity.FormKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return string(kind)
}

func describeForm(form *entity.Form) string {
	if form.Title != "" {
		return fmt.Sprintf("%s #%d %q", kindLabel(form.Kind), form.ID, form.Title)
	}
	return fmt.Sprintf("%s #%d", kindLabel(form.Kind), form.ID)
}

func humanStatus(s entity.Status) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(string(s), "PENDING_"), "_", " "))
}
