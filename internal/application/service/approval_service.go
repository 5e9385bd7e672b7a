package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/partner-review/internal/application/dispatcher"
	"github.com/garyjia/partner-review/internal/application/port"
	appwf "github.com/garyjia/partner-review/internal/application/workflow"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
	"github.com/garyjia/partner-review/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// FormInput is the author-editable part of a form
type FormInput struct {
	RegionCode string `json:"region_code"`
	SBUCode    string `json:"sbu_code"`
	Title      string `json:"title"`
	Payload    string `json:"payload"`
}

// ApprovalService manages forms and their review
type ApprovalService interface {
	CreateDraft(ctx context.Context, actor *entity.Admin, kind entity.FormKind, in FormInput) (*entity.Form, error)
	CreatePublicSubmission(ctx context.Context, kind entity.FormKind, in FormInput) (*entity.Form, error)
	UpdatePayload(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, title, payload string) (*entity.Form, error)

	Submit(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, payload domainwf.Payload) (*entity.Form, error)
	Deny(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, payload domainwf.Payload) (*entity.Form, error)

	GetForm(ctx context.Context, kind entity.FormKind, id int64) (*entity.Form, error)
	ListForms(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error)
	GetLedger(ctx context.Context, kind entity.FormKind, id int64) ([]*entity.ApprovalLedgerEntry, error)
	Inbox(ctx context.Context, actor *entity.Admin, kind entity.FormKind) ([]*entity.Form, error)

	Reassign(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, regionCode, sbuCode string) (*entity.Form, error)
}

type approvalServiceImpl struct {
	formRepo   port.FormRepository
	ledgerRepo port.LedgerRepository
	engine     appwf.WorkflowEngine
	dispatcher dispatcher.Dispatcher
	logger     Logger
}

// NewApprovalService creates a new ApprovalService. Events are published to
// d after each committed change; d may be nil.
func NewApprovalService(
	formRepo port.FormRepository,
	ledgerRepo port.LedgerRepository,
	engine appwf.WorkflowEngine,
	d dispatcher.Dispatcher,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		formRepo:   formRepo,
		ledgerRepo: ledgerRepo,
		engine:     engine,
		dispatcher: d,
		logger:     logger,
	}
}

// CreateDraft creates a form in DRAFT owned by actor
func (s *approvalServiceImpl) CreateDraft(ctx context.Context, actor *entity.Admin, kind entity.FormKind, in FormInput) (*entity.Form, error) {
	if actor == nil {
		return nil, domainwf.Forbidden("You must be signed in to create forms")
	}

	form, err := s.newForm(kind, in)
	if err != nil {
		return nil, err
	}
	form.Status = entity.StatusDraft
	creator := actor.ID
	form.CreatedByAdminID = &creator

	if err := s.engine.Resolver().AuthorizeAuthor(actor, form); err != nil {
		return nil, err
	}

	if err := s.formRepo.Create(ctx, form); err != nil {
		s.logger.Error("Failed to create form", "error", err, "kind", kind)
		return nil, fmt.Errorf("create form: %w", err)
	}

	s.logger.Info("Draft created", "form_id", form.ID, "kind", kind, "admin_id", actor.ID)

	s.publish(ctx, event.NewEvent(event.TypeFormCreated, form, map[string]interface{}{
		event.PayloadAudit: newAudit(actor, "form.create", form, map[string]interface{}{
			"status": string(form.Status),
		}),
	}))

	return form, nil
}

// CreatePublicSubmission records an unauthenticated submission waiting to be claimed
func (s *approvalServiceImpl) CreatePublicSubmission(ctx context.Context, kind entity.FormKind, in FormInput) (*entity.Form, error) {
	table, ok := s.engine.Resolver().Tables().For(kind)
	if !ok {
		return nil, domainwf.NotFound("Unknown form kind %q", kind)
	}
	intake, ok := intakeStatus(table)
	if !ok {
		return nil, domainwf.Validation("%s forms cannot be submitted publicly", kind)
	}

	form, err := s.newForm(kind, in)
	if err != nil {
		return nil, err
	}
	form.Status = intake

	if err := s.formRepo.Create(ctx, form); err != nil {
		s.logger.Error("Failed to create public submission", "error", err, "kind", kind)
		return nil, fmt.Errorf("create form: %w", err)
	}

	s.logger.Info("Public submission received", "form_id", form.ID, "kind", kind, "region", form.RegionCode, "sbu", form.SBUCode)

	s.publish(ctx, event.NewEvent(event.TypeFormCreated, form, map[string]interface{}{
		event.PayloadIntents: domainwf.IntakeNotifications(table, form),
		event.PayloadAudit: newAudit(nil, "form.public_submit", form, map[string]interface{}{
			"status": string(form.Status),
		}),
	}))

	return form, nil
}

// UpdatePayload lets the creator edit a form while it is DRAFT or DENIED
func (s *approvalServiceImpl) UpdatePayload(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, title, payload string) (*entity.Form, error) {
	form, err := s.GetForm(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if actor == nil || !form.IsCreatedBy(actor.ID) {
		return nil, domainwf.Forbidden("Only the creator of this form can edit it")
	}
	if form.Status != entity.StatusDraft && form.Status != entity.StatusDenied {
		return nil, domainwf.InvalidTransition("Cannot edit a form that is %s", form.Status)
	}

	title = utils.SanitizeTitle(title)
	if title == "" {
		return nil, domainwf.Validation("Title is required")
	}
	if err := utils.ValidatePayload(payload); err != nil {
		return nil, domainwf.Validation("%s", err.Error())
	}

	ok, err := s.formRepo.UpdateContent(ctx, id, form.Status, title, payload)
	if err != nil {
		s.logger.Error("Failed to update form", "error", err, "form_id", id)
		return nil, fmt.Errorf("update form: %w", err)
	}
	if !ok {
		return nil, domainwf.Conflict("This form changed while you were editing it. Reload it and try again")
	}

	form.Title = title
	form.Payload = payload
	form.UpdatedAt = time.Now()

	s.publish(ctx, event.NewEvent(event.TypeFormUpdated, form, map[string]interface{}{
		event.PayloadAudit: newAudit(actor, "form.update", form, nil),
	}))

	return form, nil
}

// Submit moves a form forward one stage
func (s *approvalServiceImpl) Submit(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, payload domainwf.Payload) (*entity.Form, error) {
	return s.transition(ctx, actor, kind, id, domainwf.ActionSubmit, payload)
}

// Deny sends a form to DENIED
func (s *approvalServiceImpl) Deny(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, payload domainwf.Payload) (*entity.Form, error) {
	return s.transition(ctx, actor, kind, id, domainwf.ActionDeny, payload)
}

func (s *approvalServiceImpl) transition(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, action domainwf.Action, payload domainwf.Payload) (*entity.Form, error) {
	if err := utils.ValidateSignatureURL(payload.SignatureURL); err != nil {
		return nil, domainwf.Validation("%s", err.Error())
	}

	result, err := s.engine.Execute(ctx, appwf.Command{
		FormID:  id,
		Kind:    kind,
		Actor:   actor,
		Action:  action,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	// Committed. Side effects below are best effort.
	s.publish(ctx, event.NewEvent(event.TypeFormTransitioned, result.Form, map[string]interface{}{
		event.PayloadIntents:    result.Intents,
		event.PayloadAudit:      result.Audit,
		event.PayloadFromStatus: result.FromStatus,
		event.PayloadToStatus:   result.Form.Status,
		event.PayloadActorID:    actor.ID,
	}))

	return result.Form, nil
}

// GetForm returns a form of kind
func (s *approvalServiceImpl) GetForm(ctx context.Context, kind entity.FormKind, id int64) (*entity.Form, error) {
	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get form", "error", err, "form_id", id)
		return nil, fmt.Errorf("get form: %w", err)
	}
	if form == nil || form.Kind != kind {
		return nil, domainwf.NotFound("Form %d was not found", id)
	}
	return form, nil
}

// ListForms lists forms matching filter
func (s *approvalServiceImpl) ListForms(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domainwf.Validation("Unknown status %q", filter.Status)
	}

	forms, err := s.formRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list forms", "error", err)
		return nil, fmt.Errorf("list forms: %w", err)
	}
	return forms, nil
}

// GetLedger returns the approval history of a form, oldest first
func (s *approvalServiceImpl) GetLedger(ctx context.Context, kind entity.FormKind, id int64) ([]*entity.ApprovalLedgerEntry, error) {
	if _, err := s.GetForm(ctx, kind, id); err != nil {
		return nil, err
	}

	entries, err := s.ledgerRepo.ListByFormID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get ledger", "error", err, "form_id", id)
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return entries, nil
}

// Inbox lists pending forms of kind the actor may act on right now
func (s *approvalServiceImpl) Inbox(ctx context.Context, actor *entity.Admin, kind entity.FormKind) ([]*entity.Form, error) {
	resolver := s.engine.Resolver()
	table, ok := resolver.Tables().For(kind)
	if !ok {
		return nil, domainwf.NotFound("Unknown form kind %q", kind)
	}

	var inbox []*entity.Form
	for _, status := range table.PendingStatuses() {
		forms, err := s.formRepo.List(ctx, entity.FormFilter{Kind: kind, Status: status})
		if err != nil {
			s.logger.Error("Failed to list forms for inbox", "error", err, "status", status)
			return nil, fmt.Errorf("list forms: %w", err)
		}
		for _, f := range forms {
			if resolver.CanAct(actor, f) {
				inbox = append(inbox, f)
			}
		}
	}
	return inbox, nil
}

// Reassign moves a live form to another region and business unit. Only FULL
// may do this and it bypasses the transition table.
func (s *approvalServiceImpl) Reassign(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, regionCode, sbuCode string) (*entity.Form, error) {
	if actor == nil || actor.Role != entity.RoleFull {
		return nil, domainwf.Forbidden("Only full administrators can reassign forms")
	}

	regionCode = strings.TrimSpace(regionCode)
	sbuCode = strings.TrimSpace(sbuCode)
	if err := validateScope(regionCode, sbuCode); err != nil {
		return nil, err
	}

	form, err := s.GetForm(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if form.Status.IsTerminal() {
		return nil, domainwf.InvalidTransition("Cannot reassign a form that is %s", form.Status)
	}

	now := time.Now()
	ok, err := s.formRepo.UpdateRegion(ctx, id, form.Status, regionCode, sbuCode, now)
	if err != nil {
		s.logger.Error("Failed to reassign form", "error", err, "form_id", id)
		return nil, fmt.Errorf("reassign form: %w", err)
	}
	if !ok {
		return nil, domainwf.Conflict("This form was actioned while you were reassigning it. Reload it and try again")
	}

	audit := newAudit(actor, "form.reassign", form, map[string]interface{}{
		"from_region": form.RegionCode,
		"from_sbu":    form.SBUCode,
		"to_region":   regionCode,
		"to_sbu":      sbuCode,
	})

	form.RegionCode = regionCode
	form.SBUCode = sbuCode
	form.UpdatedAt = now

	s.logger.Info("Form reassigned", "form_id", id, "region", regionCode, "sbu", sbuCode, "admin_id", actor.ID)
	s.publish(ctx, event.NewEvent(event.TypeFormReassigned, form, map[string]interface{}{
		event.PayloadAudit: audit,
	}))

	return form, nil
}

func (s *approvalServiceImpl) newForm(kind entity.FormKind, in FormInput) (*entity.Form, error) {
	if _, ok := s.engine.Resolver().Tables().For(kind); !ok {
		return nil, domainwf.NotFound("Unknown form kind %q", kind)
	}

	region := strings.TrimSpace(in.RegionCode)
	sbu := strings.TrimSpace(in.SBUCode)
	if err := validateScope(region, sbu); err != nil {
		return nil, err
	}

	title := utils.SanitizeTitle(in.Title)
	if title == "" {
		return nil, domainwf.Validation("Title is required")
	}
	if err := utils.ValidatePayload(in.Payload); err != nil {
		return nil, domainwf.Validation("%s", err.Error())
	}

	now := time.Now()
	return &entity.Form{
		Kind:       kind,
		RegionCode: region,
		SBUCode:    sbu,
		Title:      title,
		Payload:    in.Payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// publish dispatches evt after commit. Handler failures are logged only.
func (s *approvalServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Post-commit handlers failed",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"form_id", evt.FormID,
			"error", err,
		)
	}
}

func validateScope(region, sbu string) error {
	if region == "" {
		return domainwf.Validation("Region is required")
	}
	if err := utils.ValidateCode("region", region); err != nil {
		return domainwf.Validation("%s", err.Error())
	}
	if sbu != "" {
		if err := utils.ValidateCode("business unit", sbu); err != nil {
			return domainwf.Validation("%s", err.Error())
		}
	}
	return nil
}

// intakeStatus returns the claim stage of a table, if it has one
func intakeStatus(table *domainwf.Table) (entity.Status, bool) {
	for _, rule := range table.Rules() {
		if rule.Claims {
			return rule.From, true
		}
	}
	return "", false
}

func newAudit(actor *entity.Admin, action string, form *entity.Form, metadata map[string]interface{}) *entity.AuditEvent {
	evt := &entity.AuditEvent{
		ID:         uuid.NewString(),
		Action:     action,
		TargetType: string(form.Kind),
		TargetID:   form.ID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if actor != nil {
		id := actor.ID
		evt.AdminID = &id
	}
	return evt
}
