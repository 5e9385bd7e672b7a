package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	formRepo   port.FormRepository
	ledgerRepo port.LedgerRepository
	txManager  port.TransactionManager
	resolver   *domainwf.Resolver

	metrics port.TransitionMetrics
	logger  Logger
	now     func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithMetrics records every Execute outcome
func WithMetrics(m port.TransitionMetrics) EngineOption {
	return func(e *engineImpl) {
		e.metrics = m
	}
}

// WithLogger sets a logger for the engine
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for ledger timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	formRepo port.FormRepository,
	ledgerRepo port.LedgerRepository,
	txManager port.TransactionManager,
	resolver *domainwf.Resolver,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		formRepo:   formRepo,
		ledgerRepo: ledgerRepo,
		txManager:  txManager,
		resolver:   resolver,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) Resolver() *domainwf.Resolver {
	return e.resolver
}

// Execute runs one reviewer action
func (e *engineImpl) Execute(ctx context.Context, cmd Command) (result *Result, err error) {
	started := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveTransition(cmd.Kind, cmd.Action.String(), OutcomeOf(err), time.Since(started))
		}
		if err == nil || e.logger == nil {
			return
		}
		if domainwf.KindOf(err) == nil {
			e.logger.Error("Transition failed",
				"form_id", cmd.FormID,
				"kind", cmd.Kind,
				"action", cmd.Action,
				"error", err,
			)
			return
		}
		e.logger.Info("Transition rejected",
			"form_id", cmd.FormID,
			"kind", cmd.Kind,
			"action", cmd.Action,
			"outcome", OutcomeOf(err),
			"reason", domainwf.Reason(err),
		)
	}()

	form, err := e.formRepo.GetByID(ctx, cmd.FormID)
	if err != nil {
		return nil, fmt.Errorf("failed to load form %d: %w", cmd.FormID, err)
	}
	if form == nil || (cmd.Kind != "" && form.Kind != cmd.Kind) {
		return nil, domainwf.NotFound("Form %d was not found", cmd.FormID)
	}

	rule, err := e.resolver.Authorize(cmd.Actor, form, cmd.Action)
	if err != nil {
		return nil, err
	}

	if err := cmd.Payload.Validate(rule); err != nil {
		return nil, err
	}

	at := e.now()
	entry := domainwf.NewLedgerEntry(form, cmd.Actor, rule, cmd.Payload, at)

	var claim *int64
	if rule.Claims && !form.IsClaimed() {
		claim = &cmd.Actor.ID
	}

	var prior []*entity.ApprovalLedgerEntry
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := e.formRepo.CompareAndSetStatus(txCtx, form.ID, rule.From, rule.To, claim, at)
		if err != nil {
			return fmt.Errorf("failed to update form status: %w", err)
		}
		if !ok {
			return domainwf.Conflict("This form has already been actioned by another reviewer. Reload it and try again")
		}

		prior, err = e.ledgerRepo.ListByFormID(txCtx, form.ID)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}

		if err := e.ledgerRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	table, _ := e.resolver.Tables().For(form.Kind)
	updated := afterTransition(form, rule, cmd.Actor, at)

	result = &Result{
		Form:       updated,
		FromStatus: rule.From,
		Entry:      entry,
		Intents: domainwf.NotificationsFor(domainwf.Transition{
			Table:   table,
			Form:    updated,
			From:    rule.From,
			To:      rule.To,
			Actor:   cmd.Actor,
			Payload: cmd.Payload,
			Ledger:  prior,
		}),
		Audit: newAuditEvent(updated, cmd.Actor, rule, entry, at),
	}

	if e.logger != nil {
		e.logger.Info("Form transitioned",
			"form_id", form.ID,
			"kind", form.Kind,
			"from", rule.From,
			"to", rule.To,
			"actor_id", cmd.Actor.ID,
			"notifications", len(result.Intents),
		)
	}

	return result, nil
}
