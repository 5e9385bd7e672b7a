package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
)

// AuditService forwards audit events to every configured sink
type AuditService interface {
	Record(ctx context.Context, evt *entity.AuditEvent) error

	// HandleEvent records the audit event carried by a domain event
	HandleEvent(ctx context.Context, evt *event.Event) error
}

type auditServiceImpl struct {
	sinks  []port.AuditSink
	logger Logger
}

// NewAuditService creates a new AuditService. Nil sinks are skipped.
func NewAuditService(logger Logger, sinks ...port.AuditSink) AuditService {
	s := &auditServiceImpl{logger: logger}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// Record sends evt to every sink. All sinks are tried.
func (s *auditServiceImpl) Record(ctx context.Context, evt *entity.AuditEvent) error {
	if evt == nil {
		return nil
	}

	var errs []error
	for i, sink := range s.sinks {
		if err := sink.Record(ctx, evt); err != nil {
			s.logger.Error("Audit sink failed",
				"error", err,
				"sink", i,
				"audit_id", evt.ID,
				"action", evt.Action,
				"target_id", evt.TargetID,
			)
			errs = append(errs, fmt.Errorf("audit sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// HandleEvent records the audit event carried by evt
func (s *auditServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	return s.Record(ctx, evt.Audit())
}
