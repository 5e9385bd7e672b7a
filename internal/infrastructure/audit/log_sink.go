package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
)

// LogSink writes audit events to a dedicated zap logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs under the "audit" name
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Record logs evt as one structured line
func (s *LogSink) Record(ctx context.Context, evt *entity.AuditEvent) error {
	fields := []zap.Field{
		zap.String("audit_id", evt.ID),
		zap.String("action", evt.Action),
		zap.String("target_type", evt.TargetType),
		zap.Int64("target_id", evt.TargetID),
		zap.Time("occurred_at", evt.OccurredAt),
		zap.Any("metadata", evt.Metadata),
	}
	if evt.AdminID != nil {
		fields = append(fields, zap.Int64("admin_id", *evt.AdminID))
	}

	s.logger.Info("Audit event", fields...)
	return nil
}

var _ port.AuditSink = (*LogSink)(nil)
