package port

import (
	"context"
	"io"
	"time"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// AdminDirectory resolves reviewers. Implementations return the admin as it
// is now, so authority always reflects the current role and regions.
type AdminDirectory interface {
	GetAdmin(ctx context.Context, id int64) (*entity.Admin, error)

	// ListAdmins returns admins holding role whose scope covers filter.
	// A nil filter returns every admin with the role.
	ListAdmins(ctx context.Context, role entity.Role, filter *entity.RegionFilter) ([]*entity.Admin, error)
}

// NotificationSink delivers one message to one admin
type NotificationSink interface {
	Send(ctx context.Context, admin *entity.Admin, msg entity.Message) error
}

// MessageSender defines instant message delivery operations
type MessageSender interface {
	SendMessage(ctx context.Context, openID string, content string) error
	SendCardMessage(ctx context.Context, openID string, cardContent interface{}) error
}

// AuditSink receives one structured event per committed transition
type AuditSink interface {
	Record(ctx context.Context, evt *entity.AuditEvent) error
}

// TransitionMetrics records workflow outcomes
type TransitionMetrics interface {
	ObserveTransition(kind entity.FormKind, action, outcome string, elapsed time.Duration)
}

// LedgerExporter renders a form's ledger as a downloadable report
type LedgerExporter interface {
	Export(w io.Writer, form *entity.Form, entries []*entity.ApprovalLedgerEntry, admins map[int64]*entity.Admin) error
	ContentType() string
	FileExtension() string
}
