package port

import (
	"context"
	"time"

	"github.com/garyjia/partner-review/internal/domain/entity"
)

// FormRepository defines persistence operations for Form
type FormRepository interface {
	Create(ctx context.Context, form *entity.Form) error

	// GetByID returns nil, nil when the form does not exist
	GetByID(ctx context.Context, id int64) (*entity.Form, error)

	List(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error)

	// CompareAndSetStatus moves the form to next only if its status is still
	// expected, stamping updated_at with at. claimAdminID, when set, is
	// recorded as creator of a form that has none. It reports false when
	// another writer got there first.
	CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, claimAdminID *int64, at time.Time) (bool, error)

	// UpdateContent rewrites title and payload while the status is still expected
	UpdateContent(ctx context.Context, id int64, expected entity.Status, title, payload string) (bool, error)

	// UpdateRegion moves the form to another region and business unit while
	// the status is still expected
	UpdateRegion(ctx context.Context, id int64, expected entity.Status, regionCode, sbuCode string, at time.Time) (bool, error)
}

// LedgerRepository defines persistence operations for ApprovalLedgerEntry.
// The ledger is append-only.
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.ApprovalLedgerEntry) error

	// ListByFormID returns entries in insertion order
	ListByFormID(ctx context.Context, formID int64) ([]*entity.ApprovalLedgerEntry, error)
}

// AdminRepository defines persistence operations for Admin
type AdminRepository interface {
	Create(ctx context.Context, admin *entity.Admin) error

	// GetByID returns nil, nil when the admin does not exist
	GetByID(ctx context.Context, id int64) (*entity.Admin, error)

	ListByRole(ctx context.Context, role entity.Role) ([]*entity.Admin, error)
}

// NotificationRepository defines persistence operations for in-app Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByAdminID(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)

	// MarkRead reports false when the notification does not belong to adminID
	MarkRead(ctx context.Context, id, adminID int64) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
