package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an in-app notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (admin_id, form_id, title, message, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		n.AdminID,
		nullInt64(n.FormID),
		n.Title,
		n.Message,
		n.Category,
		n.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("admin_id", n.AdminID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// ListByAdminID returns an admin's notifications, newest first
func (r *NotificationRepository) ListByAdminID(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, admin_id, form_id, title, message, category, read_at, created_at
		FROM notifications
		WHERE admin_id = ?
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, adminID, limit)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("admin_id", adminID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := []*entity.Notification{}
	for rows.Next() {
		var n entity.Notification
		var formID sql.NullInt64
		var readAt sql.NullTime

		if err := rows.Scan(
			&n.ID,
			&n.AdminID,
			&formID,
			&n.Title,
			&n.Message,
			&n.Category,
			&readAt,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if formID.Valid {
			v := formID.Int64
			n.FormID = &v
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkRead sets read_at once; marking an already read notification is a no-op success
func (r *NotificationRepository) MarkRead(ctx context.Context, id, adminID int64) (bool, error) {
	query := `UPDATE notifications SET read_at = COALESCE(read_at, ?) WHERE id = ? AND admin_id = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, time.Now(), id, adminID)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return affectedOne(result)
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
