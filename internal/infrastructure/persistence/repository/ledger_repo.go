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

// LedgerRepository implements port.LedgerRepository over the append-only
// approval_ledger table. There is no update or delete path.
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one transition
func (r *LedgerRepository) Append(ctx context.Context, entry *entity.ApprovalLedgerEntry) error {
	query := `
		INSERT INTO approval_ledger (
			form_id, admin_id, actor_role, action, from_status, to_status,
			comments, signature_url, signature_date, score, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var signatureDate sql.NullTime
	if entry.SignatureDate != nil {
		signatureDate = sql.NullTime{Time: *entry.SignatureDate, Valid: true}
	}
	var score sql.NullInt64
	if entry.Score != nil {
		score = sql.NullInt64{Int64: int64(*entry.Score), Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		entry.FormID,
		entry.AdminID,
		entry.ActorRole,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Comments,
		entry.SignatureURL,
		signatureDate,
		score,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger entry",
			zap.Int64("form_id", entry.FormID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByFormID returns a form's entries in insertion order
func (r *LedgerRepository) ListByFormID(ctx context.Context, formID int64) ([]*entity.ApprovalLedgerEntry, error) {
	query := `
		SELECT id, form_id, admin_id, actor_role, action, from_status, to_status,
			comments, signature_url, signature_date, score, created_at
		FROM approval_ledger
		WHERE form_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, formID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", zap.Int64("form_id", formID), zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []*entity.ApprovalLedgerEntry{}
	for rows.Next() {
		var entry entity.ApprovalLedgerEntry
		var signatureDate sql.NullTime
		var score sql.NullInt64

		if err := rows.Scan(
			&entry.ID,
			&entry.FormID,
			&entry.AdminID,
			&entry.ActorRole,
			&entry.Action,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.Comments,
			&entry.SignatureURL,
			&signatureDate,
			&score,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if signatureDate.Valid {
			t := signatureDate.Time
			entry.SignatureDate = &t
		}
		if score.Valid {
			s := int(score.Int64)
			entry.Score = &s
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

var _ port.LedgerRepository = (*LedgerRepository)(nil)
