package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/infrastructure/persistence/sqlite"
)

// FormRepository implements port.FormRepository
type FormRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFormRepository creates a new form repository
func NewFormRepository(db *sql.DB, logger *zap.Logger) port.FormRepository {
	return &FormRepository{
		db:     db,
		logger: logger,
	}
}

const formColumns = `id, kind, status, region_code, sbu_code, created_by_admin_id, title, payload, created_at, updated_at`

// Create inserts a new form
func (r *FormRepository) Create(ctx context.Context, form *entity.Form) error {
	query := `
		INSERT INTO forms (kind, status, region_code, sbu_code, created_by_admin_id, title, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = form.CreatedAt

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		form.Kind,
		form.Status,
		form.RegionCode,
		form.SBUCode,
		nullInt64(form.CreatedByAdminID),
		form.Title,
		form.Payload,
		form.CreatedAt,
		form.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create form", zap.String("kind", string(form.Kind)), zap.Error(err))
		return fmt.Errorf("failed to create form: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	form.ID = id
	return nil
}

// GetByID retrieves a form by ID
func (r *FormRepository) GetByID(ctx context.Context, id int64) (*entity.Form, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = ?`

	form, err := scanForm(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get form", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	return form, nil
}

// List returns forms matching filter, newest first
func (r *FormRepository) List(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.RegionCode != "" {
		where = append(where, "region_code = ? COLLATE NOCASE")
		args = append(args, filter.RegionCode)
	}

	query := `SELECT ` + formColumns + ` FROM forms`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list forms", zap.Error(err))
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	forms := []*entity.Form{}
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan form: %w", err)
		}
		forms = append(forms, form)
	}
	return forms, rows.Err()
}

// CompareAndSetStatus is a single conditional UPDATE, so two reviewers racing
// on the same form cannot both move it.
func (r *FormRepository) CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, claimAdminID *int64, at time.Time) (bool, error) {
	query := `
		UPDATE forms
		SET status = ?, created_by_admin_id = COALESCE(created_by_admin_id, ?), updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		next, nullInt64(claimAdminID), at, id, expected)
	if err != nil {
		r.logger.Error("Failed to update form status",
			zap.Int64("id", id),
			zap.String("expected", string(expected)),
			zap.String("next", string(next)),
			zap.Error(err))
		return false, fmt.Errorf("failed to update form status: %w", err)
	}
	return affectedOne(result)
}

// UpdateContent rewrites title and payload if the status is still expected
func (r *FormRepository) UpdateContent(ctx context.Context, id int64, expected entity.Status, title, payload string) (bool, error) {
	query := `UPDATE forms SET title = ?, payload = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, title, payload, time.Now(), id, expected)
	if err != nil {
		r.logger.Error("Failed to update form content", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update form content: %w", err)
	}
	return affectedOne(result)
}

// UpdateRegion moves a form to another region and business unit if the
// status is still expected
func (r *FormRepository) UpdateRegion(ctx context.Context, id int64, expected entity.Status, regionCode, sbuCode string, at time.Time) (bool, error) {
	query := `UPDATE forms SET region_code = ?, sbu_code = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, regionCode, sbuCode, at, id, expected)
	if err != nil {
		r.logger.Error("Failed to update form region", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to update form region: %w", err)
	}
	return affectedOne(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanForm(row rowScanner) (*entity.Form, error) {
	var form entity.Form
	var createdBy sql.NullInt64

	err := row.Scan(
		&form.ID,
		&form.Kind,
		&form.Status,
		&form.RegionCode,
		&form.SBUCode,
		&createdBy,
		&form.Title,
		&form.Payload,
		&form.CreatedAt,
		&form.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		v := createdBy.Int64
		form.CreatedByAdminID = &v
	}
	return &form, nil
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ port.FormRepository = (*FormRepository)(nil)
