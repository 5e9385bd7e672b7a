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

// AdminRepository implements port.AdminRepository. Region assignments live
// in admin_regions and are loaded with every admin.
type AdminRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *sql.DB, logger *zap.Logger) port.AdminRepository {
	return &AdminRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an admin and its region assignments in one transaction
func (r *AdminRepository) Create(ctx context.Context, admin *entity.Admin) error {
	insert := func(exec sqlite.Executor) error {
		result, err := exec.ExecContext(ctx,
			`INSERT INTO admins (name, email, lark_open_id, role, created_at) VALUES (?, ?, ?, ?, ?)`,
			admin.Name, admin.Email, admin.LarkOpenID, admin.Role, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		for _, region := range admin.Regions {
			if _, err := exec.ExecContext(ctx,
				`INSERT OR IGNORE INTO admin_regions (admin_id, region_code, sbu_code) VALUES (?, ?, ?)`,
				id, region.RegionCode, region.SBUCode); err != nil {
				return fmt.Errorf("failed to assign region: %w", err)
			}
		}
		admin.ID = id
		return nil
	}

	var err error
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		err = insert(tx)
	} else {
		err = r.withTx(ctx, insert)
	}
	if err != nil {
		r.logger.Error("Failed to create admin", zap.String("email", admin.Email), zap.Error(err))
	}
	return err
}

// GetByID retrieves an admin by ID
func (r *AdminRepository) GetByID(ctx context.Context, id int64) (*entity.Admin, error) {
	var admin entity.Admin
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name, email, lark_open_id, role FROM admins WHERE id = ?`, id,
	).Scan(&admin.ID, &admin.Name, &admin.Email, &admin.LarkOpenID, &admin.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get admin", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	regions, err := r.regions(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	admin.Regions = regions[id]
	return &admin, nil
}

// ListByRole returns every admin with role, ordered by id
func (r *AdminRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.Admin, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, email, lark_open_id, role FROM admins WHERE role = ? ORDER BY id`, role)
	if err != nil {
		r.logger.Error("Failed to list admins", zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var (
		admins []*entity.Admin
		ids    []int64
	)
	for rows.Next() {
		var admin entity.Admin
		if err := rows.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.LarkOpenID, &admin.Role); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &admin)
		ids = append(ids, admin.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	regions, err := r.regions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range admins {
		a.Regions = regions[a.ID]
	}
	return admins, nil
}

func (r *AdminRepository) regions(ctx context.Context, ids []int64) (map[int64][]entity.RegionScope, error) {
	out := make(map[int64][]entity.RegionScope, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT admin_id, region_code, sbu_code FROM admin_regions WHERE admin_id IN (?` +
		repeat(",?", len(ids)-1) + `) ORDER BY admin_id, region_code, sbu_code`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin regions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var adminID int64
		var scope entity.RegionScope
		if err := rows.Scan(&adminID, &scope.RegionCode, &scope.SBUCode); err != nil {
			return nil, fmt.Errorf("failed to scan admin region: %w", err)
		}
		out[adminID] = append(out[adminID], scope)
	}
	return out, rows.Err()
}

func (r *AdminRepository) withTx(ctx context.Context, fn func(sqlite.Executor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

var _ port.AdminRepository = (*AdminRepository)(nil)
