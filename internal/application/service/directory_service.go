package service

import (
	"context"
	"fmt"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
	"github.com/garyjia/partner-review/pkg/utils"
)

// DirectoryService is the admin directory plus admin provisioning
type DirectoryService interface {
	port.AdminDirectory
	CreateAdmin(ctx context.Context, admin *entity.Admin) error
}

type directoryServiceImpl struct {
	adminRepo port.AdminRepository
	logger    Logger
}

// NewDirectoryService creates a DirectoryService over the admin store
func NewDirectoryService(adminRepo port.AdminRepository, logger Logger) DirectoryService {
	return &directoryServiceImpl{adminRepo: adminRepo, logger: logger}
}

// GetAdmin returns the current state of an admin, or nil if unknown
func (s *directoryServiceImpl) GetAdmin(ctx context.Context, id int64) (*entity.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return admin, nil
}

// ListAdmins returns admins with role whose scope covers filter. FULL admins
// are only returned for role FULL; they may act at any stage but are not
// notified as stage reviewers.
func (s *directoryServiceImpl) ListAdmins(ctx context.Context, role entity.Role, filter *entity.RegionFilter) ([]*entity.Admin, error) {
	admins, err := s.adminRepo.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	if filter == nil {
		return admins, nil
	}

	out := admins[:0]
	for _, a := range admins {
		if domainwf.InScope(a, filter) {
			out = append(out, a)
		}
	}
	return out, nil
}

// CreateAdmin validates and stores a new admin
func (s *directoryServiceImpl) CreateAdmin(ctx context.Context, admin *entity.Admin) error {
	role, ok := entity.ParseRole(string(admin.Role))
	if !ok {
		return domainwf.Validation("Unknown role %q", admin.Role)
	}
	admin.Role = role

	if admin.Name == "" {
		return domainwf.Validation("Name is required")
	}
	if err := utils.ValidateEmail(admin.Email); err != nil {
		return domainwf.Validation("%s", err.Error())
	}
	for _, r := range admin.Regions {
		if err := utils.ValidateCode("region", r.RegionCode); err != nil {
			return domainwf.Validation("%s", err.Error())
		}
		if r.SBUCode != "" {
			if err := utils.ValidateCode("business unit", r.SBUCode); err != nil {
				return domainwf.Validation("%s", err.Error())
			}
		}
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		s.logger.Error("Failed to create admin", "error", err, "email", admin.Email)
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("Admin created", "admin_id", admin.ID, "role", admin.Role)
	return nil
}
