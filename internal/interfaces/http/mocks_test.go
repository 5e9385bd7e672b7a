package http

import (
	"context"
	"io"

	"github.com/garyjia/partner-review/internal/application/service"
	"github.com/garyjia/partner-review/internal/domain/entity"
	"github.com/garyjia/partner-review/internal/domain/event"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

type mockApprovalService struct {
	createDraftFunc  func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, in service.FormInput) (*entity.Form, error)
	createPublicFunc func(ctx context.Context, kind entity.FormKind, in service.FormInput) (*entity.Form, error)
	updateFunc       func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, title, payload string) (*entity.Form, error)
	submitFunc       func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error)
	denyFunc         func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error)
	getFormFunc      func(ctx context.Context, kind entity.FormKind, id int64) (*entity.Form, error)
	listFormsFunc    func(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error)
	getLedgerFunc    func(ctx context.Context, kind entity.FormKind, id int64) ([]*entity.ApprovalLedgerEntry, error)
	inboxFunc        func(ctx context.Context, actor *entity.Admin, kind entity.FormKind) ([]*entity.Form, error)
	reassignFunc     func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, region, sbu string) (*entity.Form, error)
}

func (m *mockApprovalService) CreateDraft(ctx context.Context, actor *entity.Admin, kind entity.FormKind, in service.FormInput) (*entity.Form, error) {
	if m.createDraftFunc != nil {
		return m.createDraftFunc(ctx, actor, kind, in)
	}
	return &entity.Form{ID: 1, Kind: kind, Status: entity.StatusDraft}, nil
}

func (m *mockApprovalService) CreatePublicSubmission(ctx context.Context, kind entity.FormKind, in service.FormInput) (*entity.Form, error) {
	if m.createPublicFunc != nil {
		return m.createPublicFunc(ctx, kind, in)
	}
	return &entity.Form{ID: 1, Kind: kind, Status: entity.StatusPendingCoordinator}, nil
}

func (m *mockApprovalService) UpdatePayload(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, title, payload string) (*entity.Form, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, actor, kind, id, title, payload)
	}
	return &entity.Form{ID: id, Kind: kind, Title: title, Payload: payload}, nil
}

func (m *mockApprovalService) Submit(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, actor, kind, id, p)
	}
	return &entity.Form{ID: id, Kind: kind}, nil
}

func (m *mockApprovalService) Deny(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error) {
	if m.denyFunc != nil {
		return m.denyFunc(ctx, actor, kind, id, p)
	}
	return &entity.Form{ID: id, Kind: kind, Status: entity.StatusDenied}, nil
}

func (m *mockApprovalService) GetForm(ctx context.Context, kind entity.FormKind, id int64) (*entity.Form, error) {
	if m.getFormFunc != nil {
		return m.getFormFunc(ctx, kind, id)
	}
	return &entity.Form{ID: id, Kind: kind}, nil
}

func (m *mockApprovalService) ListForms(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
	if m.listFormsFunc != nil {
		return m.listFormsFunc(ctx, filter)
	}
	return nil, nil
}

func (m *mockApprovalService) GetLedger(ctx context.Context, kind entity.FormKind, id int64) ([]*entity.ApprovalLedgerEntry, error) {
	if m.getLedgerFunc != nil {
		return m.getLedgerFunc(ctx, kind, id)
	}
	return nil, nil
}

func (m *mockApprovalService) Inbox(ctx context.Context, actor *entity.Admin, kind entity.FormKind) ([]*entity.Form, error) {
	if m.inboxFunc != nil {
		return m.inboxFunc(ctx, actor, kind)
	}
	return nil, nil
}

func (m *mockApprovalService) Reassign(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, region, sbu string) (*entity.Form, error) {
	if m.reassignFunc != nil {
		return m.reassignFunc(ctx, actor, kind, id, region, sbu)
	}
	return &entity.Form{ID: id, Kind: kind, RegionCode: region, SBUCode: sbu}, nil
}

type mockNotificationService struct {
	listFunc     func(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	markReadFunc func(ctx context.Context, adminID, id int64) error
}

func (m *mockNotificationService) Send(ctx context.Context, admin *entity.Admin, msg entity.Message) error {
	return nil
}

func (m *mockNotificationService) Deliver(ctx context.Context, intents []domainwf.Intent) error {
	return nil
}

func (m *mockNotificationService) HandleEvent(ctx context.Context, evt *event.Event) error {
	return nil
}

func (m *mockNotificationService) ListForAdmin(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, adminID, unreadOnly, limit)
	}
	return nil, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, adminID, id int64) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, adminID, id)
	}
	return nil
}

type mockDirectoryService struct {
	admins          map[int64]*entity.Admin
	getAdminErr     error
	createAdminFunc func(ctx context.Context, admin *entity.Admin) error
}

func (m *mockDirectoryService) GetAdmin(ctx context.Context, id int64) (*entity.Admin, error) {
	if m.getAdminErr != nil {
		return nil, m.getAdminErr
	}
	return m.admins[id], nil
}

func (m *mockDirectoryService) ListAdmins(ctx context.Context, role entity.Role, filter *entity.RegionFilter) ([]*entity.Admin, error) {
	return nil, nil
}

func (m *mockDirectoryService) CreateAdmin(ctx context.Context, admin *entity.Admin) error {
	if m.createAdminFunc != nil {
		return m.createAdminFunc(ctx, admin)
	}
	admin.ID = 99
	return nil
}

type mockReportService struct {
	exportFunc func(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error)
}

func (m *mockReportService) ExportLedger(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, kind, id, w)
	}
	return "ledger.xlsx", nil
}

func (m *mockReportService) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
