package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/garyjia/partner-review/internal/application/port"
	appwf "github.com/garyjia/partner-review/internal/application/workflow"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

type mockFormRepo struct {
	createFunc        func(ctx context.Context, form *entity.Form) error
	getByIDFunc       func(ctx context.Context, id int64) (*entity.Form, error)
	listFunc          func(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error)
	updateContentFunc func(ctx context.Context, id int64, expected entity.Status, title, payload string) (bool, error)
	updateRegionFunc  func(ctx context.Context, id int64, expected entity.Status, regionCode, sbuCode string) (bool, error)
}

func (m *mockFormRepo) Create(ctx context.Context, form *entity.Form) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, form)
	}
	form.ID = 1
	return nil
}

func (m *mockFormRepo) GetByID(ctx context.Context, id int64) (*entity.Form, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockFormRepo) List(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Form{}, nil
}

func (m *mockFormRepo) CompareAndSetStatus(ctx context.Context, id int64, expected, next entity.Status, claim *int64, at time.Time) (bool, error) {
	return true, nil
}

func (m *mockFormRepo) UpdateContent(ctx context.Context, id int64, expected entity.Status, title, payload string) (bool, error) {
	if m.updateContentFunc != nil {
		return m.updateContentFunc(ctx, id, expected, title, payload)
	}
	return true, nil
}

func (m *mockFormRepo) UpdateRegion(ctx context.Context, id int64, expected entity.Status, regionCode, sbuCode string, at time.Time) (bool, error) {
	if m.updateRegionFunc != nil {
		return m.updateRegionFunc(ctx, id, expected, regionCode, sbuCode)
	}
	return true, nil
}

type mockLedgerRepo struct {
	listByFormIDFunc func(ctx context.Context, formID int64) ([]*entity.ApprovalLedgerEntry, error)
}

func (m *mockLedgerRepo) Append(ctx context.Context, entry *entity.ApprovalLedgerEntry) error {
	return nil
}

func (m *mockLedgerRepo) ListByFormID(ctx context.Context, formID int64) ([]*entity.ApprovalLedgerEntry, error) {
	if m.listByFormIDFunc != nil {
		return m.listByFormIDFunc(ctx, formID)
	}
	return []*entity.ApprovalLedgerEntry{}, nil
}

type mockEngine struct {
	executeFunc func(ctx context.Context, cmd appwf.Command) (*appwf.Result, error)
	resolver    *domainwf.Resolver
}

func (m *mockEngine) Execute(ctx context.Context, cmd appwf.Command) (*appwf.Result, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, cmd)
	}
	return nil, domainwf.NotFound("Form %d was not found", cmd.FormID)
}

func (m *mockEngine) Resolver() *domainwf.Resolver {
	if m.resolver == nil {
		m.resolver = domainwf.NewResolver(domainwf.DefaultTables())
	}
	return m.resolver
}

type mockNotificationRepo struct {
	mu           sync.Mutex
	created      []*entity.Notification
	createFunc   func(ctx context.Context, n *entity.Notification) error
	listFunc     func(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	markReadFunc func(ctx context.Context, id, adminID int64) (bool, error)
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListByAdminID(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, adminID, unreadOnly, limit)
	}
	return []*entity.Notification{}, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, adminID int64) (bool, error) {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, id, adminID)
	}
	return true, nil
}

type mockDirectory struct {
	admins map[int64]*entity.Admin
}

func newMockDirectory(admins ...*entity.Admin) *mockDirectory {
	d := &mockDirectory{admins: make(map[int64]*entity.Admin)}
	for _, a := range admins {
		d.admins[a.ID] = a
	}
	return d
}

func (m *mockDirectory) GetAdmin(ctx context.Context, id int64) (*entity.Admin, error) {
	return m.admins[id], nil
}

func (m *mockDirectory) ListAdmins(ctx context.Context, role entity.Role, filter *entity.RegionFilter) ([]*entity.Admin, error) {
	var out []*entity.Admin
	for id := int64(1); id <= 100; id++ {
		a, ok := m.admins[id]
		if ok && a.Role == role && domainwf.InScope(a, filter) {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockMessageSender struct {
	mu              sync.Mutex
	sent            map[string]string
	sendMessageFunc func(ctx context.Context, openID string, content string) error
}

func (m *mockMessageSender) SendMessage(ctx context.Context, openID string, content string) error {
	if m.sendMessageFunc != nil {
		if err := m.sendMessageFunc(ctx, openID, content); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[openID] = content
	return nil
}

func (m *mockMessageSender) SendCardMessage(ctx context.Context, openID string, cardContent interface{}) error {
	return nil
}

type mockAuditSink struct {
	mu       sync.Mutex
	recorded []*entity.AuditEvent
	err      error
}

func (m *mockAuditSink) Record(ctx context.Context, evt *entity.AuditEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, evt)
	return nil
}

type mockExporter struct {
	exportFunc func(w io.Writer, form *entity.Form, entries []*entity.ApprovalLedgerEntry, admins map[int64]*entity.Admin) error
}

func (m *mockExporter) Export(w io.Writer, form *entity.Form, entries []*entity.ApprovalLedgerEntry, admins map[int64]*entity.Admin) error {
	if m.exportFunc != nil {
		return m.exportFunc(w, form, entries, admins)
	}
	return nil
}

func (m *mockExporter) ContentType() string   { return "text/plain" }
func (m *mockExporter) FileExtension() string { return ".txt" }

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

var (
	_ port.FormRepository         = (*mockFormRepo)(nil)
	_ port.LedgerRepository       = (*mockLedgerRepo)(nil)
	_ port.NotificationRepository = (*mockNotificationRepo)(nil)
	_ port.AdminDirectory         = (*mockDirectory)(nil)
	_ port.MessageSender          = (*mockMessageSender)(nil)
	_ port.AuditSink              = (*mockAuditSink)(nil)
	_ port.LedgerExporter         = (*mockExporter)(nil)
	_ appwf.WorkflowEngine        = (*mockEngine)(nil)
)

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }
