package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/service"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
	"github.com/garyjia/partner-review/internal/infrastructure/auth"
	"github.com/garyjia/partner-review/internal/infrastructure/metrics"
	"github.com/garyjia/partner-review/pkg/utils"
)

var (
	manager = &entity.Admin{ID: 8, Name: "Mina", Role: entity.RoleManager}
	full    = &entity.Admin{ID: 1, Name: "Root", Role: entity.RoleFull}
)

type testServer struct {
	router       http.Handler
	tokens       *auth.TokenManager
	approval     *mockApprovalService
	notification *mockNotificationService
	directory    *mockDirectoryService
	report       *mockReportService
}

func newTestServer(t *testing.T, opts ...func(*Deps)) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", "partner-review", time.Hour)
	require.NoError(t, err)

	ts := &testServer{
		tokens:       tokens,
		approval:     &mockApprovalService{},
		notification: &mockNotificationService{},
		directory:    &mockDirectoryService{admins: map[int64]*entity.Admin{manager.ID: manager, full.ID: full}},
		report:       &mockReportService{},
	}
	deps := Deps{
		Approval:     ts.approval,
		Notification: ts.notification,
		Directory:    ts.directory,
		Report:       ts.report,
		Tokens:       tokens,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	ts.router = NewServer(DefaultServerConfig(), deps, utils.NewKVLogger(zap.NewNop())).Router()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, as *entity.Admin, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		token, _, err := ts.tokens.Issue(as.ID, string(as.Role))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	ts = newTestServer(t, func(d *Deps) {
		d.Health = func() (bool, interface{}) { return false, map[string]string{"database": "down"} }
	})
	w = ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"down"`)
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthenticated", decode(t, w).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin no longer exists", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/me", &entity.Admin{ID: 404, Role: entity.RoleManager}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("directory failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.directory.getAdminErr = errors.New("db down")
		w := ts.do(t, http.MethodGet, "/api/me", manager, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("current admin", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/me", manager, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"Mina"`)
	})
}

func TestSubmit_PassesActorAndPayload(t *testing.T) {
	ts := newTestServer(t)
	var gotActor *entity.Admin
	var gotPayload domainwf.Payload
	ts.approval.submitFunc = func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error) {
		gotActor, gotPayload = actor, p
		assert.Equal(t, entity.FormKindDataRequest, kind)
		assert.Equal(t, int64(12), id)
		return &entity.Form{ID: id, Kind: kind, Status: entity.StatusApproved, Payload: `{"a":1}`}, nil
	}

	w := ts.do(t, http.MethodPost, "/api/forms/data-request/12/submit", manager,
		`{"comments":"ok","signatureUrl":"https://sig.example.com/x.png","score":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, manager.ID, gotActor.ID)
	assert.Equal(t, "ok", gotPayload.Comments)
	require.NotNil(t, gotPayload.Score)
	assert.Equal(t, 7, *gotPayload.Score)

	resp := decode(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "APPROVED", data["status"])
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, data["payload"])
}

func TestSubmit_EmptyBody(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/forms/onboard-request/3/submit", manager, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/forms/onboard-request/3/submit", manager, "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReview_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"forbidden", domainwf.Forbidden("This form is not in your assigned region (H)"), http.StatusForbidden, "forbidden", "This form is not in your assigned region (H)"},
		{"validation", domainwf.Validation("Comments are required when denying a form"), http.StatusBadRequest, "validation", "Comments are required when denying a form"},
		{"invalid transition", domainwf.InvalidTransition("Form is APPROVED"), http.StatusBadRequest, "invalid_transition", "Form is APPROVED"},
		{"not found", domainwf.NotFound("Form 5 was not found"), http.StatusNotFound, "not_found", "Form 5 was not found"},
		{"conflict", domainwf.Conflict("Form was changed by another reviewer"), http.StatusConflict, "conflict", "Form was changed by another reviewer"},
		{"internal", errors.New("disk I/O error"), http.StatusInternalServerError, "internal", "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.approval.denyFunc = func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, p domainwf.Payload) (*entity.Form, error) {
				return nil, tt.err
			}

			w := ts.do(t, http.MethodPost, "/api/forms/onboard-request/5/deny", manager, `{"comments":"no"}`)
			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.msg, resp.Error)
		})
	}
}

func TestRouteParams(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/forms/expense/1", manager, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/forms/onboard-request/abc", manager, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/forms/onboard-request?limit=ten", manager, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicSubmission(t *testing.T) {
	ts := newTestServer(t)
	var got service.FormInput
	ts.approval.createPublicFunc = func(ctx context.Context, kind entity.FormKind, in service.FormInput) (*entity.Form, error) {
		got = in
		return &entity.Form{ID: 31, Kind: kind, Status: entity.StatusPendingCoordinator, RegionCode: in.RegionCode}, nil
	}

	w := ts.do(t, http.MethodPost, "/api/public/onboard-request", nil,
		`{"region_code":"G","sbu_code":"SBU1","title":"Acme","payload":{"partner":"Acme"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "G", got.RegionCode)
	assert.JSONEq(t, `{"partner":"Acme"}`, got.Payload)
}

func TestListForms_Filter(t *testing.T) {
	ts := newTestServer(t)
	var got entity.FormFilter
	ts.approval.listFormsFunc = func(ctx context.Context, filter entity.FormFilter) ([]*entity.Form, error) {
		got = filter
		return nil, nil
	}

	w := ts.do(t, http.MethodGet, "/api/forms/data-request?status=PENDING_LEGAL&region=H&limit=5&offset=10", manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.FormFilter{
		Kind:       entity.FormKindDataRequest,
		Status:     entity.StatusPendingLegal,
		RegionCode: "H",
		Limit:      5,
		Offset:     10,
	}, got)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestUpdateForm(t *testing.T) {
	ts := newTestServer(t)
	var gotPayload string
	ts.approval.updateFunc = func(ctx context.Context, actor *entity.Admin, kind entity.FormKind, id int64, title, payload string) (*entity.Form, error) {
		gotPayload = payload
		return &entity.Form{ID: id, Kind: kind, Title: title}, nil
	}

	w := ts.do(t, http.MethodPut, "/api/forms/onboard-request/2", manager, `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", gotPayload)
}

func TestCreateAdmin_RequiresFull(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"Cora","email":"cora@example.com","role":"COORDINATOR","regions":[{"region_code":"G","sbu_code":"SBU1"}]}`

	w := ts.do(t, http.MethodPost, "/api/admins", manager, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var created *entity.Admin
	ts.directory.createAdminFunc = func(ctx context.Context, admin *entity.Admin) error {
		admin.ID = 50
		created = admin
		return nil
	}
	w = ts.do(t, http.MethodPost, "/api/admins", full, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, entity.Role("COORDINATOR"), created.Role)
	assert.Equal(t, []entity.RegionScope{{RegionCode: "G", SBUCode: "SBU1"}}, created.Regions)

	w = ts.do(t, http.MethodPost, "/api/admins", full, `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportLedger(t *testing.T) {
	ts := newTestServer(t)
	ts.report.exportFunc = func(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error) {
		_, err := w.Write([]byte("PK-xlsx"))
		return "onboard-request-4-ledger.xlsx", err
	}

	w := ts.do(t, http.MethodGet, "/api/forms/onboard-request/4/ledger.xlsx", manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="onboard-request-4-ledger.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, ts.report.ContentType(), w.Header().Get("Content-Type"))
	assert.Equal(t, "PK-xlsx", w.Body.String())

	ts.report.exportFunc = func(ctx context.Context, kind entity.FormKind, id int64, w io.Writer) (string, error) {
		_, _ = w.Write([]byte("partial"))
		return "", domainwf.NotFound("Form 4 was not found")
	}
	w = ts.do(t, http.MethodGet, "/api/forms/onboard-request/4/ledger.xlsx", manager, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "partial")
}

func TestNotifications(t *testing.T) {
	ts := newTestServer(t)
	ts.notification.listFunc = func(ctx context.Context, adminID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
		assert.Equal(t, manager.ID, adminID)
		assert.True(t, unreadOnly)
		assert.Equal(t, 5, limit)
		return []*entity.Notification{{ID: 3, AdminID: adminID, Title: "Review needed"}}, nil
	}
	w := ts.do(t, http.MethodGet, "/api/notifications?unread=true&limit=5", manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Review needed")

	var marked [2]int64
	ts.notification.markReadFunc = func(ctx context.Context, adminID, id int64) error {
		marked = [2]int64{adminID, id}
		return nil
	}
	w = ts.do(t, http.MethodPost, "/api/notifications/3/read", manager, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int64{manager.ID, 3}, marked)
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewRecorder()
	ts := newTestServer(t, func(d *Deps) { d.Metrics = recorder })

	ts.do(t, http.MethodGet, "/health", nil, "")
	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `partner_review_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/forms/onboard-request", bytes.NewReader(nil))
	req.Header.Set("Origin", "https://partners.example.com")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
