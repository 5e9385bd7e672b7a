package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/partner-review/internal/application/service"
	appwf "github.com/garyjia/partner-review/internal/application/workflow"
	"github.com/garyjia/partner-review/internal/domain/entity"
	domainwf "github.com/garyjia/partner-review/internal/domain/workflow"
)

// maxBodyBytes bounds request bodies; payloads are small JSON documents
const maxBodyBytes = 1 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	approval     service.ApprovalService
	notification service.NotificationService
	directory    service.DirectoryService
	report       service.ReportService
	health       HealthFunc
	logger       Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps, logger Logger) *Handlers {
	return &Handlers{
		approval:     deps.Approval,
		notification: deps.Notification,
		directory:    deps.Directory,
		report:       deps.Report,
		health:       deps.Health,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// FormRequest is the body of draft creation, public intake and edits
type FormRequest struct {
	RegionCode string          `json:"region_code"`
	SBUCode    string          `json:"sbu_code"`
	Title      string          `json:"title"`
	Payload    json.RawMessage `json:"payload"`
}

// ReassignRequest moves a form to another region or business unit
type ReassignRequest struct {
	RegionCode string `json:"region_code" binding:"required"`
	SBUCode    string `json:"sbu_code"`
}

// AdminRequest provisions an admin
type AdminRequest struct {
	Name       string               `json:"name" binding:"required"`
	Email      string               `json:"email" binding:"required"`
	LarkOpenID string               `json:"lark_open_id"`
	Role       string               `json:"role" binding:"required"`
	Regions    []entity.RegionScope `json:"regions"`
}

// FormResponse is a form with its payload inlined as JSON
type FormResponse struct {
	ID               int64           `json:"id"`
	Kind             entity.FormKind `json:"kind"`
	Status           entity.Status   `json:"status"`
	RegionCode       string          `json:"region_code"`
	SBUCode          string          `json:"sbu_code,omitempty"`
	CreatedByAdminID *int64          `json:"created_by_admin_id,omitempty"`
	Title            string          `json:"title"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		healthy, details := h.health()
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// Me handles GET /api/me
func (h *Handlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: currentAdmin(c)})
}

// CreateAdmin handles POST /api/admins
func (h *Handlers) CreateAdmin(c *gin.Context) {
	var req AdminRequest
	if !h.bindJSON(c, &req) {
		return
	}

	admin := &entity.Admin{
		Name:       req.Name,
		Email:      req.Email,
		LarkOpenID: req.LarkOpenID,
		Role:       entity.Role(req.Role),
		Regions:    req.Regions,
	}
	if err := h.directory.CreateAdmin(c.Request.Context(), admin); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: admin})
}

// CreatePublicSubmission handles POST /api/public/:kind
func (h *Handlers) CreatePublicSubmission(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	var req FormRequest
	if !h.bindJSON(c, &req) {
		return
	}

	form, err := h.approval.CreatePublicSubmission(c.Request.Context(), kind, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toFormResponse(form)})
}

// CreateDraft handles POST /api/forms/:kind
func (h *Handlers) CreateDraft(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}
	var req FormRequest
	if !h.bindJSON(c, &req) {
		return
	}

	form, err := h.approval.CreateDraft(c.Request.Context(), currentAdmin(c), kind, req.input())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toFormResponse(form)})
}

// ListForms handles GET /api/forms/:kind
func (h *Handlers) ListForms(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		h.writeError(c, err)
		return
	}

	forms, err := h.approval.ListForms(c.Request.Context(), entity.FormFilter{
		Kind:       kind,
		Status:     entity.Status(c.Query("status")),
		RegionCode: c.Query("region"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponses(forms)})
}

// GetForm handles GET /api/forms/:kind/:id
func (h *Handlers) GetForm(c *gin.Context) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}

	form, err := h.approval.GetForm(c.Request.Context(), kind, id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponse(form)})
}

// UpdateForm handles PUT /api/forms/:kind/:id
func (h *Handlers) UpdateForm(c *gin.Context) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}
	var req FormRequest
	if !h.bindJSON(c, &req) {
		return
	}

	form, err := h.approval.UpdatePayload(c.Request.Context(), currentAdmin(c), kind, id, req.Title, req.input().Payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponse(form)})
}

// Submit handles POST /api/forms/:kind/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	h.review(c, domainwf.ActionSubmit)
}

// Deny handles POST /api/forms/:kind/:id/deny
func (h *Handlers) Deny(c *gin.Context) {
	h.review(c, domainwf.ActionDeny)
}

func (h *Handlers) review(c *gin.Context, action domainwf.Action) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}

	// The body is optional: an approval with no comments has nothing to send
	var payload domainwf.Payload
	if !h.bindOptionalJSON(c, &payload) {
		return
	}

	run := h.approval.Submit
	if action == domainwf.ActionDeny {
		run = h.approval.Deny
	}

	form, err := run(c.Request.Context(), currentAdmin(c), kind, id, payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponse(form)})
}

// Reassign handles POST /api/forms/:kind/:id/reassign
func (h *Handlers) Reassign(c *gin.Context) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}
	var req ReassignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	form, err := h.approval.Reassign(c.Request.Context(), currentAdmin(c), kind, id, req.RegionCode, req.SBUCode)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponse(form)})
}

// GetLedger handles GET /api/forms/:kind/:id/ledger
func (h *Handlers) GetLedger(c *gin.Context) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}

	entries, err := h.approval.GetLedger(c.Request.Context(), kind, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []*entity.ApprovalLedgerEntry{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// ExportLedger handles GET /api/forms/:kind/:id/ledger.xlsx
func (h *Handlers) ExportLedger(c *gin.Context) {
	kind, id, ok := h.formParams(c)
	if !ok {
		return
	}

	// Render fully before writing so a failure can still become a JSON error
	var buf bytes.Buffer
	filename, err := h.report.ExportLedger(c.Request.Context(), kind, id, &buf)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, h.report.ContentType(), buf.Bytes())
}

// Inbox handles GET /api/inbox/:kind
func (h *Handlers) Inbox(c *gin.Context) {
	kind, ok := h.kindParam(c)
	if !ok {
		return
	}

	forms, err := h.approval.Inbox(c.Request.Context(), currentAdmin(c), kind)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toFormResponses(forms)})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.writeError(c, err)
		return
	}
	unread := c.Query("unread") == "true"

	list, err := h.notification.ListForAdmin(c.Request.Context(), currentAdmin(c).ID, unread, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []*entity.Notification{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: list})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domainwf.Validation("Invalid notification id %q", c.Param("id")))
		return
	}

	if err := h.notification.MarkRead(c.Request.Context(), currentAdmin(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// writeError maps a service failure to its HTTP status. Unclassified errors
// are logged and reported without detail.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"error", err,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey),
		)
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   domainwf.Reason(err),
		Code:    code,
	})
}

func statusOf(err error) (int, string) {
	switch domainwf.KindOf(err) {
	case domainwf.ErrNotFound:
		return http.StatusNotFound, appwf.OutcomeNotFound
	case domainwf.ErrForbidden:
		return http.StatusForbidden, appwf.OutcomeForbidden
	case domainwf.ErrValidation:
		return http.StatusBadRequest, appwf.OutcomeValidation
	case domainwf.ErrInvalidTransition:
		return http.StatusBadRequest, appwf.OutcomeInvalidTransition
	case domainwf.ErrConflict:
		return http.StatusConflict, appwf.OutcomeConflict
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handlers) kindParam(c *gin.Context) (entity.FormKind, bool) {
	kind, ok := entity.ParseFormKind(c.Param("kind"))
	if !ok {
		h.writeError(c, domainwf.NotFound("Unknown form kind %q", c.Param("kind")))
		return "", false
	}
	return kind, true
}

func (h *Handlers) formParams(c *gin.Context) (entity.FormKind, int64, bool) {
	kind, ok := h.kindParam(c)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domainwf.NotFound("Form %q was not found", c.Param("id")))
		return "", 0, false
	}
	return kind, id, true
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		h.writeError(c, domainwf.Validation("Invalid request body: %s", err.Error()))
		return false
	}
	return true
}

// bindOptionalJSON decodes the body when there is one
func (h *Handlers) bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(c, domainwf.Validation("Invalid request body: %s", err.Error()))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainwf.Validation("%s must be an integer", key)
	}
	return n, nil
}

func (r FormRequest) input() service.FormInput {
	payload := ""
	if len(r.Payload) > 0 && string(r.Payload) != "null" {
		payload = string(r.Payload)
	}
	return service.FormInput{
		RegionCode: r.RegionCode,
		SBUCode:    r.SBUCode,
		Title:      r.Title,
		Payload:    payload,
	}
}

func toFormResponse(form *entity.Form) FormResponse {
	resp := FormResponse{
		ID:               form.ID,
		Kind:             form.Kind,
		Status:           form.Status,
		RegionCode:       form.RegionCode,
		SBUCode:          form.SBUCode,
		CreatedByAdminID: form.CreatedByAdminID,
		Title:            form.Title,
		CreatedAt:        form.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        form.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if form.Payload != "" && json.Valid([]byte(form.Payload)) {
		resp.Payload = json.RawMessage(form.Payload)
	}
	return resp
}

func toFormResponses(forms []*entity.Form) []FormResponse {
	out := make([]FormResponse, 0, len(forms))
	for _, f := range forms {
		out = append(out, toFormResponse(f))
	}
	return out
}
