package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/erp-approvals/internal/application/port"
	"github.com/garyjia/erp-approvals/internal/application/service"
	"github.com/garyjia/erp-approvals/internal/application/workflow"
	"github.com/garyjia/erp-approvals/internal/container"
	"github.com/garyjia/erp-approvals/internal/domain/approval"
	"github.com/garyjia/erp-approvals/internal/domain/entity"
	"github.com/garyjia/erp-approvals/pkg/utils"
)

// IdentityHeader carries the acting identity, set by the fronting gateway
const IdentityHeader = "X-User-Identity"

const (
	actorKey     = "actor"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// HealthReporter reports component health
type HealthReporter interface {
	Health(ctx context.Context) *container.HealthStatus
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	services      *container.ServiceBundle
	health        HealthReporter
	logger        Logger
	maxUploadSize int64
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services *container.ServiceBundle, health HealthReporter, logger Logger, maxUploadSize int64) *Handlers {
	return &Handlers{
		services:      services,
		health:        health,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                               `json:"status"`
	Timestamp  string                               `json:"timestamp"`
	Components map[string]container.ComponentHealth `json:"components,omitempty"`
}

// CreateRequestBody is the payload of POST /api/requests/:kind
type CreateRequestBody struct {
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Approvers *approval.Approvers    `json:"approvers"`
	Vacation  *entity.VacationDetail `json:"vacation"`
}

// DecisionBody is the payload of POST .../decision
type DecisionBody struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// EditReportBody is the payload of PUT on a report
type EditReportBody struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// RequestDetail is a request together with the decisions open to the caller
type RequestDetail struct {
	*entity.Request
	Actions []approval.Action `json:"actions"`
}

// CountResponse wraps a single counter
type CountResponse struct {
	Count int64 `json:"count"`
}

// statusFor maps application errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrInvalidAction):
		return http.StatusConflict
	case errors.Is(err, approval.ErrNoApprovers), errors.Is(err, approval.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// requireIdentity rejects requests without a well-formed actor header
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(IdentityHeader)
		if err := utils.ValidateIdentity(actor); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   fmt.Sprintf("%s: %v", IdentityHeader, err),
			})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorOf(c *gin.Context) string {
	return c.GetString(actorKey)
}

func requestRef(c *gin.Context) (entity.RequestRef, error) {
	kind, err := entity.ParseKind(c.Param("kind"))
	if err != nil {
		return entity.RequestRef{}, err
	}
	return entity.RequestRef{Kind: kind, Owner: c.Param("owner"), ID: c.Param("id")}, nil
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrInvalidInput, err)
	}
	return nil
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.health != nil {
		report := h.health.Health(c.Request.Context())
		response.Components = report.Components
		if !report.Overall {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{Success: status == http.StatusOK, Data: response})
}

// CreateRequest handles POST /api/requests/:kind
func (h *Handlers) CreateRequest(c *gin.Context) {
	kind, err := entity.ParseKind(c.Param("kind"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var body CreateRequestBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.services.Coordinator.Create(c.Request.Context(), workflow.CreateCommand{
		Kind:      kind,
		Owner:     actorOf(c),
		Title:     utils.SanitizeString(body.Title),
		Content:   utils.SanitizeString(body.Content),
		Approvers: body.Approvers,
		Vacation:  body.Vacation,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, req)
}

// GetRequest handles GET /api/requests/:kind/:owner/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	req, err := h.services.Coordinator.Get(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !service.CanView(req, actorOf(c)) {
		h.fail(c, fmt.Errorf("%w: %s is not named on %s", approval.ErrNotAuthorized, actorOf(c), ref))
		return
	}
	actions := h.services.Coordinator.Actions(req, actorOf(c))
	if actions == nil {
		actions = []approval.Action{}
	}
	ok(c, http.StatusOK, RequestDetail{Request: req, Actions: actions})
}

// SubmitDecision handles POST /api/requests/:kind/:owner/:id/decision
func (h *Handlers) SubmitDecision(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body DecisionBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}
	action, err := approval.ParseAction(body.Action)
	if err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.services.Coordinator.Submit(c.Request.Context(), workflow.SubmitCommand{
		Ref:     ref,
		Actor:   actorOf(c),
		Action:  action,
		Comment: utils.SanitizeString(body.Comment),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// CancelRequest handles DELETE /api/requests/:kind/:owner/:id
func (h *Handlers) CancelRequest(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.services.Coordinator.Cancel(c.Request.Context(), ref, actorOf(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EditReport handles PUT /api/requests/:kind/:owner/:id
func (h *Handlers) EditReport(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var body EditReportBody
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, err)
		return
	}

	req, err := h.services.Coordinator.EditReport(c.Request.Context(), workflow.EditCommand{
		Ref:     ref,
		Actor:   actorOf(c),
		Title:   utils.SanitizeString(body.Title),
		Content: utils.SanitizeString(body.Content),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, req)
}

// UploadAttachment handles POST /api/requests/:kind/:owner/:id/attachments
func (h *Handlers) UploadAttachment(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.fail(c, fmt.Errorf("%w: multipart field \"file\" is required", approval.ErrInvalidInput))
		return
	}
	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		h.fail(c, fmt.Errorf("%w: attachment exceeds %d bytes", approval.ErrInvalidInput, h.maxUploadSize))
		return
	}

	file, err := header.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, fmt.Errorf("read upload: %w", err))
		return
	}

	att, err := h.services.Attachment.Upload(c.Request.Context(), ref, actorOf(c), header.Filename,
		header.Header.Get("Content-Type"), content)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, att)
}

// DownloadAttachment handles GET /api/requests/:kind/:owner/:id/attachments/:name
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	ref, err := requestRef(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	att, content, err := h.services.Attachment.Download(c.Request.Context(), ref, actorOf(c), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
	c.Data(http.StatusOK, contentType, content)
}

// ListPending handles GET /api/pending
func (h *Handlers) ListPending(c *gin.Context) {
	items, err := h.services.Pending.ListPending(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// ListCompleted handles GET /api/completed
func (h *Handlers) ListCompleted(c *gin.Context) {
	items, err := h.services.Pending.ListCompleted(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// ProcessedToday handles GET /api/stats/today
func (h *Handlers) ProcessedToday(c *gin.Context) {
	n, err := h.services.Pending.CountProcessedToday(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: int64(n)})
}

// ListNotifications handles GET /api/notifications?unread=true
func (h *Handlers) ListNotifications(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	items, err := h.services.Notification.List(c.Request.Context(), actorOf(c), unreadOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	if err := h.services.Notification.MarkRead(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.services.Notification.MarkAllRead(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: int64(n)})
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *Handlers) UnreadCount(c *gin.Context) {
	n, err := h.services.Notification.UnreadCount(c.Request.Context(), actorOf(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, CountResponse{Count: n})
}

// GetBalance handles GET /api/balance/:year
func (h *Handlers) GetBalance(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1900 || year > 9999 {
		h.fail(c, fmt.Errorf("%w: invalid year %q", approval.ErrInvalidInput, c.Param("year")))
		return
	}
	balance, err := h.services.Balance.Get(c.Request.Context(), actorOf(c), year)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, balance)
}

// ExportLedger handles GET /api/export/ledger?owner=
func (h *Handlers) ExportLedger(c *gin.Context) {
	actor := actorOf(c)
	owner := c.DefaultQuery("owner", actor)
	if owner != actor {
		h.fail(c, fmt.Errorf("%w: ledgers are only exported for their owner", approval.ErrNotAuthorized))
		return
	}

	data, err := h.services.Export.ExportLedger(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ledger.xlsx"`)
	c.Data(http.StatusOK, xlsxMimeType, data)
}
