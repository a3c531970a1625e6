package http

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"

	"github.com/garyjia/grant-portal/internal/application/port"
	"github.com/garyjia/grant-portal/internal/application/service"
	"github.com/garyjia/grant-portal/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	portal   PortalConfig
	pages    *pageSet
	flashes  *flashStore
	health   HealthChecker
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, portal PortalConfig, pages *pageSet, flashes *flashStore, health HealthChecker, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		portal:   portal,
		pages:    pages,
		flashes:  flashes,
		health:   health,
		logger:   logger,
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
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// pageData is shared by every rendered page
type pageData struct {
	Title     string
	LoggedIn  bool
	Flashes   []Flash
	CSRFField template.HTML

	// login
	Username string
	Error    string

	// dashboard
	View *service.DashboardView

	// form
	Draft         entity.RecordDraft
	StatusOptions entity.StatusOptions
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	status := http.StatusOK
	if h.health != nil {
		ok, components := h.health()
		response.Components = components
		if !ok {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// LoginPage handles GET /login
func (h *Handlers) LoginPage(c *gin.Context) {
	if currentSession(c).LoggedIn() {
		c.Redirect(http.StatusSeeOther, h.portal.PostLoginPath)
		return
	}
	h.render(c, http.StatusOK, pageLogin, h.page(c, "Login"))
}

// Login handles POST /login
func (h *Handlers) Login(c *gin.Context) {
	sess := currentSession(c)
	username := c.PostForm("username")

	err := h.services.Auth.Login(c.Request.Context(), sess.ID, username, c.PostForm("password"))
	if err != nil {
		data := h.page(c, "Login")
		data.Username = username
		data.Error = service.LoginFailureMessage(err)
		h.render(c, loginFailureStatus(err), pageLogin, data)
		return
	}

	c.Redirect(http.StatusSeeOther, h.portal.PostLoginPath)
}

func loginFailureStatus(err error) int {
	var apiErr *port.APIError
	switch {
	case errors.Is(err, service.ErrCredentialsRequired):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// Logout handles POST /logout
func (h *Handlers) Logout(c *gin.Context) {
	sess := currentSession(c)
	if err := h.services.Auth.Logout(c.Request.Context(), sess.ID); err != nil {
		h.logger.Error("Failed to logout", "session_id", sess.ID, "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// Dashboard handles GET /, /home and /dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	sess := currentSession(c)

	view, err := h.services.Dashboard.View(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("Failed to render dashboard", "session_id", sess.ID, "error", err)
		c.String(http.StatusInternalServerError, "failed to render dashboard")
		return
	}

	data := h.page(c, "Dashboard")
	data.View = view
	h.render(c, http.StatusOK, pageDashboard, data)
}

// Refresh handles POST /dashboard/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	sess := currentSession(c)
	if err := h.services.Dashboard.Refresh(c.Request.Context(), sess.ID); err != nil {
		h.flashes.Add(sess.ID, FlashError, service.MsgLoadFailed)
	}
	h.backToDashboard(c)
}

// SetSite handles POST /dashboard/site
func (h *Handlers) SetSite(c *gin.Context) {
	sess := currentSession(c)
	if err := h.services.Auth.SetSite(c.Request.Context(), sess.ID, c.PostForm("site")); err != nil {
		h.logger.Error("Failed to set site", "session_id", sess.ID, "error", err)
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	}
	h.backToDashboard(c)
}

// ApplyFilter handles POST /dashboard/filter
func (h *Handlers) ApplyFilter(c *gin.Context) {
	sess := currentSession(c)
	err := h.services.Dashboard.ApplyFilter(c.Request.Context(), sess.ID, c.PostForm("start"), c.PostForm("end"))
	if err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	}
	h.backToDashboard(c)
}

// ResetFilter handles POST /dashboard/filter/reset
func (h *Handlers) ResetFilter(c *gin.Context) {
	sess := currentSession(c)
	if err := h.services.Dashboard.ResetFilter(c.Request.Context(), sess.ID); err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	}
	h.backToDashboard(c)
}

// ChangeStatus handles POST /dashboard/records/:id/status
func (h *Handlers) ChangeStatus(c *gin.Context) {
	sess := currentSession(c)
	err := h.services.Dashboard.ChangeStatus(c.Request.Context(), sess.ID, c.Param("id"), c.PostForm("status"))
	if err != nil {
		h.flashes.Add(sess.ID, FlashError, writeFailureMessage("Status", err))
	}
	h.backToDashboard(c)
}

// EditComments handles POST /dashboard/records/:id/draft
func (h *Handlers) EditComments(c *gin.Context) {
	sess := currentSession(c)
	if err := h.editComments(c, sess.ID); err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	}
	h.backToDashboard(c)
}

// SendComment handles POST /dashboard/records/:id/comment. Field values
// posted with the request are applied locally before sending.
func (h *Handlers) SendComment(c *gin.Context) {
	sess := currentSession(c)
	if err := h.editComments(c, sess.ID); err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
		h.backToDashboard(c)
		return
	}

	receipt, err := h.services.Dashboard.SendComment(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		h.flashes.Add(sess.ID, FlashError, writeFailureMessage("Comments", err))
		h.backToDashboard(c)
		return
	}

	h.flashes.Add(sess.ID, FlashSuccess, receipt.Message())
	h.backToDashboard(c)
}

func (h *Handlers) editComments(c *gin.Context, sessionID string) error {
	comments, hasComments := c.GetPostForm("comments")
	by, hasBy := c.GetPostForm("commentsGivenBy")
	if !hasComments && !hasBy {
		return nil
	}

	if !hasComments || !hasBy {
		row, _, err := h.services.Dashboard.Record(c.Request.Context(), sessionID, c.Param("id"))
		if err != nil {
			return err
		}
		if !hasComments {
			comments = row.Comments
		}
		if !hasBy {
			by = row.CommentsGivenBy
		}
	}
	return h.services.Dashboard.EditComments(c.Request.Context(), sessionID, c.Param("id"), comments, by)
}

// writeFailureMessage keeps validation text as is and explains that a failed
// remote write was kept locally
func writeFailureMessage(what string, err error) string {
	if service.IsValidation(err) || errors.Is(err, entity.ErrRecordNotFound) {
		return service.Message(err)
	}
	return what + " not saved: " + service.Message(err)
}

// ViewRecord handles GET /dashboard/records/:id/view
func (h *Handlers) ViewRecord(c *gin.Context) {
	sess := currentSession(c)
	msg, err := h.services.Dashboard.ViewRecord(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	} else {
		h.flashes.Add(sess.ID, FlashInfo, msg)
	}
	h.backToDashboard(c)
}

// DeleteRecord handles POST /dashboard/records/:id/delete
func (h *Handlers) DeleteRecord(c *gin.Context) {
	sess := currentSession(c)
	msg, err := h.services.Dashboard.DeleteRecord(c.Request.Context(), sess.ID, c.Param("id"))
	if err != nil {
		h.flashes.Add(sess.ID, FlashError, service.Message(err))
	} else {
		h.flashes.Add(sess.ID, FlashInfo, msg)
	}
	h.backToDashboard(c)
}

// ExportRecord handles GET /dashboard/records/:id/export
func (h *Handlers) ExportRecord(c *gin.Context) {
	sess := currentSession(c)

	format, err := port.ParseExportFormat(c.Query("format"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.services.Export.ExportAndWait(c.Request.Context(), sess.ID, c.Param("id"), format)
	if err != nil {
		h.logger.Error("Failed to export record",
			"session_id", sess.ID,
			"key", c.Param("id"),
			"format", format,
			"error", err)
		if errors.Is(err, entity.ErrRecordNotFound) {
			c.String(http.StatusNotFound, service.Message(err))
			return
		}
		if errors.Is(err, port.ErrExportQueueFull) {
			c.String(http.StatusServiceUnavailable, "export queue is full, try again")
			return
		}
		c.String(http.StatusInternalServerError, "failed to export record")
		return
	}

	c.Header("Content-Type", res.ContentType)
	if format == port.ExportHTML {
		c.File(res.FullPath)
	} else {
		c.FileAttachment(res.FullPath, res.FileName)
	}

	// the document is rendered per request, so it is not kept once sent
	if err := h.services.Export.Discard(c.Request.Context(), res); err != nil {
		h.logger.Error("Failed to discard export", "session_id", sess.ID, "path", res.Path, "error", err)
	}
}

// FormPage handles GET /form
func (h *Handlers) FormPage(c *gin.Context) {
	sess := currentSession(c)
	h.renderForm(c, http.StatusOK, h.services.Entry.Draft(sess.ID))
}

// SubmitForm handles POST /form
func (h *Handlers) SubmitForm(c *gin.Context) {
	sess := currentSession(c)

	values := make(map[string]string)
	for _, f := range entity.Fields() {
		if v, ok := c.GetPostForm(f.String()); ok {
			values[f.String()] = v
		}
	}
	if err := h.services.Entry.SetFields(sess.ID, values); err != nil {
		h.flashes.Add(sess.ID, FlashError, "Error: "+service.Message(err))
		c.Redirect(http.StatusSeeOther, "/form")
		return
	}

	if err := h.services.Entry.Submit(c.Request.Context(), sess.ID); err != nil {
		if service.IsValidation(err) {
			h.flashes.Add(sess.ID, FlashError, "Error: "+service.Message(err))
		} else {
			h.flashes.Add(sess.ID, FlashError, service.SubmitFailureMessage(err))
		}
		c.Redirect(http.StatusSeeOther, "/form")
		return
	}

	h.flashes.Add(sess.ID, FlashSuccess, service.MsgFormSubmitted)
	c.Redirect(http.StatusSeeOther, "/form")
}

func (h *Handlers) renderForm(c *gin.Context, status int, draft entity.RecordDraft) {
	data := h.page(c, "Data Entry Form")
	data.Draft = draft
	data.StatusOptions = h.portal.StatusOptions
	h.render(c, status, pageForm, data)
}

func (h *Handlers) page(c *gin.Context, title string) pageData {
	sess := currentSession(c)
	data := pageData{
		Title:    title,
		LoggedIn: sess.LoggedIn(),
	}
	if sess != nil {
		data.Flashes = h.flashes.Pop(sess.ID)
	}
	if h.portal.CSRFEnabled {
		data.CSRFField = csrf.TemplateField(c.Request)
	}
	return data
}

func (h *Handlers) render(c *gin.Context, status int, name string, data pageData) {
	body, err := h.pages.render(name, data)
	if err != nil {
		h.logger.Error("Failed to render page", "page", name, "error", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

func (h *Handlers) backToDashboard(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/dashboard")
}
