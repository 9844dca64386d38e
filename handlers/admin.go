package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/migration"
	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// AdminHandler serves the routes behind RequireAdmin.
type AdminHandler struct {
	DB        *sql.DB
	Email     *services.EmailService
	Push      *services.PushService
	Scheduler *services.ReminderScheduler
}

// ============================================================================
// SCHEDULER
// ============================================================================

func (h *AdminHandler) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Scheduler.Status())
}

func (h *AdminHandler) ControlScheduler(c *gin.Context) {
	var req models.SchedulerControlRequest
	if !bindJSON(c, &req) {
		return
	}

	switch req.Action {
	case "start":
		if err := h.Scheduler.Start(c.Request.Context()); err != nil {
			respondError(c, err, "start scheduler")
			return
		}
	case "stop":
		h.Scheduler.Stop()
	}

	log.Printf("🔧 Scheduler %s by %s", req.Action, utils.MaskEmail(middleware.GetUserEmail(c)))
	c.JSON(http.StatusOK, gin.H{"message": "Scheduler " + req.Action, "status": h.Scheduler.Status()})
}

// RunReminders runs the one-week reminder job now, outside the schedule.
func (h *AdminHandler) RunReminders(c *gin.Context) {
	sent, err := h.Scheduler.RunOnce(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondError(c, err, "run reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

// ============================================================================
// EMAIL SETTINGS
// ============================================================================

func maskedSettings(st *models.EmailSettings) *models.EmailSettings {
	out := *st
	out.SendingKey = utils.MaskSecret(st.SendingKey)
	return &out
}

func (h *AdminHandler) GetEmailSettings(c *gin.Context) {
	st, err := h.Email.Settings(c.Request.Context())
	if err != nil {
		respondError(c, err, "load email settings")
		return
	}
	c.JSON(http.StatusOK, maskedSettings(st))
}

// UpdateEmailSettings saves the settings and reschedules the reminder job
// so a new reminder time or enabled flag applies immediately.
func (h *AdminHandler) UpdateEmailSettings(c *gin.Context) {
	var req models.UpdateEmailSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	st, err := h.Email.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "update email settings")
		return
	}

	if err := h.Scheduler.Reschedule(c.Request.Context()); err != nil {
		utils.SafeError("Reschedule after settings update: %v", err)
	}

	c.JSON(http.StatusOK, maskedSettings(st))
}

// ============================================================================
// TEMPLATES
// ============================================================================

func (h *AdminHandler) GetTemplates(c *gin.Context) {
	templates, err := h.Email.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err, "list templates")
		return
	}
	if templates == nil {
		templates = []models.EmailTemplate{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *AdminHandler) GetTemplate(c *gin.Context) {
	tmpl, err := h.Email.Template(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err, "load template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *AdminHandler) CreateTemplate(c *gin.Context) {
	var req models.EmailTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template name is required"})
		return
	}

	tmpl, err := h.Email.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "create template")
		return
	}
	c.JSON(http.StatusCreated, tmpl)
}

func (h *AdminHandler) UpdateTemplate(c *gin.Context) {
	var req models.EmailTemplateRequest
	if !bindJSON(c, &req) {
		return
	}

	tmpl, err := h.Email.UpdateTemplate(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		respondError(c, err, "update template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *AdminHandler) DeleteTemplate(c *gin.Context) {
	if err := h.Email.DeleteTemplate(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, err, "delete template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

// ============================================================================
// TEST SENDS
// ============================================================================

func (h *AdminHandler) SendTestEmail(c *gin.Context) {
	var req models.TestEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.Email.Configured(c.Request.Context()) {
		respondError(c, services.ErrNotConfigured, "send test email")
		return
	}

	name := strings.TrimSpace(req.TemplateName)
	if name == "" {
		name = utils.TemplateWelcome
	}
	data := req.Data
	if data == nil {
		data = map[string]any{"user_name": "Test User"}
	}

	if err := h.Email.SendTemplate(c.Request.Context(), name, req.To, data); err != nil {
		utils.LogNotification("email", "test", req.To, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Failed to send test email: %v", err)})
		return
	}

	utils.LogNotification("email", "test", req.To, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent to " + req.To})
}

// SendTestPush pushes to the given user, or to the calling admin.
func (h *AdminHandler) SendTestPush(c *gin.Context) {
	var req models.TestPushRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = middleware.GetUserID(c)
	}
	title, body := req.Title, req.Body
	if title == "" {
		title = "DayClap test notification"
	}
	if body == "" {
		body = "Push notifications are working."
	}

	if err := h.Push.SendToUser(c.Request.Context(), userID, models.PushPayload{Title: title, Body: body, URL: "/"}); err != nil {
		utils.LogNotification("push", "test", userID, err)
		respondError(c, err, "send test push")
		return
	}

	utils.LogNotification("push", "test", userID, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Test push sent"})
}

// ============================================================================
// MIGRATIONS
// ============================================================================

// MigrateEvents converts legacy date/time events to event_at.
// POST /api/v1/admin/migrate-events
func (h *AdminHandler) MigrateEvents(c *gin.Context) {
	result, err := migration.MigrateEventDateTimes(c.Request.Context(), h.DB)
	if err != nil {
		respondError(c, err, "migrate events")
		return
	}
	c.JSON(http.StatusOK, result)
}
