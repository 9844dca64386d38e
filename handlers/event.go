package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/dayclap-api/middleware"
	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/services"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const maxCalendarUpload = 2 << 20

type EventHandler struct {
	Events    *services.EventService
	Tasks     *services.TaskService
	Companies *services.CompanyService
	Notifier  *services.Notifier
	WS        *WSHandler
}

// companyName is best effort; notifications still go out without it.
func (h *EventHandler) companyName(c *gin.Context, companyID, userID string) string {
	company, err := h.Companies.Get(c.Request.Context(), companyID, userID)
	if err != nil {
		utils.SafeWarn("Company name lookup for %s: %v", companyID, err)
		return ""
	}
	return company.Name
}

func (h *EventHandler) notify(c *gin.Context, sess *models.Session, change *services.EventChange) {
	if h.Notifier == nil || change == nil || len(change.NewAssignment) == 0 {
		return
	}
	h.Notifier.NotifyAssignments(sess, change, h.companyName(c, change.Event.CompanyID, sess.UserID))
}

// ============================================================================
// CRUD
// ============================================================================

func (h *EventHandler) CreateEvent(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.EventRequest
	if !bindJSON(c, &req) {
		return
	}

	change, err := h.Events.Create(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err, "create event")
		return
	}

	h.notify(c, sess, change)
	h.WS.Broadcast(change.Event.CompanyID, Update{Type: "created", Entity: "event", ID: change.Event.ID, User: sess.UserID})
	c.JSON(http.StatusCreated, services.ToEventView(change.Event, services.SessionTimezone(sess)))
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	e, err := h.Events.Get(c.Request.Context(), sess, c.Param("eventId"))
	if err != nil {
		respondError(c, err, "load event")
		return
	}

	c.JSON(http.StatusOK, services.ToEventView(*e, services.SessionTimezone(sess)))
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.EventRequest
	if !bindJSON(c, &req) {
		return
	}

	change, err := h.Events.Update(c.Request.Context(), sess, c.Param("eventId"), req)
	if err != nil {
		respondError(c, err, "update event")
		return
	}

	h.notify(c, sess, change)
	h.WS.Broadcast(change.Event.CompanyID, Update{Type: "updated", Entity: "event", ID: change.Event.ID, User: sess.UserID})
	c.JSON(http.StatusOK, services.ToEventView(change.Event, services.SessionTimezone(sess)))
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	e, err := h.Events.Delete(c.Request.Context(), sess, c.Param("eventId"))
	if err != nil {
		respondError(c, err, "delete event")
		return
	}

	h.WS.Broadcast(e.CompanyID, Update{Type: "deleted", Entity: "event", ID: e.ID, User: sess.UserID})
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted"})
}

func (h *EventHandler) ToggleEventTask(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req models.ToggleEventTaskRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	e, err := h.Events.ToggleTask(c.Request.Context(), sess, c.Param("eventId"), c.Param("taskId"), req.Completed)
	if err != nil {
		respondError(c, err, "update sub-task")
		return
	}

	h.WS.Broadcast(e.CompanyID, Update{Type: "toggled", Entity: "event", ID: e.ID, User: sess.UserID})
	c.JSON(http.StatusOK, services.ToEventView(*e, services.SessionTimezone(sess)))
}

// ============================================================================
// LISTINGS
// ============================================================================

func (h *EventHandler) GetEvents(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	rng, ranged, keyword, ok := rangeQuery(c)
	if !ok {
		return
	}

	events, err := h.Events.ListForCompany(c.Request.Context(), sess, companyParam(c, sess))
	if err != nil {
		respondError(c, err, "list events")
		return
	}

	events = services.FilterEvents(events, rng, ranged)
	c.JSON(http.StatusOK, gin.H{
		"events": services.ToEventViews(events, services.SessionTimezone(sess)),
		"range":  keyword,
	})
}

func (h *EventHandler) GetUpcomingEvents(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	rng, ranged, keyword, ok := rangeQuery(c)
	if !ok {
		return
	}

	events, err := h.Events.ListForCompany(c.Request.Context(), sess, companyParam(c, sess))
	if err != nil {
		respondError(c, err, "list upcoming events")
		return
	}

	events = services.UpcomingEvents(events, middleware.ClientNow(c), rng, ranged)
	c.JSON(http.StatusOK, gin.H{
		"events": services.ToEventViews(events, services.SessionTimezone(sess)),
		"range":  keyword,
	})
}

// GetDayItems returns the events and tasks of one calendar day.
func (h *EventHandler) GetDayItems(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	date := c.Param("date")
	if _, ok := utils.ParseLocalDate(date, time.UTC); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	events, tasks, ok := h.companyItems(c, sess)
	if !ok {
		return
	}

	items := services.ItemsForDate(date, events, tasks, middleware.ClientLocation(c))
	c.JSON(http.StatusOK, gin.H{
		"date":   items.Date,
		"events": services.ToEventViews(items.Events, services.SessionTimezone(sess)),
		"tasks":  services.ToTaskViews(items.Tasks, middleware.ClientToday(c)),
	})
}

func (h *EventHandler) Search(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search term is required"})
		return
	}

	events, tasks, ok := h.companyItems(c, sess)
	if !ok {
		return
	}

	result := services.SearchItems(events, tasks, term)
	c.JSON(http.StatusOK, gin.H{
		"events": services.ToEventViews(result.Events, services.SessionTimezone(sess)),
		"tasks":  services.ToTaskViews(result.Tasks, middleware.ClientToday(c)),
	})
}

func (h *EventHandler) companyItems(c *gin.Context, sess *models.Session) ([]models.Event, []models.Task, bool) {
	companyID := companyParam(c, sess)
	events, err := h.Events.ListForCompany(c.Request.Context(), sess, companyID)
	if err != nil {
		respondError(c, err, "list events")
		return nil, nil, false
	}
	tasks, err := h.Tasks.ListForCompany(c.Request.Context(), sess, companyID)
	if err != nil {
		respondError(c, err, "list tasks")
		return nil, nil, false
	}
	return events, tasks, true
}

// ============================================================================
// ICALENDAR
// ============================================================================

func (h *EventHandler) ExportCalendar(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	events, err := h.Events.ListForCompany(c.Request.Context(), sess, companyID)
	if err != nil {
		respondError(c, err, "export calendar")
		return
	}

	name := h.companyName(c, companyID, sess.UserID)
	if name == "" {
		name = "DayClap"
	}
	body := services.BuildCalendar(name, events, time.Now())

	c.Header("Content-Disposition", `attachment; filename="dayclap.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// ImportCalendar creates one event per VEVENT of an uploaded .ics body.
func (h *EventHandler) ImportCalendar(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	if !sess.IsMember(companyID) {
		respondError(c, services.ErrNotMember, "import calendar")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCalendarUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read calendar"})
		return
	}
	imported, err := services.ParseCalendarEvents(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tz := services.SessionTimezone(sess)
	created := make([]models.EventView, 0, len(imported))
	for _, ev := range imported {
		change, err := h.Events.Create(c.Request.Context(), sess, services.ImportRequest(ev, companyID, tz))
		if err != nil {
			utils.SafeWarn("Calendar import skipped %q: %v", ev.Title, err)
			continue
		}
		created = append(created, services.ToEventView(change.Event, tz))
	}

	if len(created) > 0 {
		h.WS.Broadcast(companyID, Update{Type: "created", Entity: "event", User: sess.UserID})
	}
	c.JSON(http.StatusOK, gin.H{
		"imported": len(created),
		"skipped":  len(imported) - len(created),
		"events":   created,
	})
}
