package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type EventService struct {
	db *sql.DB
}

func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

const eventColumns = `
	id, title, event_at, all_day, COALESCE(date, ''), location, description, event_tasks,
	user_id, company_id, one_week_reminder_sent_at, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (models.Event, error) {
	var (
		e        models.Event
		eventAt  sql.NullTime
		reminded sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Title, &eventAt, &e.AllDay, &e.Date, &e.Location, &e.Description, &e.Tasks,
		&e.UserID, &e.CompanyID, &reminded, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	if eventAt.Valid {
		e.EventAt = eventAt.Time.UTC()
	}
	if reminded.Valid {
		t := reminded.Time
		e.OneWeekReminderSentAt = &t
	}
	if !e.AllDay {
		e.Date = ""
	}
	return e, nil
}

// ============================================================================
// CONVERSION
// ============================================================================

// SessionTimezone is the zone used to read typed dates for a session,
// UTC when the profile has none.
func SessionTimezone(sess *models.Session) string {
	if sess != nil && utils.IsValidTimezone(sess.Timezone) {
		return sess.Timezone
	}
	return "UTC"
}

// ResolveEventTime converts a typed date and optional time into the stored
// instant. An empty time makes the event all-day.
func ResolveEventTime(date, clock, tz string) (eventAt time.Time, allDay bool, err error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	eventAt, err = utils.LocalToUTC(date, clock, tz)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return eventAt, clock == "", nil
}

// ToEventView renders an event in the viewer's timezone. All-day events
// keep their calendar date whatever the viewer's zone.
func ToEventView(e models.Event, tz string) models.EventView {
	view := models.EventView{Event: e, Timezone: tz}
	if e.AllDay && e.Date != "" {
		view.LocalDate = e.Date
		if d, ok := utils.ParseLocalDate(e.Date, time.UTC); ok {
			view.Display = utils.FormatPrettyDate(d)
		}
		return view
	}
	local, ok := utils.InUserTimezone(e.EventAt, tz)
	if !ok {
		return view
	}
	view.LocalDate = utils.FormatYYYYMMDD(local)
	if e.AllDay {
		view.Display = utils.FormatPrettyDate(local)
		return view
	}
	view.LocalTime = utils.FormatHHMM(local)
	view.Display = utils.FormatEventDisplay(local)
	return view
}

func ToEventViews(events []models.Event, tz string) []models.EventView {
	views := make([]models.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, ToEventView(e, tz))
	}
	return views
}

// BuildEventTasks normalises submitted sub-tasks: ids are generated when
// missing, priorities normalised, expenses default to 0 and the assignee
// defaults to the caller.
func BuildEventTasks(inputs []models.EventTaskInput, callerEmail string) (models.EventTasks, error) {
	tasks := make(models.EventTasks, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: sub-task title is required", ErrInvalidInput)
		}
		due := strings.TrimSpace(in.DueDate)
		if due != "" {
			if _, ok := utils.ParseLocalDate(due, time.UTC); !ok {
				return nil, fmt.Errorf("%w: sub-task due date must be YYYY-MM-DD", ErrInvalidInput)
			}
		}
		id := strings.TrimSpace(in.ID)
		if _, err := uuid.Parse(id); err != nil || seen[id] {
			id = uuid.New().String()
		}
		seen[id] = true

		assignee := strings.ToLower(strings.TrimSpace(in.AssignedTo))
		if assignee == "" {
			assignee = strings.ToLower(callerEmail)
		}
		var expense float64
		if in.Expense != nil && *in.Expense > 0 {
			expense = *in.Expense
		}
		tasks = append(tasks, models.EventTask{
			ID:          id,
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			AssignedTo:  assignee,
			Completed:   in.Completed,
			DueDate:     due,
			Priority:    models.NormalizePriority(in.Priority),
			Expense:     expense,
		})
	}
	return tasks, nil
}

// NewlyAssigned returns sub-tasks whose assignee changed (or that are new)
// compared to before, excluding those assigned to the caller.
func NewlyAssigned(before, after models.EventTasks, callerEmail string) []models.EventTask {
	previous := make(map[string]string, len(before))
	for _, t := range before {
		previous[t.ID] = strings.ToLower(t.AssignedTo)
	}
	var out []models.EventTask
	for _, t := range after {
		assignee := strings.ToLower(t.AssignedTo)
		if assignee == "" || strings.EqualFold(assignee, callerEmail) {
			continue
		}
		if prev, ok := previous[t.ID]; ok && prev == assignee {
			continue
		}
		out = append(out, t)
	}
	return out
}

// CanEditEvent: the creator, or an owner/admin of the event's company.
func CanEditEvent(sess *models.Session, e models.Event) bool {
	if sess == nil {
		return false
	}
	return e.UserID == sess.UserID || models.CanManage(sess.RoleIn(e.CompanyID))
}

// CanToggleEventTask: the event creator or the sub-task assignee.
func CanToggleEventTask(sess *models.Session, e models.Event, task models.EventTask) bool {
	if sess == nil {
		return false
	}
	return e.UserID == sess.UserID || (task.AssignedTo != "" && strings.EqualFold(task.AssignedTo, sess.Email))
}

// ============================================================================
// PERSISTENCE
// ============================================================================

// EventChange is the result of a write: the stored event and the sub-tasks
// that need an assignment notification.
type EventChange struct {
	Event         models.Event
	NewAssignment []models.EventTask
}

func (s *EventService) Create(ctx context.Context, sess *models.Session, req models.EventRequest) (*EventChange, error) {
	companyID := strings.TrimSpace(req.CompanyID)
	if companyID == "" {
		companyID = sess.CurrentCompanyID
	}
	if !sess.IsMember(companyID) {
		return nil, ErrNotMember
	}

	eventAt, allDay, err := ResolveEventTime(req.Date, req.Time, SessionTimezone(sess))
	if err != nil {
		return nil, err
	}
	tasks, err := BuildEventTasks(req.Tasks, sess.Email)
	if err != nil {
		return nil, err
	}

	e := models.Event{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		EventAt:     eventAt,
		AllDay:      allDay,
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
		Tasks:       tasks,
		UserID:      sess.UserID,
		CompanyID:   companyID,
		CreatedAt:   time.Now().UTC(),
	}
	e.UpdatedAt = e.CreatedAt
	if allDay {
		e.Date = strings.TrimSpace(req.Date)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, event_at, all_day, date, location, description, event_tasks,
		                    user_id, company_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $11)
	`, e.ID, e.Title, e.EventAt, e.AllDay, e.Date, e.Location, e.Description, e.Tasks,
		e.UserID, e.CompanyID, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	utils.LogEventAction("Event created", e.ID, sess.UserID)
	return &EventChange{Event: e, NewAssignment: NewlyAssigned(nil, tasks, sess.Email)}, nil
}

// Get loads an event the caller can see.
func (s *EventService) Get(ctx context.Context, sess *models.Session, eventID string) (*models.Event, error) {
	e, err := s.load(ctx, s.db, eventID, false)
	if err != nil {
		return nil, err
	}
	if !sess.IsMember(e.CompanyID) {
		return nil, ErrNotMember
	}
	return e, nil
}

func (s *EventService) load(ctx context.Context, q querier, eventID string, forUpdate bool) (*models.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, ErrNotFound
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanEvent(q.QueryRowContext(ctx, query, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return &e, nil
}

func (s *EventService) Update(ctx context.Context, sess *models.Session, eventID string, req models.EventRequest) (*EventChange, error) {
	var change *EventChange
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		current, err := s.load(ctx, tx, eventID, true)
		if err != nil {
			return err
		}
		if !sess.IsMember(current.CompanyID) {
			return ErrNotMember
		}
		if !CanEditEvent(sess, *current) {
			return ErrForbidden
		}

		eventAt, allDay, err := ResolveEventTime(req.Date, req.Time, SessionTimezone(sess))
		if err != nil {
			return err
		}
		tasks, err := BuildEventTasks(req.Tasks, sess.Email)
		if err != nil {
			return err
		}

		updated := *current
		updated.Title = strings.TrimSpace(req.Title)
		updated.EventAt = eventAt
		updated.AllDay = allDay
		updated.Date = ""
		if allDay {
			updated.Date = strings.TrimSpace(req.Date)
		}
		updated.Location = strings.TrimSpace(req.Location)
		updated.Description = strings.TrimSpace(req.Description)
		updated.Tasks = tasks
		updated.UpdatedAt = time.Now().UTC()

		// moving the event re-arms the one-week reminder
		resetReminder := !current.EventAt.Equal(eventAt)
		if resetReminder {
			updated.OneWeekReminderSentAt = nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET title = $1, event_at = $2, all_day = $3, date = NULLIF($4, ''), location = $5,
			    description = $6, event_tasks = $7, updated_at = $8,
			    one_week_reminder_sent_at = CASE WHEN $9 THEN NULL ELSE one_week_reminder_sent_at END
			WHERE id = $10
		`, updated.Title, updated.EventAt, updated.AllDay, updated.Date, updated.Location,
			updated.Description, updated.Tasks, updated.UpdatedAt, resetReminder, updated.ID)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		change = &EventChange{Event: updated, NewAssignment: NewlyAssigned(current.Tasks, tasks, sess.Email)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogEventAction("Event updated", eventID, sess.UserID)
	return change, nil
}

func (s *EventService) Delete(ctx context.Context, sess *models.Session, eventID string) (*models.Event, error) {
	e, err := s.Get(ctx, sess, eventID)
	if err != nil {
		return nil, err
	}
	if !CanEditEvent(sess, *e) {
		return nil, ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, eventID); err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}
	utils.LogEventAction("Event deleted", eventID, sess.UserID)
	return e, nil
}

// ToggleTask flips (or sets) a sub-task's completion. The whole list is
// rewritten in one statement inside a transaction, so a failure leaves the
// previous state in place.
func (s *EventService) ToggleTask(ctx context.Context, sess *models.Session, eventID, taskID string, completed *bool) (*models.Event, error) {
	var result *models.Event
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		e, err := s.load(ctx, tx, eventID, true)
		if err != nil {
			return err
		}
		if !sess.IsMember(e.CompanyID) {
			return ErrNotMember
		}
		i := e.Tasks.Find(taskID)
		if i < 0 {
			return ErrNotFound
		}
		if !CanToggleEventTask(sess, *e, e.Tasks[i]) {
			return ErrForbidden
		}

		tasks := make(models.EventTasks, len(e.Tasks))
		copy(tasks, e.Tasks)
		if completed != nil {
			tasks[i].Completed = *completed
		} else {
			tasks[i].Completed = !tasks[i].Completed
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE events SET event_tasks = $1, updated_at = $2 WHERE id = $3
		`, tasks, now, e.ID); err != nil {
			return fmt.Errorf("update event tasks: %w", err)
		}
		e.Tasks = tasks
		e.UpdatedAt = now
		result = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.LogEventAction("Sub-task toggled", eventID, sess.UserID)
	return result, nil
}

// ListForCompany returns a company's events in chronological order.
func (s *EventService) ListForCompany(ctx context.Context, sess *models.Session, companyID string) ([]models.Event, error) {
	if !sess.IsMember(companyID) {
		return nil, ErrNotMember
	}
	return s.query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE company_id = $1 AND event_at IS NOT NULL
		ORDER BY event_at ASC
	`, companyID)
}

// ListOwned returns events created by a user, for data export.
func (s *EventService) ListOwned(ctx context.Context, userID string) ([]models.Event, error) {
	return s.query(ctx, `
		SELECT `+eventColumns+` FROM events WHERE user_id = $1 ORDER BY event_at ASC NULLS LAST
	`, userID)
}

func (s *EventService) query(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
