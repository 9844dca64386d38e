package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// NormalizePriority maps anything unknown to medium.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// ============================================================================
// EVENT
// ============================================================================

// Event is stored with a single UTC instant. AllDay events were entered
// without a time of day: EventAt is local midnight in the creator's zone
// and Date keeps the calendar day so it never shifts for other viewers.
type Event struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	EventAt               time.Time  `json:"event_at"`
	AllDay                bool       `json:"all_day"`
	Date                  string     `json:"date,omitempty"` // YYYY-MM-DD, all-day events only
	Location              string     `json:"location"`
	Description           string     `json:"description"`
	Tasks                 EventTasks `json:"event_tasks"`
	UserID                string     `json:"user_id"`
	CompanyID             string     `json:"company_id"`
	OneWeekReminderSentAt *time.Time `json:"one_week_reminder_sent_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// EventTask is a sub-task embedded in an event.
type EventTask struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  string  `json:"assigned_to"`
	Completed   bool    `json:"completed"`
	DueDate     string  `json:"due_date"` // YYYY-MM-DD
	Priority    string  `json:"priority"`
	Expense     float64 `json:"expense"`
}

// EventTasks is the JSONB event_tasks column.
type EventTasks []EventTask

func (t EventTasks) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *EventTasks) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = EventTasks{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into EventTasks", src)
	}
	if len(data) == 0 {
		*t = EventTasks{}
		return nil
	}
	var out EventTasks
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	if out == nil {
		out = EventTasks{}
	}
	*t = out
	return nil
}

// Completion returns completed and total sub-task counts.
func (t EventTasks) Completion() (completed, total int) {
	for _, task := range t {
		if task.Completed {
			completed++
		}
	}
	return completed, len(t)
}

// CompletionPercent is the integer percentage of completed sub-tasks, 0
// when there are none.
func (t EventTasks) CompletionPercent() int {
	completed, total := t.Completion()
	if total == 0 {
		return 0
	}
	return completed * 100 / total
}

func (t EventTasks) TotalExpense() float64 {
	var sum float64
	for _, task := range t {
		sum += task.Expense
	}
	return sum
}

// Find returns the index of a sub-task, -1 when absent.
func (t EventTasks) Find(id string) int {
	for i, task := range t {
		if task.ID == id {
			return i
		}
	}
	return -1
}

// ============================================================================
// REQUESTS & VIEWS
// ============================================================================

// EventTaskInput is a sub-task as sent by the client.
type EventTaskInput struct {
	ID          string   `json:"id"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	AssignedTo  string   `json:"assigned_to"`
	Completed   bool     `json:"completed"`
	DueDate     string   `json:"due_date"`
	Priority    string   `json:"priority"`
	Expense     *float64 `json:"expense"`
}

// EventRequest carries the local date and optional time as typed by the
// user; they are converted with the caller's profile timezone.
type EventRequest struct {
	Title       string           `json:"title" binding:"required,max=255"`
	Date        string           `json:"date" binding:"required"`
	Time        string           `json:"time"`
	Location    string           `json:"location"`
	Description string           `json:"description"`
	CompanyID   string           `json:"company_id"`
	Tasks       []EventTaskInput `json:"event_tasks" binding:"dive"`
}

type ToggleEventTaskRequest struct {
	Completed *bool `json:"completed"`
}

// EventView is an event with its local rendering for the caller.
type EventView struct {
	Event
	LocalDate string `json:"local_date"`
	LocalTime string `json:"local_time"`
	Display   string `json:"display"`
	Timezone  string `json:"timezone"`
}
