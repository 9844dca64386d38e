package models

import (
	"time"
)

// Task is a standalone to-do. DueDate is a date-only YYYY-MM-DD string,
// empty when the task has no due date.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"due_date"`
	Priority    string    `json:"priority"`
	Category    string    `json:"category"`
	Completed   bool      `json:"completed"`
	Dismissed   bool      `json:"dismissed"`
	Expense     float64   `json:"expense"`
	UserID      string    `json:"user_id"`
	CompanyID   string    `json:"company_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOverdue is derived, never stored: due before today, not completed and
// not dismissed. today is a YYYY-MM-DD string in the viewer's zone, so the
// comparison is a plain calendar-date comparison.
func (t Task) IsOverdue(today string) bool {
	if t.DueDate == "" || t.Completed || t.Dismissed {
		return false
	}
	return t.DueDate < today
}

type TaskRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
	Expense     *float64 `json:"expense"`
	CompanyID   string   `json:"company_id"`
}

type TaskView struct {
	Task
	IsOverdue bool `json:"is_overdue"`
}

type CompleteTaskRequest struct {
	Completed *bool `json:"completed"`
}
