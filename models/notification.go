package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PushSubscription is the browser PushSubscription JSON.
type PushSubscription struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

func (s PushSubscription) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *PushSubscription) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into PushSubscription", src)
	}
}

// EmailSettings is the single email_settings row.
type EmailSettings struct {
	SendingKey       string    `json:"sending_key"`
	APIEndpoint      string    `json:"api_endpoint"`
	DefaultSender    string    `json:"default_sender"`
	SchedulerEnabled bool      `json:"scheduler_enabled"`
	ReminderTime     string    `json:"reminder_time"` // HH:MM UTC
	UpdatedAt        time.Time `json:"updated_at"`
}

type UpdateEmailSettingsRequest struct {
	SendingKey       *string `json:"sending_key"`
	APIEndpoint      *string `json:"api_endpoint"`
	DefaultSender    *string `json:"default_sender"`
	SchedulerEnabled *bool   `json:"scheduler_enabled"`
	ReminderTime     *string `json:"reminder_time"`
}

type EmailTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type EmailTemplateRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject" binding:"required"`
	HTMLContent string `json:"html_content" binding:"required"`
}

// TaskAssignedNotice describes a sub-task assignment for email and push.
type TaskAssignedNotice struct {
	AssignedToEmail string `json:"assigned_to_email" binding:"required,email"`
	AssignedToName  string `json:"assigned_to_name"`
	AssignedByName  string `json:"assigned_by_name"`
	AssignedByEmail string `json:"assigned_by_email"`
	EventTitle      string `json:"event_title"`
	EventDate       string `json:"event_date"`
	EventTime       string `json:"event_time"`
	CompanyName     string `json:"company_name"`
	TaskTitle       string `json:"task_title" binding:"required"`
	TaskDescription string `json:"task_description"`
	DueDate         string `json:"due_date"`
}

type SchedulerControlRequest struct {
	Action string `json:"action" binding:"required,oneof=start stop"`
}

type SchedulerStatus struct {
	IsRunning    bool       `json:"is_running"`
	JobScheduled bool       `json:"job_scheduled"`
	NextRunTime  *time.Time `json:"next_run_time"`
	ReminderTime string     `json:"reminder_time,omitempty"`
}

type TestEmailRequest struct {
	To           string         `json:"to" binding:"required,email"`
	TemplateName string         `json:"template_name"`
	Data         map[string]any `json:"data"`
}

type TestPushRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// PushPayload is what the service worker receives.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}
