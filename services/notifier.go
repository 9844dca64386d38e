package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// notifyTimeout bounds fire-and-forget sends started from request handlers.
const notifyTimeout = 30 * time.Second

// Notifier fans domain events out to email and push.
type Notifier struct {
	db    *sql.DB
	email *EmailService
	push  *PushService
}

func NewNotifier(db *sql.DB, email *EmailService, push *PushService) *Notifier {
	return &Notifier{db: db, email: email, push: push}
}

// Background runs fn detached from the request with its own timeout. Errors
// are only logged.
func (n *Notifier) Background(channel, kind, recipient string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		utils.LogNotification(channel, kind, recipient, fn(ctx))
	}()
}

type recipient struct {
	ID            string
	Name          string
	Timezone      string
	Notifications models.NotificationPreferences
}

func (n *Notifier) lookup(ctx context.Context, email string) (*recipient, error) {
	var r recipient
	err := n.db.QueryRowContext(ctx, `
		SELECT id, name, timezone, notifications FROM users WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&r.ID, &r.Name, &r.Timezone, &r.Notifications)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}
	return &r, nil
}

// ============================================================================
// TASK ASSIGNED
// ============================================================================

// AssignmentNotice describes a sub-task assignment, with the event date
// and time rendered in tz.
func AssignmentNotice(e models.Event, task models.EventTask, sess *models.Session, companyName, tz string) models.TaskAssignedNotice {
	view := ToEventView(e, tz)
	notice := models.TaskAssignedNotice{
		AssignedToEmail: task.AssignedTo,
		AssignedByName:  sess.Name,
		AssignedByEmail: sess.Email,
		EventTitle:      e.Title,
		CompanyName:     companyName,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		DueDate:         task.DueDate,
	}
	if view.LocalDate != "" {
		if d, ok := utils.ParseLocalDate(view.LocalDate, time.UTC); ok {
			notice.EventDate = utils.FormatPrettyDate(d)
		}
	}
	notice.EventTime = "All day"
	if view.LocalTime != "" {
		if local, ok := utils.InUserTimezone(e.EventAt, tz); ok {
			notice.EventTime = utils.FormatTime(local)
		}
	}
	return notice
}

func taskAssignedData(n models.TaskAssignedNotice) map[string]any {
	assignee := n.AssignedToName
	if assignee == "" {
		assignee = n.AssignedToEmail
	}
	due := n.DueDate
	if due == "" {
		due = "No due date"
	}
	return map[string]any{
		"assignee_name":     assignee,
		"assigned_by_name":  n.AssignedByName,
		"assigned_by_email": n.AssignedByEmail,
		"event_title":       n.EventTitle,
		"event_date":        n.EventDate,
		"event_time":        n.EventTime,
		"company_name":      n.CompanyName,
		"task_title":        n.TaskTitle,
		"task_description":  n.TaskDescription,
		"due_date":          due,
	}
}

// TaskAssigned emails the assignee and pushes to them when they are a
// registered user who opted into push.
func (n *Notifier) TaskAssigned(ctx context.Context, notice models.TaskAssignedNotice) error {
	to := strings.ToLower(strings.TrimSpace(notice.AssignedToEmail))
	user, err := n.lookup(ctx, to)
	if err != nil {
		return err
	}
	if user != nil && notice.AssignedToName == "" {
		notice.AssignedToName = user.Name
	}

	emailErr := n.email.SendTemplate(ctx, utils.TemplateTaskAssigned, to, taskAssignedData(notice))
	utils.LogNotification("email", "task_assigned", to, emailErr)

	if user != nil && user.Notifications.Push && n.push.Configured() {
		pushErr := n.push.SendToUser(ctx, user.ID, models.PushPayload{
			Title: "New task assigned",
			Body:  fmt.Sprintf("%s assigned you \"%s\" for %s", notice.AssignedByName, notice.TaskTitle, notice.EventTitle),
			URL:   "/events",
		})
		utils.LogNotification("push", "task_assigned", to, pushErr)
	}
	return emailErr
}

// NotifyAssignments sends task-assigned notices for newly assigned
// sub-tasks in the background, one per assignee.
func (n *Notifier) NotifyAssignments(sess *models.Session, change *EventChange, companyName string) {
	if change == nil {
		return
	}
	for _, task := range change.NewAssignment {
		notice := AssignmentNotice(change.Event, task, sess, companyName, SessionTimezone(sess))
		n.Background("email", "task_assigned", notice.AssignedToEmail, func(ctx context.Context) error {
			return n.TaskAssigned(ctx, notice)
		})
	}
}

// ============================================================================
// ACCOUNT & INVITATIONS
// ============================================================================

func (n *Notifier) Welcome(user models.User) {
	n.Background("email", "welcome", user.Email, func(ctx context.Context) error {
		return n.email.SendTemplate(ctx, utils.TemplateWelcome, user.Email, map[string]any{
			"user_name": user.Name,
		})
	})
}

// InvitationData is the template context for invitation_to_company.
func InvitationData(inv models.Invitation) map[string]any {
	role := inv.Role
	if role != "" {
		role = strings.ToUpper(role[:1]) + role[1:]
	}
	return map[string]any{
		"sender_email": inv.SenderEmail,
		"company_name": inv.CompanyName,
		"role":         role,
	}
}

func (n *Notifier) Invitation(inv models.Invitation) {
	n.Background("email", "invitation", inv.RecipientEmail, func(ctx context.Context) error {
		return n.email.SendTemplate(ctx, utils.TemplateInvitation, inv.RecipientEmail, InvitationData(inv))
	})
}
