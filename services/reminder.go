package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const (
	ReminderJobID       = "daily_event_reminders"
	DefaultReminderTime = "02:00"

	reminderJobTimeout = 10 * time.Minute
)

// ParseReminderTime reads an HH:MM (UTC) string.
func ParseReminderTime(s string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// buildDailySpec returns a seconds-enabled cron spec. Invalid times fall
// back to 02:00.
func buildDailySpec(timeStr string) string {
	hour, minute, ok := ParseReminderTime(timeStr)
	if !ok {
		utils.SafeWarn("Invalid reminder_time %q, defaulting to %s", timeStr, DefaultReminderTime)
		hour, minute, _ = ParseReminderTime(DefaultReminderTime)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour)
}

// DueForWeekReminder reports whether the event falls exactly seven days
// after today, both dates taken in the owner's timezone.
func DueForWeekReminder(e models.Event, ownerTZ string, now time.Time) bool {
	loc, err := utils.LoadLocation(ownerTZ)
	if err != nil {
		loc = time.UTC
	}
	target := utils.FormatYYYYMMDD(now.In(loc).AddDate(0, 0, 7))
	return EventLocalDate(e, loc) == target
}

// ReminderData is the template context for event_1week_reminder.
func ReminderData(userName string, e models.Event, tz string) map[string]any {
	view := ToEventView(e, tz)

	eventDate := view.LocalDate
	if d, ok := utils.ParseLocalDate(view.LocalDate, time.UTC); ok {
		eventDate = d.Format("January 02, 2006")
	}
	eventTime := "N/A"
	if view.LocalTime != "" {
		if local, ok := utils.InUserTimezone(e.EventAt, tz); ok {
			eventTime = utils.FormatTime(local)
		}
	}

	done, total := e.Tasks.Completion()
	return map[string]any{
		"user_name":                  userName,
		"event_title":                e.Title,
		"event_date":                 eventDate,
		"event_time":                 eventTime,
		"event_location":             e.Location,
		"event_description":          e.Description,
		"has_tasks":                  total > 0,
		"pending_tasks_count":        total - done,
		"task_completion_percentage": fmt.Sprintf("%d%%", e.Tasks.CompletionPercent()),
	}
}

// ============================================================================
// SCHEDULER
// ============================================================================

// ReminderScheduler owns the cron runner and the single daily reminder job.
type ReminderScheduler struct {
	db    *sql.DB
	email *EmailService

	mu        sync.Mutex
	cron      *cron.Cron
	entryID   cron.EntryID
	scheduled bool
	running   bool
	spec      string
	timeStr   string
}

func NewReminderScheduler(db *sql.DB, email *EmailService) *ReminderScheduler {
	return &ReminderScheduler{
		db:    db,
		email: email,
		cron:  cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
	}
}

// Start runs the cron loop (if needed) and (re)schedules the job from the
// current settings. A disabled scheduler starts with no job.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.cron.Start()
		s.running = true
		log.Println("⏰ Reminder scheduler started")
	}
	return s.scheduleLocked(ctx)
}

// Reschedule applies changed settings when the scheduler is running.
func (s *ReminderScheduler) Reschedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.scheduleLocked(ctx)
}

func (s *ReminderScheduler) scheduleLocked(ctx context.Context) error {
	settings, err := s.email.Settings(ctx)
	if err != nil {
		return err
	}
	if s.scheduled {
		s.cron.Remove(s.entryID)
		s.scheduled = false
		log.Printf("🗑️ Removed existing scheduler job: %s", ReminderJobID)
	}
	if !settings.SchedulerEnabled {
		log.Println("⚠️ Scheduler is disabled in email settings, no job scheduled")
		return nil
	}

	spec := buildDailySpec(settings.ReminderTime)
	id, err := s.cron.AddFunc(spec, s.runJob)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", ReminderJobID, err)
	}
	s.entryID = id
	s.scheduled = true
	s.spec = spec
	s.timeStr = settings.ReminderTime
	log.Printf("📅 Scheduled daily event reminders for %s UTC", settings.ReminderTime)
	return nil
}

// Stop removes the job and waits for a running job to finish.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	if s.scheduled {
		s.cron.Remove(s.entryID)
		s.scheduled = false
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	log.Println("🛑 Reminder scheduler stopped")
}

func (s *ReminderScheduler) Status() models.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := models.SchedulerStatus{IsRunning: s.running, JobScheduled: s.scheduled}
	if !s.scheduled {
		return status
	}
	status.ReminderTime = s.timeStr
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return status
	}
	next := entry.Next
	if next.IsZero() && entry.Schedule != nil {
		next = entry.Schedule.Next(time.Now().UTC())
	}
	if !next.IsZero() {
		status.NextRunTime = &next
	}
	return status
}

func (s *ReminderScheduler) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
	defer cancel()
	log.Printf("⏰ Running %s at %s", ReminderJobID, time.Now().UTC().Format(time.RFC3339))
	sent, err := s.RunOnce(ctx, time.Now())
	if err != nil {
		utils.SafeError("%s failed: %v", ReminderJobID, err)
		return
	}
	log.Printf("✅ %s done, %d reminder(s) sent", ReminderJobID, sent)
}

// ============================================================================
// JOB
// ============================================================================

type reminderOwner struct {
	Email         string
	Name          string
	Timezone      string
	Notifications models.NotificationPreferences
}

func (s *ReminderScheduler) owner(ctx context.Context, userID string) (*reminderOwner, error) {
	var o reminderOwner
	err := s.db.QueryRowContext(ctx, `
		SELECT email, name, timezone, notifications FROM users WHERE id = $1
	`, userID).Scan(&o.Email, &o.Name, &o.Timezone, &o.Notifications)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Name == "" {
		o.Name = strings.SplitN(o.Email, "@", 2)[0]
	}
	return &o, nil
}

// RunOnce sends the one-week reminders due at now and returns how many
// were sent. Events are marked only after a successful send.
func (s *ReminderScheduler) RunOnce(ctx context.Context, now time.Time) (int, error) {
	settings, err := s.email.Settings(ctx)
	if err != nil {
		return 0, err
	}
	if !settings.SchedulerEnabled {
		log.Println("⚠️ Scheduler is disabled, skipping reminder job")
		return 0, nil
	}
	if _, err := s.email.Template(ctx, utils.TemplateWeekReminder); err != nil {
		return 0, fmt.Errorf("template %s: %w", utils.TemplateWeekReminder, err)
	}

	// wide window; the exact local date is checked per owner below
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE one_week_reminder_sent_at IS NULL
		  AND event_at >= $1 AND event_at < $2
		ORDER BY event_at ASC
	`, now.UTC().AddDate(0, 0, 5), now.UTC().AddDate(0, 0, 9))
	if err != nil {
		return 0, fmt.Errorf("select reminder events: %w", err)
	}
	var candidates []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		candidates = append(candidates, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		log.Println("📭 No events found for 1-week reminder")
		return 0, nil
	}

	owners := make(map[string]*reminderOwner)
	sent := 0
	for _, e := range candidates {
		o, cached := owners[e.UserID]
		if !cached {
			o, err = s.owner(ctx, e.UserID)
			if err != nil {
				utils.SafeError("Load owner of event %s: %v", e.ID, err)
				continue
			}
			owners[e.UserID] = o
		}
		if o == nil {
			utils.SafeWarn("Owner not found for event %s, skipping reminder", e.ID)
			continue
		}
		tz := o.Timezone
		if !utils.IsValidTimezone(tz) {
			tz = "UTC"
		}
		if !DueForWeekReminder(e, tz, now) {
			continue
		}
		if !o.Notifications.Email1WeekCountdown {
			utils.SafeDebug("User %s has 1-week countdown emails disabled", o.Email)
			continue
		}

		err := s.email.SendTemplate(ctx, utils.TemplateWeekReminder, o.Email, ReminderData(o.Name, e, tz))
		utils.LogNotification("email", "event_1week_reminder", o.Email, err)
		if err != nil {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `
			UPDATE events SET one_week_reminder_sent_at = NOW()
			WHERE id = $1 AND one_week_reminder_sent_at IS NULL
		`, e.ID); err != nil {
			utils.SafeError("Mark reminder sent for event %s: %v", e.ID, err)
			continue
		}
		sent++
	}
	return sent, nil
}
