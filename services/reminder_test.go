package services

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LovationAdmin/dayclap-api/models"
)

func TestParseReminderTime(t *testing.T) {
	tests := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{"02:00", 2, 0, true},
		{"23:59", 23, 59, true},
		{" 7:05 ", 7, 5, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
		{"1:2:3", 0, 0, false},
	}
	for _, tt := range tests {
		h, m, ok := ParseReminderTime(tt.in)
		if ok != tt.ok || h != tt.hour || m != tt.minute {
			t.Errorf("ParseReminderTime(%q) = %d, %d, %v; want %d, %d, %v", tt.in, h, m, ok, tt.hour, tt.minute, tt.ok)
		}
	}
}

func TestBuildDailySpec(t *testing.T) {
	tests := map[string]string{
		"07:30": "0 30 7 * * *",
		"00:00": "0 0 0 * * *",
		"25:00": "0 0 2 * * *",
		"bogus": "0 0 2 * * *",
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for in, want := range tests {
		spec := buildDailySpec(in)
		if spec != want {
			t.Errorf("buildDailySpec(%q) = %q, want %q", in, spec, want)
			continue
		}
		sched, err := parser.Parse(spec)
		if err != nil {
			t.Errorf("spec %q does not parse: %v", spec, err)
			continue
		}
		from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		next := sched.Next(from)
		if next.Sub(from) > 24*time.Hour || next.Second() != 0 {
			t.Errorf("next run for %q = %v", spec, next)
		}
	}
}

func TestDueForWeekReminder(t *testing.T) {
	// 20:00 UTC on Mar 1: already Mar 2 in Auckland, still Mar 1 in LA
	now := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	timed := models.Event{ID: "timed", EventAt: time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)}
	allDay := models.Event{ID: "all-day", AllDay: true, Date: "2024-03-09", EventAt: time.Date(2024, 3, 8, 11, 0, 0, 0, time.UTC)}

	tests := []struct {
		event models.Event
		tz    string
		want  bool
	}{
		{timed, "America/Los_Angeles", true},
		{timed, "Pacific/Auckland", false},
		{timed, "UTC", true},
		{timed, "Not/AZone", true},
		{allDay, "Pacific/Auckland", true},
		{allDay, "America/Los_Angeles", false},
		{models.Event{ID: "too-far", EventAt: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}, "UTC", false},
	}
	for _, tt := range tests {
		if got := DueForWeekReminder(tt.event, tt.tz, now); got != tt.want {
			t.Errorf("DueForWeekReminder(%s, %s) = %v, want %v", tt.event.ID, tt.tz, got, tt.want)
		}
	}
}

func TestReminderData(t *testing.T) {
	timed := models.Event{
		Title:    "Summer party",
		EventAt:  time.Date(2024, 7, 4, 19, 5, 0, 0, time.UTC),
		Location: "Rooftop",
		Tasks: models.EventTasks{
			{ID: "1", Completed: true},
			{ID: "2", Completed: true},
			{ID: "3"},
		},
	}
	data := ReminderData("Alice", timed, "America/New_York")
	want := map[string]any{
		"user_name":                  "Alice",
		"event_title":                "Summer party",
		"event_date":                 "July 04, 2024",
		"event_time":                 "03:05 PM",
		"event_location":             "Rooftop",
		"has_tasks":                  true,
		"pending_tasks_count":        1,
		"task_completion_percentage": "66%",
	}
	for k, v := range want {
		if data[k] != v {
			t.Errorf("%s = %v, want %v", k, data[k], v)
		}
	}

	allDay := models.Event{Title: "Offsite", AllDay: true, Date: "2025-09-05", EventAt: time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)}
	data = ReminderData("Bob", allDay, "Pacific/Pago_Pago")
	if data["event_date"] != "September 05, 2025" || data["event_time"] != "N/A" {
		t.Errorf("all-day date/time = %v / %v", data["event_date"], data["event_time"])
	}
	if data["has_tasks"] != false || data["task_completion_percentage"] != "0%" {
		t.Errorf("no tasks: %v / %v", data["has_tasks"], data["task_completion_percentage"])
	}
}

func TestSchedulerStatusWhenIdle(t *testing.T) {
	s := NewReminderScheduler(nil, nil)
	status := s.Status()
	if status.IsRunning || status.JobScheduled || status.NextRunTime != nil {
		t.Errorf("idle status = %+v", status)
	}
	// stopping an idle scheduler is a no-op
	s.Stop()
}
