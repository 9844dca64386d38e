package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/dayclap-api/models"
)

func TestResolveEventTime(t *testing.T) {
	tests := []struct {
		name       string
		date, time string
		tz         string
		want       time.Time
		wantAllDay bool
	}{
		{"timed new york", "2024-07-04", "15:05", "America/New_York", time.Date(2024, 7, 4, 19, 5, 0, 0, time.UTC), false},
		{"all-day colombo", "2024-07-04", "", "Asia/Colombo", time.Date(2024, 7, 3, 18, 30, 0, 0, time.UTC), true},
		{"trimmed input", " 2024-01-15 ", " 09:00 ", "UTC", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, allDay, err := ResolveEventTime(tt.date, tt.time, tt.tz)
			if err != nil {
				t.Fatalf("ResolveEventTime: %v", err)
			}
			if !got.Equal(tt.want) || allDay != tt.wantAllDay {
				t.Errorf("got %v allDay=%v, want %v allDay=%v", got, allDay, tt.want, tt.wantAllDay)
			}
		})
	}

	for _, bad := range [][3]string{
		{"2024-13-01", "10:00", "UTC"},
		{"2024-07-04", "25:00", "UTC"},
		{"2024-07-04", "10:00", "Not/AZone"},
		{"", "", "UTC"},
	} {
		if _, _, err := ResolveEventTime(bad[0], bad[1], bad[2]); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ResolveEventTime(%q, %q, %q) err = %v, want ErrInvalidInput", bad[0], bad[1], bad[2], err)
		}
	}
}

func TestToEventView(t *testing.T) {
	timed := models.Event{ID: "t", EventAt: time.Date(2024, 7, 4, 19, 5, 0, 0, time.UTC)}
	view := ToEventView(timed, "America/New_York")
	if view.LocalDate != "2024-07-04" || view.LocalTime != "15:05" {
		t.Errorf("local = %s %s", view.LocalDate, view.LocalTime)
	}
	if view.Display != "Jul 4, 2024, 03:05 PM (EDT)" {
		t.Errorf("Display = %q", view.Display)
	}

	// seen from Tokyo the same instant is already the 5th
	tokyo := ToEventView(timed, "Asia/Tokyo")
	if tokyo.LocalDate != "2024-07-05" || tokyo.LocalTime != "04:05" {
		t.Errorf("tokyo local = %s %s", tokyo.LocalDate, tokyo.LocalTime)
	}

	// entered in Kiritimati (UTC+14), viewed in Pago Pago (UTC-11)
	allDay := models.Event{ID: "a", AllDay: true, Date: "2025-09-05", EventAt: time.Date(2025, 9, 4, 10, 0, 0, 0, time.UTC)}
	av := ToEventView(allDay, "Pacific/Pago_Pago")
	if av.LocalDate != "2025-09-05" || av.LocalTime != "" {
		t.Errorf("all-day view = %s %q", av.LocalDate, av.LocalTime)
	}
	if av.Display != "Friday, September 5, 2025" {
		t.Errorf("all-day Display = %q", av.Display)
	}

	bad := ToEventView(timed, "Nowhere/Zone")
	if bad.LocalDate != "" || bad.Display != "" {
		t.Errorf("invalid zone should leave local fields empty, got %+v", bad)
	}
}

func TestSessionTimezone(t *testing.T) {
	if got := SessionTimezone(nil); got != "UTC" {
		t.Errorf("nil session = %q", got)
	}
	if got := SessionTimezone(&models.Session{Timezone: "Bad/Zone"}); got != "UTC" {
		t.Errorf("invalid zone = %q", got)
	}
	if got := SessionTimezone(&models.Session{Timezone: "Asia/Kathmandu"}); got != "Asia/Kathmandu" {
		t.Errorf("valid zone = %q", got)
	}
}

func TestBuildEventTasks(t *testing.T) {
	keep := uuid.New().String()
	negative := -4.0
	expense := 12.5

	tasks, err := BuildEventTasks([]models.EventTaskInput{
		{ID: keep, Title: " Book venue ", AssignedTo: "Bob@Example.com", Expense: &expense, Priority: "HIGH"},
		{ID: keep, Title: "Duplicate id"},
		{ID: "not-a-uuid", Title: "Order cake", Expense: &negative, DueDate: "2024-07-01"},
	}, "Alice@Example.com")
	if err != nil {
		t.Fatalf("BuildEventTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks", len(tasks))
	}

	if tasks[0].ID != keep || tasks[0].Title != "Book venue" || tasks[0].AssignedTo != "bob@example.com" {
		t.Errorf("first task = %+v", tasks[0])
	}
	if tasks[0].Expense != 12.5 || tasks[0].Priority != models.PriorityHigh {
		t.Errorf("first task expense/priority = %v/%s", tasks[0].Expense, tasks[0].Priority)
	}
	if tasks[1].ID == keep {
		t.Error("duplicate id should be replaced")
	}
	if tasks[1].AssignedTo != "alice@example.com" || tasks[1].Priority != models.PriorityMedium {
		t.Errorf("defaults not applied: %+v", tasks[1])
	}
	if _, err := uuid.Parse(tasks[2].ID); err != nil {
		t.Errorf("invalid id not replaced: %q", tasks[2].ID)
	}
	if tasks[2].Expense != 0 {
		t.Errorf("negative expense = %v, want 0", tasks[2].Expense)
	}

	if _, err := BuildEventTasks([]models.EventTaskInput{{Title: "  "}}, "a@b.c"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank title err = %v", err)
	}
	if _, err := BuildEventTasks([]models.EventTaskInput{{Title: "x", DueDate: "07/01/2024"}}, "a@b.c"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad due date err = %v", err)
	}
	if empty, err := BuildEventTasks(nil, "a@b.c"); err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("nil input = %v, %v", empty, err)
	}
}

func TestNewlyAssigned(t *testing.T) {
	before := models.EventTasks{
		{ID: "1", AssignedTo: "bob@example.com"},
		{ID: "2", AssignedTo: "carol@example.com"},
	}
	after := models.EventTasks{
		{ID: "1", AssignedTo: "BOB@example.com"},   // unchanged
		{ID: "2", AssignedTo: "dave@example.com"},  // reassigned
		{ID: "3", AssignedTo: "alice@example.com"}, // self
		{ID: "4", AssignedTo: "erin@example.com"},  // new
	}
	got := NewlyAssigned(before, after, "Alice@example.com")
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "4" {
		t.Errorf("NewlyAssigned = %+v", got)
	}
	if len(NewlyAssigned(after, after, "x@y.z")) != 0 {
		t.Error("no change should notify nobody")
	}
}

func TestEventPermissions(t *testing.T) {
	event := models.Event{UserID: "creator", CompanyID: "c1"}
	task := models.EventTask{ID: "t", AssignedTo: "bob@example.com"}

	sessions := map[string]*models.Session{
		"creator":  {UserID: "creator", Email: "creator@example.com", Memberships: map[string]string{"c1": models.RoleUser}},
		"admin":    {UserID: "adm", Email: "admin@example.com", Memberships: map[string]string{"c1": models.RoleAdmin}},
		"member":   {UserID: "m", Email: "member@example.com", Memberships: map[string]string{"c1": models.RoleUser}},
		"assignee": {UserID: "b", Email: "Bob@Example.com", Memberships: map[string]string{"c1": models.RoleUser}},
		"outsider": {UserID: "o", Email: "o@example.com", Memberships: map[string]string{"c2": models.RoleOwner}},
	}
	tests := []struct {
		who        string
		edit, tick bool
	}{
		{"creator", true, true},
		{"admin", true, false},
		{"member", false, false},
		{"assignee", false, true},
		{"outsider", false, false},
	}
	for _, tt := range tests {
		sess := sessions[tt.who]
		if got := CanEditEvent(sess, event); got != tt.edit {
			t.Errorf("CanEditEvent(%s) = %v, want %v", tt.who, got, tt.edit)
		}
		if got := CanToggleEventTask(sess, event, task); got != tt.tick {
			t.Errorf("CanToggleEventTask(%s) = %v, want %v", tt.who, got, tt.tick)
		}
	}
	if CanEditEvent(nil, event) || CanToggleEventTask(nil, event, task) {
		t.Error("nil session must not be allowed")
	}
}

func TestSortMembers(t *testing.T) {
	members := []models.CompanyMember{
		{Name: "zoe", Email: "z@example.com", Role: models.RoleUser},
		{Name: "Adam", Email: "a@example.com", Role: models.RoleUser},
		{Name: "Owner", Email: "o@example.com", Role: models.RoleOwner},
		{Name: "", Email: "b@example.com", Role: models.RoleAdmin},
		{Name: "", Email: "a2@example.com", Role: models.RoleAdmin},
	}
	SortMembers(members)
	want := []string{"o@example.com", "a2@example.com", "b@example.com", "a@example.com", "z@example.com"}
	for i, m := range members {
		if m.Email != want[i] {
			t.Fatalf("position %d = %s, want %s (got %+v)", i, m.Email, want[i], members)
		}
	}
}
