package models_test

import (
	"encoding/json"
	"testing"

	"github.com/LovationAdmin/dayclap-api/models"
)

func TestNotificationPreferencesDefaults(t *testing.T) {
	var prefs models.NotificationPreferences
	if err := prefs.Scan([]byte(`{"email_weekly": true, "push": false}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := models.DefaultNotificationPreferences()
	want.EmailWeekly = true
	want.Push = false
	if prefs != want {
		t.Errorf("Scan partial document = %+v, want %+v", prefs, want)
	}

	for _, src := range []interface{}{nil, []byte{}, "{}"} {
		var p models.NotificationPreferences
		if err := p.Scan(src); err != nil {
			t.Fatalf("Scan(%v): %v", src, err)
		}
		if p != models.DefaultNotificationPreferences() {
			t.Errorf("Scan(%#v) = %+v, want defaults", src, p)
		}
	}

	if err := prefs.Scan(42); err == nil {
		t.Error("Scan(int) should fail")
	}
}

func TestNotificationPreferencesApply(t *testing.T) {
	off := false
	on := true
	got := models.DefaultNotificationPreferences().Apply(models.NotificationPreferencesPatch{
		EmailDaily:   &off,
		EmailMonthly: &on,
	})
	want := models.DefaultNotificationPreferences()
	want.EmailDaily = false
	want.EmailMonthly = true
	if got != want {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestNotificationPreferencesValue(t *testing.T) {
	v, err := models.DefaultNotificationPreferences().Value()
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]bool
	if err := json.Unmarshal(v.([]byte), &m); err != nil {
		t.Fatal(err)
	}
	if len(m) != 8 || !m["email_1week_countdown"] || m["email_3day_countdown"] {
		t.Errorf("Value() = %s", v)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.InvitationPending, models.InvitationAccepted, true},
		{models.InvitationPending, models.InvitationDeclined, true},
		{models.InvitationPending, models.InvitationDismissed, true},
		{models.InvitationAccepted, models.InvitationDismissed, true},
		{models.InvitationDeclined, models.InvitationDismissed, true},
		{models.InvitationAccepted, models.InvitationDeclined, false},
		{models.InvitationDeclined, models.InvitationAccepted, false},
		{models.InvitationDismissed, models.InvitationAccepted, false},
		{models.InvitationDismissed, models.InvitationPending, false},
		{models.InvitationPending, models.InvitationPending, false},
	}
	for _, tt := range tests {
		if got := models.CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTaskIsOverdue(t *testing.T) {
	const today = "2025-03-10"
	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{"due yesterday", models.Task{DueDate: "2025-03-09"}, true},
		{"due today", models.Task{DueDate: "2025-03-10"}, false},
		{"due tomorrow", models.Task{DueDate: "2025-03-11"}, false},
		{"completed", models.Task{DueDate: "2025-03-01", Completed: true}, false},
		{"dismissed", models.Task{DueDate: "2025-03-01", Dismissed: true}, false},
		{"no due date", models.Task{}, false},
		{"previous year", models.Task{DueDate: "2024-12-31"}, true},
	}
	for _, tt := range tests {
		if got := tt.task.IsOverdue(today); got != tt.want {
			t.Errorf("%s: IsOverdue = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestEventTasks(t *testing.T) {
	var tasks models.EventTasks
	if err := tasks.Scan([]byte(`[
		{"id": "a", "title": "Book venue", "completed": true, "expense": 120.5},
		{"id": "b", "title": "Send invites", "expense": 10},
		{"id": "c", "title": "Order cake", "completed": true}
	]`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if c, n := tasks.Completion(); c != 2 || n != 3 {
		t.Errorf("Completion = %d/%d, want 2/3", c, n)
	}
	if p := tasks.CompletionPercent(); p != 66 {
		t.Errorf("CompletionPercent = %d, want 66", p)
	}
	if e := tasks.TotalExpense(); e != 130.5 {
		t.Errorf("TotalExpense = %v, want 130.5", e)
	}
	if i := tasks.Find("b"); i != 1 {
		t.Errorf("Find(b) = %d, want 1", i)
	}
	if i := tasks.Find("zzz"); i != -1 {
		t.Errorf("Find(zzz) = %d, want -1", i)
	}

	var empty models.EventTasks
	if err := empty.Scan(nil); err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Scan(nil) = %v, %v", empty, err)
	}
	if p := empty.CompletionPercent(); p != 0 {
		t.Errorf("CompletionPercent of no tasks = %d", p)
	}
	v, _ := models.EventTasks(nil).Value()
	if string(v.([]byte)) != "[]" {
		t.Errorf("nil Value() = %s, want []", v)
	}
}

func TestRolesAndPriorities(t *testing.T) {
	if !(models.RoleRank(models.RoleOwner) < models.RoleRank(models.RoleAdmin) &&
		models.RoleRank(models.RoleAdmin) < models.RoleRank(models.RoleUser)) {
		t.Error("RoleRank must order owner < admin < user")
	}
	if models.NormalizeInviteRole("owner") != models.RoleUser {
		t.Error("owner cannot be granted through an invitation")
	}
	if models.NormalizeInviteRole("admin") != models.RoleAdmin {
		t.Error("admin invitations keep their role")
	}
	if models.NormalizePriority("HIGH") != models.PriorityHigh || models.NormalizePriority("urgent") != models.PriorityMedium {
		t.Error("NormalizePriority")
	}

	s := &models.Session{Memberships: map[string]string{"c1": models.RoleAdmin}}
	if !s.IsMember("c1") || s.IsMember("c2") || s.RoleIn("c1") != models.RoleAdmin {
		t.Errorf("session memberships = %+v", s.Memberships)
	}
	var nilSession *models.Session
	if nilSession.IsMember("c1") {
		t.Error("nil session is not a member of anything")
	}
}
