package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

func ids(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func taskIDs(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sampleEvents() []models.Event {
	return []models.Event{
		{ID: "future", EventAt: time.Date(2024, 3, 8, 18, 0, 0, 0, time.UTC)},
		{ID: "past", EventAt: time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)},
		{ID: "this-morning", EventAt: time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)},
		// created in UTC+1: local midnight is the previous evening in UTC
		{ID: "all-day-today", AllDay: true, Date: "2024-03-06", EventAt: time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)},
		{ID: "all-day-yesterday", AllDay: true, Date: "2024-03-05", EventAt: time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)},
		{ID: "next-month", EventAt: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)},
	}
}

func TestUpcomingEvents(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	events := sampleEvents()

	week, _ := utils.GetRangeBoundary(utils.RangeWeek, now)
	today, _ := utils.GetRangeBoundary(utils.RangeToday, now)

	tests := []struct {
		name   string
		rng    utils.DateRange
		ranged bool
		want   []string
	}{
		{"no range", utils.DateRange{}, false, []string{"all-day-today", "this-morning", "future", "next-month"}},
		{"week", week, true, []string{"all-day-today", "this-morning", "future"}},
		{"today", today, true, []string{"all-day-today", "this-morning"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(UpcomingEvents(events, now, tt.rng, tt.ranged))
			if !equalIDs(got, tt.want) {
				t.Errorf("UpcomingEvents = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterEvents(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	month, _ := utils.GetRangeBoundary(utils.RangeMonth, now)

	got := ids(FilterEvents(sampleEvents(), month, true))
	want := []string{"future", "past", "this-morning", "all-day-today", "all-day-yesterday"}
	if !equalIDs(got, want) {
		t.Errorf("FilterEvents(month) = %v, want %v", got, want)
	}
	if n := len(FilterEvents(sampleEvents(), month, false)); n != 6 {
		t.Errorf("FilterEvents without range returned %d events, want 6", n)
	}
}

func sampleTasks() []models.Task {
	return []models.Task{
		{ID: "overdue", DueDate: "2024-03-01"},
		{ID: "done-late", DueDate: "2024-03-01", Completed: true},
		{ID: "dismissed", DueDate: "2024-03-02", Dismissed: true},
		{ID: "due-today", DueDate: "2024-03-06"},
		{ID: "due-later", DueDate: "2024-03-20"},
		{ID: "no-date"},
	}
}

func TestFilterTasksDue(t *testing.T) {
	today := "2024-03-06"
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	week, _ := utils.GetRangeBoundary(utils.RangeWeek, now)
	month, _ := utils.GetRangeBoundary(utils.RangeMonth, now)

	tests := []struct {
		name   string
		rng    utils.DateRange
		ranged bool
		status string
		want   []string
	}{
		{"all", utils.DateRange{}, false, TaskStatusAll, []string{"overdue", "done-late", "dismissed", "due-today", "due-later", "no-date"}},
		{"pending", utils.DateRange{}, false, TaskStatusPending, []string{"dismissed", "due-today", "due-later", "no-date"}},
		{"completed", utils.DateRange{}, false, TaskStatusCompleted, []string{"done-late"}},
		{"overdue", utils.DateRange{}, false, TaskStatusOverdue, []string{"overdue"}},
		{"week drops undated", week, true, TaskStatusAll, []string{"due-today"}},
		{"month overdue", month, true, TaskStatusOverdue, []string{"overdue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := taskIDs(FilterTasksDue(sampleTasks(), tt.rng, tt.ranged, tt.status, today))
			if !equalIDs(got, tt.want) {
				t.Errorf("FilterTasksDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTaskStatus(t *testing.T) {
	for _, s := range []string{"", "all", "pending", "completed", "overdue"} {
		if !IsTaskStatus(s) {
			t.Errorf("IsTaskStatus(%q) = false", s)
		}
	}
	if IsTaskStatus("late") {
		t.Error("IsTaskStatus(late) = true")
	}
}

func TestSearchItems(t *testing.T) {
	events := []models.Event{
		{ID: "e1", Title: "Board meeting"},
		{ID: "e2", Title: "Lunch", Location: "Meeting room B"},
		{ID: "e3", Title: "Gym"},
	}
	tasks := []models.Task{
		{ID: "t1", Title: "Prepare slides", Category: "Meetings"},
		{ID: "t2", Title: "Buy milk"},
	}

	got := SearchItems(events, tasks, "  MEETING ")
	if !equalIDs(ids(got.Events), []string{"e1", "e2"}) {
		t.Errorf("events = %v", ids(got.Events))
	}
	if !equalIDs(taskIDs(got.Tasks), []string{"t1"}) {
		t.Errorf("tasks = %v", taskIDs(got.Tasks))
	}

	empty := SearchItems(events, tasks, "   ")
	if empty.Events == nil || empty.Tasks == nil || len(empty.Events)+len(empty.Tasks) != 0 {
		t.Errorf("blank term should return empty non-nil slices, got %+v", empty)
	}
}

func TestItemsForDate(t *testing.T) {
	colombo, err := time.LoadLocation("Asia/Colombo")
	if err != nil {
		t.Fatal(err)
	}
	events := []models.Event{
		// 01:30 on the 7th in Colombo
		{ID: "late-utc", EventAt: time.Date(2024, 3, 6, 20, 0, 0, 0, time.UTC)},
		{ID: "same-day", EventAt: time.Date(2024, 3, 6, 6, 0, 0, 0, time.UTC)},
		{ID: "all-day", AllDay: true, Date: "2024-03-07", EventAt: time.Date(2024, 3, 6, 18, 30, 0, 0, time.UTC)},
	}
	tasks := []models.Task{
		{ID: "done", DueDate: "2024-03-07", Completed: true},
		{ID: "open", DueDate: "2024-03-07"},
		{ID: "other-day", DueDate: "2024-03-06"},
	}

	items := ItemsForDate("2024-03-07", events, tasks, colombo)
	if !equalIDs(ids(items.Events), []string{"all-day", "late-utc"}) {
		t.Errorf("events = %v", ids(items.Events))
	}
	if !equalIDs(taskIDs(items.Tasks), []string{"open", "done"}) {
		t.Errorf("tasks = %v, want incomplete first", taskIDs(items.Tasks))
	}

	utcItems := ItemsForDate("2024-03-06", events, tasks, time.UTC)
	if !equalIDs(ids(utcItems.Events), []string{"same-day", "late-utc"}) {
		t.Errorf("UTC events = %v", ids(utcItems.Events))
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: "a", EventAt: time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC), Tasks: models.EventTasks{
			{ID: "1", Completed: true, Expense: 10},
			{ID: "2", Expense: 5.5},
		}},
		{ID: "b", EventAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	tasks := []models.Task{
		{ID: "overdue", DueDate: "2024-03-01", Expense: 20},
		{ID: "done", DueDate: "2024-03-02", Completed: true},
		{ID: "open", DueDate: "2024-03-09"},
	}

	stats := ComputeStats(events, tasks, now, utils.DateRange{}, false)
	if stats.TotalEvents != 2 || stats.UpcomingEvents != 1 {
		t.Errorf("events: total=%d upcoming=%d", stats.TotalEvents, stats.UpcomingEvents)
	}
	if stats.TotalTasks != 3 || stats.CompletedTasks != 1 || stats.OverdueTasks != 1 || stats.PendingTasks != 1 {
		t.Errorf("tasks: %+v", stats)
	}
	if stats.EventTasks != 2 || stats.EventTasksDone != 1 {
		t.Errorf("event tasks: %d/%d", stats.EventTasksDone, stats.EventTasks)
	}
	if stats.TotalExpenses != 35.5 {
		t.Errorf("TotalExpenses = %v, want 35.5", stats.TotalExpenses)
	}

	week, _ := utils.GetRangeBoundary(utils.RangeWeek, now)
	ranged := ComputeStats(events, tasks, now, week, true)
	if ranged.TotalEvents != 1 || ranged.TotalTasks != 1 || ranged.PendingTasks != 1 {
		t.Errorf("week stats: %+v", ranged)
	}
}

func TestComputeStatsPendingNeverNegative(t *testing.T) {
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: "o1", DueDate: "2024-01-01"},
		{ID: "o2", DueDate: "2024-02-01"},
	}
	stats := ComputeStats(nil, tasks, now, utils.DateRange{}, false)
	if stats.PendingTasks != 0 || stats.OverdueTasks != 2 {
		t.Errorf("pending=%d overdue=%d", stats.PendingTasks, stats.OverdueTasks)
	}
}
