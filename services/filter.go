package services

import (
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const (
	TaskStatusAll       = "all"
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
	TaskStatusOverdue   = "overdue"
)

// EventInRange checks an event against a window. All-day events are
// compared by calendar date, timed events by instant.
func EventInRange(e models.Event, rng utils.DateRange) bool {
	if e.AllDay && e.Date != "" {
		return rng.ContainsDate(e.Date)
	}
	return rng.Contains(e.EventAt)
}

// EventLocalDate is the event's calendar date as seen in loc.
func EventLocalDate(e models.Event, loc *time.Location) string {
	if e.AllDay && e.Date != "" {
		return e.Date
	}
	if e.EventAt.IsZero() {
		return ""
	}
	return utils.FormatYYYYMMDD(e.EventAt.In(loc))
}

func sortEvents(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventAt.Before(events[j].EventAt)
	})
}

// UpcomingEvents keeps events from the start of today onwards (in now's
// location), restricted to rng when ranged, in ascending order.
func UpcomingEvents(events []models.Event, now time.Time, rng utils.DateRange, ranged bool) []models.Event {
	startOfToday := utils.StartOfDay(now)
	today := utils.FormatYYYYMMDD(now)

	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.AllDay && e.Date != "" {
			if e.Date < today {
				continue
			}
		} else if e.EventAt.IsZero() || e.EventAt.Before(startOfToday) {
			continue
		}
		if ranged && !EventInRange(e, rng) {
			continue
		}
		out = append(out, e)
	}
	sortEvents(out)
	return out
}

// FilterEvents restricts events to rng when ranged, keeping order.
func FilterEvents(events []models.Event, rng utils.DateRange, ranged bool) []models.Event {
	if !ranged {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if EventInRange(e, rng) {
			out = append(out, e)
		}
	}
	return out
}

// FilterTasksDue filters tasks by due date window and status. With a
// range, tasks without a due date are excluded. today is YYYY-MM-DD in the
// client's zone.
func FilterTasksDue(tasks []models.Task, rng utils.DateRange, ranged bool, status, today string) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if ranged && (t.DueDate == "" || !rng.ContainsDate(t.DueDate)) {
			continue
		}
		if !matchesStatus(t, status, today) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesStatus(t models.Task, status, today string) bool {
	switch status {
	case TaskStatusPending:
		return !t.Completed && !t.IsOverdue(today)
	case TaskStatusCompleted:
		return t.Completed
	case TaskStatusOverdue:
		return t.IsOverdue(today)
	default:
		return true
	}
}

func IsTaskStatus(status string) bool {
	switch status {
	case "", TaskStatusAll, TaskStatusPending, TaskStatusCompleted, TaskStatusOverdue:
		return true
	}
	return false
}

// SearchResult holds matches for a free-text search.
type SearchResult struct {
	Events []models.Event `json:"events"`
	Tasks  []models.Task  `json:"tasks"`
}

// SearchItems matches term case-insensitively against event title,
// description and location, and task title, description and category.
func SearchItems(events []models.Event, tasks []models.Task, term string) SearchResult {
	result := SearchResult{Events: []models.Event{}, Tasks: []models.Task{}}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return result
	}
	match := func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				return true
			}
		}
		return false
	}
	for _, e := range events {
		if match(e.Title, e.Description, e.Location) {
			result.Events = append(result.Events, e)
		}
	}
	for _, t := range tasks {
		if match(t.Title, t.Description, t.Category) {
			result.Tasks = append(result.Tasks, t)
		}
	}
	return result
}

// DayItems is the calendar cell content for one date.
type DayItems struct {
	Date   string         `json:"date"`
	Events []models.Event `json:"events"`
	Tasks  []models.Task  `json:"tasks"`
}

// ItemsForDate collects events on date (as seen in loc) ordered by time,
// then tasks due that date with incomplete ones first.
func ItemsForDate(date string, events []models.Event, tasks []models.Task, loc *time.Location) DayItems {
	items := DayItems{Date: date, Events: []models.Event{}, Tasks: []models.Task{}}
	for _, e := range events {
		if EventLocalDate(e, loc) == date {
			items.Events = append(items.Events, e)
		}
	}
	sortEvents(items.Events)

	for _, t := range tasks {
		if t.DueDate == date {
			items.Tasks = append(items.Tasks, t)
		}
	}
	sort.SliceStable(items.Tasks, func(i, j int) bool {
		return !items.Tasks[i].Completed && items.Tasks[j].Completed
	})
	return items
}
