package services

import (
	"time"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

// OverviewStats feeds the dashboard cards.
type OverviewStats struct {
	Range             string  `json:"range"`
	TotalEvents       int     `json:"total_events"`
	UpcomingEvents    int     `json:"upcoming_events"`
	TotalTasks        int     `json:"total_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	OverdueTasks      int     `json:"overdue_tasks"`
	PendingTasks      int     `json:"pending_tasks"`
	EventTasks        int     `json:"event_tasks"`
	EventTasksDone    int     `json:"event_tasks_completed"`
	TotalExpenses     float64 `json:"total_expenses"`
	FormattedExpenses string  `json:"formatted_expenses"`
}

// ComputeStats aggregates events and tasks within rng (everything when not
// ranged). today carries the client's zone. Overdue tasks are counted once,
// and pending never goes below zero.
func ComputeStats(events []models.Event, tasks []models.Task, today time.Time, rng utils.DateRange, ranged bool) OverviewStats {
	var stats OverviewStats
	todayStr := utils.FormatYYYYMMDD(today)

	scopedEvents := FilterEvents(events, rng, ranged)
	stats.TotalEvents = len(scopedEvents)
	stats.UpcomingEvents = len(UpcomingEvents(scopedEvents, today, rng, false))
	for _, e := range scopedEvents {
		done, total := e.Tasks.Completion()
		stats.EventTasks += total
		stats.EventTasksDone += done
		stats.TotalExpenses += e.Tasks.TotalExpense()
	}

	scopedTasks := FilterTasksDue(tasks, rng, ranged, TaskStatusAll, todayStr)
	stats.TotalTasks = len(scopedTasks)
	notCompleted := 0
	for _, t := range scopedTasks {
		stats.TotalExpenses += t.Expense
		if t.Completed {
			stats.CompletedTasks++
			continue
		}
		notCompleted++
		if t.IsOverdue(todayStr) {
			stats.OverdueTasks++
		}
	}
	stats.PendingTasks = notCompleted - stats.OverdueTasks
	if stats.PendingTasks < 0 {
		stats.PendingTasks = 0
	}
	return stats
}
