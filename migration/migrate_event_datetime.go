// Package migration converts events stored with separate local date and
// time strings into the single UTC event_at column.
//
// Run it with `dayclapctl migrate-events` or POST /api/v1/admin/migrate-events.
// Rows that already have event_at are never touched, so it can run again.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/LovationAdmin/dayclap-api/utils"
)

// LegacyConversion is the stored form of one legacy event.
type LegacyConversion struct {
	EventAt time.Time
	AllDay  bool
	Date    string // kept for all-day events only
}

// Result summarises a migration run.
type Result struct {
	Migrated int            `json:"migrated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Details  []ResultDetail `json:"details"`
}

type ResultDetail struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// normalizeClock accepts "HH:MM" and the "HH:MM:SS" form Postgres TIME
// columns produced.
func normalizeClock(clock string) string {
	clock = strings.TrimSpace(clock)
	if len(clock) == len("15:04:05") && clock[2] == ':' && clock[5] == ':' {
		return clock[:5]
	}
	return clock
}

// ConvertLegacyEvent reads a legacy date and optional time in the owner's
// timezone. An unknown or empty zone is treated as UTC; no time means an
// all-day event.
func ConvertLegacyEvent(date, clock, ownerTZ string) (LegacyConversion, error) {
	tz := strings.TrimSpace(ownerTZ)
	if !utils.IsValidTimezone(tz) {
		tz = "UTC"
	}
	date = strings.TrimSpace(date)
	clock = normalizeClock(clock)

	eventAt, err := utils.LocalToUTC(date, clock, tz)
	if err != nil {
		return LegacyConversion{}, fmt.Errorf("convert %q %q in %s: %w", date, clock, tz, err)
	}
	conv := LegacyConversion{EventAt: eventAt, AllDay: clock == ""}
	if conv.AllDay {
		conv.Date = date
	}
	return conv, nil
}

// MigrateEventDateTimes fills event_at for every event that only has the
// legacy date/time columns. Rows that fail to convert are reported and left
// as they are.
func MigrateEventDateTimes(ctx context.Context, db *sql.DB) (*Result, error) {
	log.Println("🚀 Starting event date/time migration...")

	rows, err := db.QueryContext(ctx, `
		SELECT e.id, e.title, e.date, COALESCE(e.time, ''), COALESCE(u.timezone, '')
		FROM events e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.event_at IS NULL AND e.date IS NOT NULL
		ORDER BY e.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy events: %w", err)
	}

	type legacyRow struct {
		id, title, date, clock, tz string
	}
	var pending []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.title, &r.date, &r.clock, &r.tz); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan legacy event: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &Result{Details: []ResultDetail{}}
	for _, r := range pending {
		conv, err := ConvertLegacyEvent(r.date, r.clock, r.tz)
		if err != nil {
			log.Printf("  ❌ %s: %v", r.id, err)
			result.Errors++
			result.Details = append(result.Details, ResultDetail{ID: r.id, Title: r.title, Status: "error", Reason: err.Error()})
			continue
		}

		res, err := db.ExecContext(ctx, `
			UPDATE events
			SET event_at = $1, all_day = $2, date = NULLIF($3, ''), time = NULL, updated_at = NOW()
			WHERE id = $4 AND event_at IS NULL
		`, conv.EventAt, conv.AllDay, conv.Date, r.id)
		if err != nil {
			log.Printf("  ❌ %s: %v", r.id, err)
			result.Errors++
			result.Details = append(result.Details, ResultDetail{ID: r.id, Title: r.title, Status: "error", Reason: "db update failed"})
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			result.Skipped++
			result.Details = append(result.Details, ResultDetail{ID: r.id, Title: r.title, Status: "skipped", Reason: "already migrated"})
			continue
		}

		result.Migrated++
		result.Details = append(result.Details, ResultDetail{ID: r.id, Title: r.title, Status: "migrated"})
	}

	log.Printf("📊 Event migration: %d migrated, %d skipped, %d errors", result.Migrated, result.Skipped, result.Errors)
	return result, nil
}
