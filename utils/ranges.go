package utils

import (
	"strings"
	"time"
)

// Range keywords accepted by GetRangeBoundary.
const (
	RangeAll       = "all"
	RangeToday     = "today"
	RangeWeek      = "week"
	RangeMonth     = "month"
	RangeNextMonth = "nextMonth"
	RangeLastMonth = "lastMonth"
	RangeYear      = "year"
	RangeLastYear  = "lastYear"
)

const lastMillisecond = int(999 * time.Millisecond)

// DateRange is an inclusive [Start, End] window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// ContainsDate checks a date-only value, read as a calendar day in the
// range's own location.
func (r DateRange) ContainsDate(date string) bool {
	d, ok := ParseLocalDate(date, r.Start.Location())
	if !ok {
		return false
	}
	return r.Contains(d)
}

// GetRangeBoundary computes the window for a filter keyword relative to
// today, in today's location. ok is false for "all", "" and unknown
// keywords, meaning no filtering.
//
// Weeks run Sunday to Saturday. Month ends are built with day 0 of the
// following month so short months never roll over.
func GetRangeBoundary(keyword string, today time.Time) (DateRange, bool) {
	loc := today.Location()
	y, m, d := today.Date()

	startOf := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, loc)
	}
	endOf := func(year int, month time.Month, day int) time.Time {
		return time.Date(year, month, day, 23, 59, 59, lastMillisecond, loc)
	}

	switch strings.TrimSpace(keyword) {
	case RangeToday:
		return DateRange{Start: startOf(y, m, d), End: endOf(y, m, d)}, true
	case RangeWeek:
		sunday := d - int(today.Weekday())
		return DateRange{Start: startOf(y, m, sunday), End: endOf(y, m, sunday+6)}, true
	case RangeMonth:
		return DateRange{Start: startOf(y, m, 1), End: endOf(y, m+1, 0)}, true
	case RangeNextMonth:
		return DateRange{Start: startOf(y, m+1, 1), End: endOf(y, m+2, 0)}, true
	case RangeLastMonth:
		return DateRange{Start: startOf(y, m-1, 1), End: endOf(y, m, 0)}, true
	case RangeYear:
		return DateRange{Start: startOf(y, time.January, 1), End: endOf(y, time.December, 31)}, true
	case RangeLastYear:
		return DateRange{Start: startOf(y-1, time.January, 1), End: endOf(y-1, time.December, 31)}, true
	default:
		return DateRange{}, false
	}
}

// IsRangeKeyword reports whether keyword is one GetRangeBoundary knows,
// "all" included.
func IsRangeKeyword(keyword string) bool {
	switch keyword {
	case "", RangeAll, RangeToday, RangeWeek, RangeMonth, RangeNextMonth, RangeLastMonth, RangeYear, RangeLastYear:
		return true
	}
	return false
}
