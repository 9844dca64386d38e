// utils/datetime.go
// ============================================================================
// TIMEZONE CONVERSION - instants are stored in UTC, shown in the user's zone
// ============================================================================

package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// UTC ISO-8601 with milliseconds, the format written back to the store.
	ISOMillisLayout = "2006-01-02T15:04:05.000Z"

	prettyDateLayout   = "Monday, January 2, 2006"
	clockLayout        = "03:04 PM"
	eventDisplayLayout = "Jan 2, 2006, 03:04 PM (MST)"
)

var (
	ErrEmptyTimezone = errors.New("timezone is required")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidTime   = errors.New("invalid time, expected HH:MM")
)

// Accepted instant encodings: RFC 3339 from clients, Postgres text output,
// and zone-less ISO strings which are taken as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

var locationCache sync.Map

// LoadLocation resolves an IANA zone name. Unlike time.LoadLocation it
// rejects the empty string and "Local" instead of returning UTC or the
// server's zone.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, ErrEmptyTimezone
	}
	if tz == "Local" {
		return nil, fmt.Errorf("unknown timezone %q", tz)
	}
	if loc, ok := locationCache.Load(tz); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	locationCache.Store(tz, loc)
	return loc, nil
}

// IsValidTimezone reports whether tz names a zone in the tz database.
func IsValidTimezone(tz string) bool {
	_, err := LoadLocation(tz)
	return err == nil
}

// ParseInstant parses a stored UTC instant string.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty instant")
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised instant %q", s)
}

// ToUserTimezone returns the instant located in tz, so that its wall-clock
// fields are the local time there. Returns nil on any invalid input.
func ToUserTimezone(utcISO, tz string) *time.Time {
	if strings.TrimSpace(utcISO) == "" || strings.TrimSpace(tz) == "" {
		return nil
	}
	t, err := ParseInstant(utcISO)
	if err != nil {
		SafeWarn("toUserTimezone: %v", err)
		return nil
	}
	local, ok := InUserTimezone(t, tz)
	if !ok {
		return nil
	}
	return &local
}

// InUserTimezone is ToUserTimezone for an already parsed instant.
func InUserTimezone(t time.Time, tz string) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	loc, err := LoadLocation(tz)
	if err != nil {
		SafeWarn("inUserTimezone: %v", err)
		return time.Time{}, false
	}
	return t.In(loc), true
}

// LocalToUTC composes a local date and optional HH:MM in tz into a UTC
// instant. Wall times are resolved against the zone's own rules, so the
// offset on either side of a DST transition is the one in effect that day.
func LocalToUTC(localDate, localTime, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(DateLayout, strings.TrimSpace(localDate))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	hh, mm := 0, 0
	if clock := strings.TrimSpace(localTime); clock != "" {
		ct, err := time.Parse(TimeLayout, clock)
		if err != nil || len(clock) != len(TimeLayout) {
			return time.Time{}, ErrInvalidTime
		}
		hh, mm = ct.Hour(), ct.Minute()
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, loc)
	if t.Day() != d.Day() || t.Hour() != hh || t.Minute() != mm {
		// The wall time falls in a spring-forward gap. Resolve it with the
		// offset in effect before the transition so it moves forward.
		wall := time.Date(d.Year(), d.Month(), d.Day(), hh, mm, 0, 0, time.UTC)
		_, before := wall.Add(-24 * time.Hour).In(loc).Zone()
		t = wall.Add(-time.Duration(before) * time.Second)
	}
	return t.UTC(), nil
}

// FromUserTimezone is LocalToUTC returning the storage string, or "" when
// the input cannot be converted.
func FromUserTimezone(localDate, localTime, tz string) string {
	if strings.TrimSpace(localDate) == "" || strings.TrimSpace(tz) == "" {
		return ""
	}
	t, err := LocalToUTC(localDate, localTime, tz)
	if err != nil {
		SafeWarn("fromUserTimezone(%q, %q, %q): %v", localDate, localTime, tz, err)
		return ""
	}
	return FormatISO(t)
}

// FormatISO renders an instant the way it is written back to the store.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOMillisLayout)
}

// The Format* helpers expect a value already returned by ToUserTimezone or
// InUserTimezone and only read its wall clock.

func FormatPrettyDate(t time.Time) string {
	return formatLocal(t, prettyDateLayout)
}

func FormatTime(t time.Time) string {
	return formatLocal(t, clockLayout)
}

func FormatYYYYMMDD(t time.Time) string {
	return formatLocal(t, DateLayout)
}

func FormatHHMM(t time.Time) string {
	return formatLocal(t, TimeLayout)
}

// FormatEventDisplay includes the zone abbreviation, e.g.
// "Oct 25, 2025, 10:00 AM (EDT)". Zones without an abbreviation print the
// numeric offset.
func FormatEventDisplay(t time.Time) string {
	return formatLocal(t, eventDisplayLayout)
}

func formatLocal(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

// DisplayDate converts a stored instant once and formats it as a pretty date.
func DisplayDate(utcISO, tz string) string {
	return convertAndFormat(utcISO, tz, FormatPrettyDate)
}

// DisplayTime converts a stored instant once and formats its clock time.
func DisplayTime(utcISO, tz string) string {
	return convertAndFormat(utcISO, tz, FormatTime)
}

// InputDate gives the YYYY-MM-DD value for a date input field.
func InputDate(utcISO, tz string) string {
	return convertAndFormat(utcISO, tz, FormatYYYYMMDD)
}

// InputTime gives the HH:MM value for a time input field.
func InputTime(utcISO, tz string) string {
	return convertAndFormat(utcISO, tz, FormatHHMM)
}

func convertAndFormat(utcISO, tz string, format func(time.Time) string) string {
	local := ToUserTimezone(utcISO, tz)
	if local == nil {
		return ""
	}
	return format(*local)
}

// ParseLocalDate reads a date-only value as a calendar date at midnight in
// loc. The day never moves with the location's UTC offset.
func ParseLocalDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsSameDay compares calendar days in each value's own location.
func IsSameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay returns 00:00:00.000 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
