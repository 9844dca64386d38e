package utils_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/LovationAdmin/dayclap-api/utils"
)

func mustLoad(t *testing.T, tz string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", tz, err)
	}
	return loc
}

func TestToUserTimezone(t *testing.T) {
	tests := []struct {
		name    string
		instant string
		tz      string
		want    string // wall clock, YYYY-MM-DD HH:MM
	}{
		{"colombo", "2025-10-25T04:30:00Z", "Asia/Colombo", "2025-10-25 10:00"},
		{"kathmandu quarter hour", "2025-01-01T00:00:00Z", "Asia/Kathmandu", "2025-01-01 05:45"},
		{"crosses date line", "2025-01-01T20:00:00Z", "Pacific/Auckland", "2025-01-02 09:00"},
		{"postgres text output", "2025-10-25 04:30:00+00", "Asia/Colombo", "2025-10-25 10:00"},
		{"zone-less taken as UTC", "2025-10-25T04:30:00", "UTC", "2025-10-25 04:30"},
	}
	for _, tt := range tests {
		got := utils.ToUserTimezone(tt.instant, tt.tz)
		if got == nil {
			t.Errorf("%s: ToUserTimezone(%q, %q) = nil", tt.name, tt.instant, tt.tz)
			continue
		}
		if s := got.Format("2006-01-02 15:04"); s != tt.want {
			t.Errorf("%s: ToUserTimezone(%q, %q) = %s, want %s", tt.name, tt.instant, tt.tz, s, tt.want)
		}
	}
}

func TestToUserTimezoneDSTTransitions(t *testing.T) {
	tests := []struct {
		instant string
		clock   string
		offset  int // seconds east of UTC
	}{
		// spring forward, 2024-03-10 02:00 EST -> 03:00 EDT
		{"2024-03-10T06:59:00Z", "01:59", -5 * 3600},
		{"2024-03-10T07:00:00Z", "03:00", -4 * 3600},
		// fall back, 2024-11-03 02:00 EDT -> 01:00 EST
		{"2024-11-03T05:59:00Z", "01:59", -4 * 3600},
		{"2024-11-03T06:00:00Z", "01:00", -5 * 3600},
	}
	for _, tt := range tests {
		got := utils.ToUserTimezone(tt.instant, "America/New_York")
		if got == nil {
			t.Fatalf("ToUserTimezone(%q) = nil", tt.instant)
		}
		if c := utils.FormatHHMM(*got); c != tt.clock {
			t.Errorf("ToUserTimezone(%q) clock = %s, want %s", tt.instant, c, tt.clock)
		}
		if _, off := got.Zone(); off != tt.offset {
			t.Errorf("ToUserTimezone(%q) offset = %d, want %d", tt.instant, off, tt.offset)
		}
	}
}

func TestFromUserTimezone(t *testing.T) {
	tests := []struct {
		date, clock, tz string
		want            string
	}{
		{"2025-10-25", "10:00", "Asia/Colombo", "2025-10-25T04:30:00.000Z"},
		{"2025-10-25", "", "Asia/Colombo", "2025-10-24T18:30:00.000Z"},
		{"2024-03-09", "12:00", "America/New_York", "2024-03-09T17:00:00.000Z"},
		{"2024-03-11", "12:00", "America/New_York", "2024-03-11T16:00:00.000Z"},
		{"2024-11-04", "12:00", "America/New_York", "2024-11-04T17:00:00.000Z"},
		// Spring-forward gap: 02:30 does not exist and moves to 03:30 EDT.
		{"2024-03-10", "02:30", "America/New_York", "2024-03-10T07:30:00.000Z"},
		{"2024-03-10", "02:00", "America/New_York", "2024-03-10T07:00:00.000Z"},
		{"2024-03-31", "01:30", "Europe/London", "2024-03-31T01:30:00.000Z"},
		{"2024-10-06", "02:15", "Australia/Lord_Howe", "2024-10-05T15:45:00.000Z"},
		// Fall-back overlap keeps the first occurrence.
		{"2024-11-03", "01:30", "America/New_York", "2024-11-03T05:30:00.000Z"},
	}
	for _, tt := range tests {
		if got := utils.FromUserTimezone(tt.date, tt.clock, tt.tz); got != tt.want {
			t.Errorf("FromUserTimezone(%q, %q, %q) = %q, want %q", tt.date, tt.clock, tt.tz, got, tt.want)
		}
	}
}

func TestFromUserTimezoneInvalidInput(t *testing.T) {
	tests := []struct {
		date, clock, tz string
	}{
		{"", "10:00", "UTC"},
		{"2025-10-25", "10:00", ""},
		{"2025-10-25", "10:00", "Not/AZone"},
		{"25-10-2025", "10:00", "UTC"},
		{"2025-10-25", "9:00", "UTC"},
		{"2025-10-25", "24:00", "UTC"},
		{"2025-02-30", "10:00", "UTC"},
	}
	for _, tt := range tests {
		if got := utils.FromUserTimezone(tt.date, tt.clock, tt.tz); got != "" {
			t.Errorf("FromUserTimezone(%q, %q, %q) = %q, want empty", tt.date, tt.clock, tt.tz, got)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	zones := []string{
		"UTC",
		"America/New_York",
		"America/St_Johns",
		"Asia/Colombo",
		"Asia/Kathmandu",
		"Australia/Lord_Howe",
		"Pacific/Chatham",
		"Europe/London",
	}
	instants := []time.Time{
		time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC),
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(2025, 10, 25, 4, 30, 45, 0, time.UTC),
	}
	for _, tz := range zones {
		for _, instant := range instants {
			local := utils.ToUserTimezone(utils.FormatISO(instant), tz)
			if local == nil {
				t.Fatalf("ToUserTimezone(%v, %q) = nil", instant, tz)
			}
			back := utils.FromUserTimezone(utils.FormatYYYYMMDD(*local), utils.FormatHHMM(*local), tz)
			want := utils.FormatISO(instant.Truncate(time.Minute))
			if back != want {
				t.Errorf("round trip %v in %s = %s, want %s", instant, tz, back, want)
			}
		}
	}
}

func TestInvalidTimezoneFailsSoft(t *testing.T) {
	const instant = "2025-10-25T04:30:00Z"
	if got := utils.ToUserTimezone(instant, "Not/AZone"); got != nil {
		t.Errorf("ToUserTimezone with bad zone = %v, want nil", got)
	}
	formatters := map[string]func(string, string) string{
		"DisplayDate": utils.DisplayDate,
		"DisplayTime": utils.DisplayTime,
		"InputDate":   utils.InputDate,
		"InputTime":   utils.InputTime,
	}
	for name, f := range formatters {
		if got := f(instant, "Not/AZone"); got != "" {
			t.Errorf("%s with bad zone = %q, want empty", name, got)
		}
		if got := f("not a date", "UTC"); got != "" {
			t.Errorf("%s with bad instant = %q, want empty", name, got)
		}
	}
	if got := utils.ToUserTimezone("", "UTC"); got != nil {
		t.Errorf("ToUserTimezone(\"\") = %v, want nil", got)
	}
}

func TestFormatters(t *testing.T) {
	local := utils.ToUserTimezone("2024-07-04T19:05:00Z", "America/New_York")
	if local == nil {
		t.Fatal("ToUserTimezone returned nil")
	}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"FormatPrettyDate", utils.FormatPrettyDate(*local), "Thursday, July 4, 2024"},
		{"FormatTime", utils.FormatTime(*local), "03:05 PM"},
		{"FormatYYYYMMDD", utils.FormatYYYYMMDD(*local), "2024-07-04"},
		{"FormatHHMM", utils.FormatHHMM(*local), "15:05"},
		{"FormatEventDisplay", utils.FormatEventDisplay(*local), "Jul 4, 2024, 03:05 PM (EDT)"},
		{"zero value", utils.FormatPrettyDate(time.Time{}), ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestFormattersDoNotShiftAgain(t *testing.T) {
	// 23:30 UTC is already the next day in Colombo; formatting the converted
	// value must keep that day.
	local := utils.ToUserTimezone("2025-03-01T23:30:00Z", "Asia/Colombo")
	if local == nil {
		t.Fatal("ToUserTimezone returned nil")
	}
	if got := utils.FormatYYYYMMDD(*local); got != "2025-03-02" {
		t.Errorf("FormatYYYYMMDD = %q, want 2025-03-02", got)
	}
	if got := utils.InputDate("2025-03-01T23:30:00Z", "Asia/Colombo"); got != "2025-03-02" {
		t.Errorf("InputDate = %q, want 2025-03-02", got)
	}
}

func TestParseLocalDate(t *testing.T) {
	zones := []string{"UTC", "Pacific/Kiritimati", "Pacific/Pago_Pago", "America/Los_Angeles", "Asia/Tokyo"}
	for _, tz := range zones {
		loc := mustLoad(t, tz)
		d, ok := utils.ParseLocalDate("2025-09-05", loc)
		if !ok {
			t.Fatalf("ParseLocalDate in %s failed", tz)
		}
		if d.Month() != time.September || d.Day() != 5 || d.Year() != 2025 {
			t.Errorf("ParseLocalDate in %s = %v, want 2025-09-05", tz, d)
		}
		if got := utils.FormatPrettyDate(d); got != "Friday, September 5, 2025" {
			t.Errorf("FormatPrettyDate in %s = %q", tz, got)
		}
	}
	if _, ok := utils.ParseLocalDate("2025-13-01", time.UTC); ok {
		t.Error("ParseLocalDate accepted month 13")
	}
}

func TestDayBoundaries(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	ts := time.Date(2024, 3, 10, 15, 0, 0, 0, loc)

	if got, want := utils.StartOfDay(ts), time.Date(2024, 3, 10, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
	if got, want := utils.EndOfDay(ts), time.Date(2024, 3, 10, 23, 59, 59, 999000000, loc); !got.Equal(want) {
		t.Errorf("EndOfDay = %v, want %v", got, want)
	}
	if !utils.IsSameDay(utils.StartOfDay(ts), utils.EndOfDay(ts)) {
		t.Error("IsSameDay: start and end of day should match")
	}
	if utils.IsSameDay(ts, ts.AddDate(0, 0, 1)) {
		t.Error("IsSameDay: consecutive days should differ")
	}
	if utils.IsSameDay(time.Time{}, ts) {
		t.Error("IsSameDay: zero time should never match")
	}
}

func TestLoadLocationRejectsEmpty(t *testing.T) {
	if _, err := utils.LoadLocation(""); err == nil {
		t.Error("LoadLocation(\"\") should fail instead of returning UTC")
	}
	if !utils.IsValidTimezone("Asia/Colombo") {
		t.Error("IsValidTimezone(Asia/Colombo) = false")
	}
	if utils.IsValidTimezone("Not/AZone") {
		t.Error("IsValidTimezone(Not/AZone) = true")
	}
}

func TestLoadLocationRejectsLocal(t *testing.T) {
	if _, err := utils.LoadLocation("Local"); err == nil {
		t.Error("LoadLocation(\"Local\") should fail instead of returning the server zone")
	}
	if utils.IsValidTimezone(" Local ") {
		t.Error("IsValidTimezone(Local) = true")
	}
	if got := utils.FromUserTimezone("2024-05-01", "10:00", "Local"); got != "" {
		t.Errorf("FromUserTimezone in Local = %q, want empty", got)
	}
}
