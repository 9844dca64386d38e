package utils_test

import (
	"testing"
	"time"

	"github.com/LovationAdmin/dayclap-api/utils"
)

const endMillis = 999000000

func TestGetRangeBoundary(t *testing.T) {
	tests := []struct {
		keyword   string
		today     time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			utils.RangeToday,
			time.Date(2024, 3, 6, 14, 22, 0, 0, time.UTC),
			time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 6, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeWeek,
			time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 9, 23, 59, 59, endMillis, time.UTC),
		},
		{
			// Friday, the week starts in the previous month
			utils.RangeWeek,
			time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 2, 23, 59, 59, endMillis, time.UTC),
		},
		{
			// Sunday is the first day of its own week
			utils.RangeWeek,
			time.Date(2024, 12, 29, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 12, 29, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 4, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeMonth,
			time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeNextMonth,
			time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 31, 23, 59, 59, endMillis, time.UTC),
		},
		{
			// the 31st must not roll next month into March
			utils.RangeNextMonth,
			time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeLastMonth,
			time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
			time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 12, 31, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeLastMonth,
			time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 29, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeYear,
			time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 12, 31, 23, 59, 59, endMillis, time.UTC),
		},
		{
			utils.RangeLastYear,
			time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 12, 31, 23, 59, 59, endMillis, time.UTC),
		},
	}
	for _, tt := range tests {
		got, ok := utils.GetRangeBoundary(tt.keyword, tt.today)
		if !ok {
			t.Errorf("GetRangeBoundary(%q, %v) ok = false", tt.keyword, tt.today)
			continue
		}
		if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
			t.Errorf("GetRangeBoundary(%q, %v) = [%v, %v], want [%v, %v]",
				tt.keyword, tt.today.Format(utils.DateLayout), got.Start, got.End, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestGetRangeBoundaryNoFilter(t *testing.T) {
	today := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	for _, keyword := range []string{utils.RangeAll, "", "fortnight"} {
		if _, ok := utils.GetRangeBoundary(keyword, today); ok {
			t.Errorf("GetRangeBoundary(%q) ok = true, want false", keyword)
		}
	}
}

func TestGetRangeBoundaryKeepsLocation(t *testing.T) {
	loc := mustLoad(t, "America/New_York")
	// the week of the spring-forward Sunday spans two UTC offsets
	today := time.Date(2024, 3, 10, 12, 0, 0, 0, loc)

	got, ok := utils.GetRangeBoundary(utils.RangeWeek, today)
	if !ok {
		t.Fatal("GetRangeBoundary(week) ok = false")
	}
	if got.Start.Location() != loc || got.End.Location() != loc {
		t.Errorf("boundary location = %v/%v, want %v", got.Start.Location(), got.End.Location(), loc)
	}
	if h, m, _ := got.Start.Clock(); h != 0 || m != 0 {
		t.Errorf("week start clock = %02d:%02d, want 00:00", h, m)
	}
	if _, off := got.Start.Zone(); off != -5*3600 {
		t.Errorf("week start offset = %d, want EST", off)
	}
	if _, off := got.End.Zone(); off != -4*3600 {
		t.Errorf("week end offset = %d, want EDT", off)
	}
	if got.End.Day() != 16 {
		t.Errorf("week end day = %d, want 16", got.End.Day())
	}
}

func TestDateRangeContains(t *testing.T) {
	r, _ := utils.GetRangeBoundary(utils.RangeMonth, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		at   time.Time
		want bool
	}{
		{r.Start, true},
		{r.End, true},
		{r.Start.Add(-time.Millisecond), false},
		{r.End.Add(time.Millisecond), false},
		{time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), true},
		{time.Time{}, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.at); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestDateRangeContainsDate(t *testing.T) {
	loc := mustLoad(t, "Pacific/Kiritimati")
	r, _ := utils.GetRangeBoundary(utils.RangeToday, time.Date(2025, 9, 5, 8, 0, 0, 0, loc))

	tests := []struct {
		date string
		want bool
	}{
		{"2025-09-05", true},
		{"2025-09-04", false},
		{"2025-09-06", false},
		{"not-a-date", false},
	}
	for _, tt := range tests {
		if got := r.ContainsDate(tt.date); got != tt.want {
			t.Errorf("ContainsDate(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestIsRangeKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"all", true},
		{"", true},
		{"nextMonth", true},
		{"lastYear", true},
		{"NextMonth", false},
		{"decade", false},
	}
	for _, tt := range tests {
		if got := utils.IsRangeKeyword(tt.in); got != tt.want {
			t.Errorf("IsRangeKeyword(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
