package migration

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestConvertLegacyEvent(t *testing.T) {
	tests := []struct {
		name       string
		date       string
		clock      string
		tz         string
		wantAt     time.Time
		wantAllDay bool
		wantDate   string
	}{
		{
			name: "timed in owner zone", date: "2024-07-04", clock: "15:05", tz: "America/New_York",
			wantAt: time.Date(2024, 7, 4, 19, 5, 0, 0, time.UTC),
		},
		{
			name: "postgres time with seconds", date: "2024-01-15", clock: "09:30:00", tz: "Europe/Paris",
			wantAt: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
		},
		{
			name: "owner without zone", date: "2024-03-10", clock: "02:30", tz: "",
			wantAt: time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC),
		},
		{
			name: "unknown zone falls back to UTC", date: "2024-03-10", clock: "12:00", tz: "Nowhere/Land",
			wantAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "all-day keeps its date", date: "2024-12-31", clock: "", tz: "Pacific/Auckland",
			wantAt: time.Date(2024, 12, 30, 11, 0, 0, 0, time.UTC), wantAllDay: true, wantDate: "2024-12-31",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertLegacyEvent(tt.date, tt.clock, tt.tz)
			if err != nil {
				t.Fatalf("ConvertLegacyEvent: %v", err)
			}
			if !got.EventAt.Equal(tt.wantAt) {
				t.Errorf("EventAt = %v, want %v", got.EventAt, tt.wantAt)
			}
			if got.AllDay != tt.wantAllDay || got.Date != tt.wantDate {
				t.Errorf("AllDay/Date = %v/%q, want %v/%q", got.AllDay, got.Date, tt.wantAllDay, tt.wantDate)
			}
		})
	}
}

func TestConvertLegacyEventRejectsBadInput(t *testing.T) {
	for _, in := range [][2]string{
		{"04/07/2024", "10:00"},
		{"2024-02-30", ""},
		{"2024-07-04", "25:00"},
		{"2024-07-04", "9:5"},
	} {
		if _, err := ConvertLegacyEvent(in[0], in[1], "UTC"); err == nil {
			t.Errorf("ConvertLegacyEvent(%q, %q) should fail", in[0], in[1])
		}
	}
}
