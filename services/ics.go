package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

const icsProductID = "-//DayClap//Calendar//EN"

// BuildCalendar renders a company's events as an iCalendar feed. Timed
// events get a one hour slot; all-day events span their calendar day.
func BuildCalendar(calendarName string, events []models.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(calendarName)

	for _, e := range events {
		if e.EventAt.IsZero() {
			continue
		}
		ve := cal.AddEvent(e.ID + "@dayclap")
		ve.SetDtStampTime(now.UTC())
		ve.SetCreatedTime(e.CreatedAt.UTC())
		ve.SetModifiedAt(e.UpdatedAt.UTC())
		ve.SetSummary(e.Title)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if desc := eventDescription(e); desc != "" {
			ve.SetDescription(desc)
		}

		if day, ok := utils.ParseLocalDate(e.Date, time.UTC); e.AllDay && ok {
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			continue
		}
		ve.SetStartAt(e.EventAt.UTC())
		ve.SetEndAt(e.EventAt.UTC().Add(time.Hour))
	}
	return cal.Serialize()
}

// eventDescription appends the sub-task checklist to the description.
func eventDescription(e models.Event) string {
	var b strings.Builder
	b.WriteString(e.Description)
	if len(e.Tasks) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		for _, t := range e.Tasks {
			mark := "[ ]"
			if t.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "%s %s", mark, t.Title)
			if t.AssignedTo != "" {
				fmt.Fprintf(&b, " (%s)", t.AssignedTo)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// ImportedEvent is a VEVENT read from an uploaded calendar, ready to be
// stored with EventService.
type ImportedEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	AllDay      bool
	Date        string // YYYY-MM-DD for all-day events
}

// ParseCalendarEvents reads single VEVENTs from an ICS payload. Recurrence
// rules are ignored; only the first occurrence is kept.
func ParseCalendarEvents(body []byte) ([]ImportedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty calendar")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	out := make([]ImportedEvent, 0)
	for _, ve := range cal.Events() {
		var ev ImportedEvent
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			ev.UID = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Title = strings.TrimSpace(p.Value)
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			ev.Description = strings.TrimSpace(p.Value)
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			ev.Location = strings.TrimSpace(p.Value)
		}

		dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
		if dtStart == nil || ev.Title == "" {
			utils.SafeWarn("ics import: skipping event %q without start or summary", ev.UID)
			continue
		}
		if !strings.Contains(dtStart.Value, "T") {
			day, err := time.Parse("20060102", strings.TrimSpace(dtStart.Value))
			if err != nil {
				utils.SafeWarn("ics import: bad all-day start %q: %v", dtStart.Value, err)
				continue
			}
			ev.AllDay = true
			ev.Date = day.Format(utils.DateLayout)
			ev.Start = day
		} else {
			start, err := ve.GetStartAt()
			if err != nil {
				utils.SafeWarn("ics import: bad start %q: %v", dtStart.Value, err)
				continue
			}
			ev.Start = start.UTC()
		}
		out = append(out, ev)
	}
	return out, nil
}

// ImportRequest turns an imported VEVENT into the request EventService
// expects. Timed events are expressed in tz so the round trip through
// ResolveEventTime lands on the same instant.
func ImportRequest(ev ImportedEvent, companyID, tz string) models.EventRequest {
	req := models.EventRequest{
		Title:       ev.Title,
		Location:    ev.Location,
		Description: ev.Description,
		CompanyID:   companyID,
	}
	if ev.AllDay {
		req.Date = ev.Date
		return req
	}
	local, ok := utils.InUserTimezone(ev.Start, tz)
	if !ok {
		local = ev.Start.UTC()
	}
	req.Date = utils.FormatYYYYMMDD(local)
	req.Time = utils.FormatHHMM(local)
	return req
}
