package calendar

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"eduportal/internal/models"
)

const (
	productID    = "-//Edu Portal//Family Calendar//EN"
	clockLayout  = "15:04"
	defaultBlock = time.Hour
)

// ExportICS renders events as an iCalendar document. Timed events are placed
// in loc; events without a start time become all-day entries. Events whose
// start date cannot be parsed are skipped.
func ExportICS(events []models.CalendarEvent, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		start, end, allDay, err := eventSpan(e, loc)
		if err != nil {
			slog.Warn("skipping event in calendar export", "event_id", e.ID, "error", err)
			continue
		}

		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(e.UpdatedAt)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetModifiedAt(e.UpdatedAt)
		ve.SetSummary(e.Title)
		if allDay {
			ve.SetAllDayStartAt(start)
			ve.SetAllDayEndAt(end)
		} else {
			ve.SetStartAt(start)
			ve.SetEndAt(end)
		}
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, e.Category)
		}
	}

	return cal.Serialize()
}

// eventSpan resolves the start and end of e. All-day ends are exclusive, one
// day past the last day.
func eventSpan(e models.CalendarEvent, loc *time.Location) (start, end time.Time, allDay bool, err error) {
	startDay, err := dayOf(e.StartDate, loc)
	if err != nil {
		return start, end, false, fmt.Errorf("invalid start date %q: %w", e.StartDate, err)
	}
	endDay := startDay
	if e.EndDate != "" {
		if d, derr := dayOf(e.EndDate, loc); derr == nil && !d.Before(startDay) {
			endDay = d
		}
	}

	if e.IsAllDay() {
		return startDay, endDay.AddDate(0, 0, 1), true, nil
	}

	start, err = atClock(startDay, e.StartTime)
	if err != nil {
		return start, end, false, fmt.Errorf("invalid start time %q: %w", e.StartTime, err)
	}
	end = start.Add(defaultBlock)
	if e.EndTime != "" {
		if t, terr := atClock(endDay, e.EndTime); terr == nil && t.After(start) {
			end = t
		}
	} else if endDay.After(startDay) {
		end = endDay.AddDate(0, 0, 1)
	}
	return start, end, false, nil
}

func dayOf(value string, loc *time.Location) (time.Time, error) {
	day, _, _ := strings.Cut(value, "T")
	return ParseDay(day, loc)
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
