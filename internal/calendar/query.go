// Package calendar derives date-scoped views over calendar events. Nothing
// here mutates its input.
package calendar

import (
	"sort"
	"strings"
	"time"

	"eduportal/internal/models"
)

const (
	keyLayout  = "20060102"
	dateLayout = "2006-01-02"

	// DaysInWeek is the number of buckets in a weekly summary
	DaysInWeek = 7
)

// DateKey returns the calendar day of t, in t's own location, as "YYYYMMDD".
func DateKey(t time.Time) string {
	return t.Format(keyLayout)
}

// EventDateKey returns the date key of the day part of startDate, ignoring
// any time component. An unparsable date yields "" and never matches a query.
func EventDateKey(startDate string) string {
	day, _, _ := strings.Cut(startDate, "T")
	parsed, err := time.Parse(dateLayout, day)
	if err != nil {
		return ""
	}
	return parsed.Format(keyLayout)
}

// ParseDay parses "YYYY-MM-DD" as midnight in loc
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, loc)
}

// EventsOnDate returns the events whose start day equals the day of date, in
// their original order.
func EventsOnDate(events []models.CalendarEvent, date time.Time) []models.CalendarEvent {
	key := DateKey(date)
	out := make([]models.CalendarEvent, 0)
	for _, e := range events {
		if EventDateKey(e.StartDate) == key {
			out = append(out, e)
		}
	}
	return out
}

// EventsInRange returns the events whose start day falls within [start, end]
// inclusive, in their original order.
func EventsInRange(events []models.CalendarEvent, start, end time.Time) []models.CalendarEvent {
	return inKeyRange(events, DateKey(start), DateKey(end))
}

func inKeyRange(events []models.CalendarEvent, from, to string) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0)
	for _, e := range events {
		key := EventDateKey(e.StartDate)
		if key != "" && key >= from && key <= to {
			out = append(out, e)
		}
	}
	return out
}

// SortByStartTime orders events by start time in place. Events without a
// start time sort as "00:00"; ties keep their original order.
func SortByStartTime(events []models.CalendarEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return sortTime(events[i]) < sortTime(events[j])
	})
}

func sortTime(e models.CalendarEvent) string {
	if e.StartTime == "" {
		return "00:00"
	}
	return e.StartTime
}
