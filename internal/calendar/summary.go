package calendar

import (
	"time"

	"eduportal/internal/models"
)

// DailySummary lists one day's events ordered by start time
type DailySummary struct {
	Date   string                 `json:"date"`
	Count  int                    `json:"count"`
	Events []models.CalendarEvent `json:"events"`
}

// WeeklySummary lists seven consecutive days of events. Days holds one entry
// per date key in the week, empty days included.
type WeeklySummary struct {
	WeekStart string                            `json:"weekStart"`
	WeekEnd   string                            `json:"weekEnd"`
	Count     int                               `json:"count"`
	Events    []models.CalendarEvent            `json:"events"`
	Days      map[string][]models.CalendarEvent `json:"days"`
}

// Daily builds the summary of date
func Daily(events []models.CalendarEvent, date time.Time) DailySummary {
	day := EventsOnDate(events, date)
	SortByStartTime(day)
	return DailySummary{
		Date:   DateKey(date),
		Count:  len(day),
		Events: day,
	}
}

// Weekly builds the summary of weekStart and the six days after it
func Weekly(events []models.CalendarEvent, weekStart time.Time) WeeklySummary {
	keys := WeekKeys(weekStart)

	days := make(map[string][]models.CalendarEvent, DaysInWeek)
	for _, key := range keys {
		days[key] = make([]models.CalendarEvent, 0)
	}

	week := inKeyRange(events, keys[0], keys[DaysInWeek-1])
	for _, e := range week {
		key := EventDateKey(e.StartDate)
		days[key] = append(days[key], e)
	}
	for _, bucket := range days {
		SortByStartTime(bucket)
	}

	return WeeklySummary{
		WeekStart: keys[0],
		WeekEnd:   keys[DaysInWeek-1],
		Count:     len(week),
		Events:    week,
		Days:      days,
	}
}

// WeekKeys returns the date keys of weekStart and the six following days
func WeekKeys(weekStart time.Time) []string {
	keys := make([]string, DaysInWeek)
	for i := range keys {
		keys[i] = DateKey(weekStart.AddDate(0, 0, i))
	}
	return keys
}
