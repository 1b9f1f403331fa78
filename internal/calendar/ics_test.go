package calendar

import (
	"strings"
	"testing"
	"time"

	"eduportal/internal/models"
)

func TestExportICS(t *testing.T) {
	stamp := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		{ID: "event_1", Title: "Swim practice", StartDate: "2024-01-15", StartTime: "17:00", EndTime: "18:30",
			Location: "Pool", Category: "sport", CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "event_2", Title: "Half term", StartDate: "2024-02-12", EndDate: "2024-02-16", CreatedAt: stamp, UpdatedAt: stamp},
		{ID: "event_3", Title: "Broken", StartDate: "someday", CreatedAt: stamp, UpdatedAt: stamp},
	}

	out := ExportICS(events, time.UTC)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"UID:event_1",
		"SUMMARY:Swim practice",
		"DTSTART:20240115T170000Z",
		"DTEND:20240115T183000Z",
		"LOCATION:Pool",
		"CATEGORIES:sport",
		"UID:event_2",
		"DTSTART;VALUE=DATE:20240212",
		"DTEND;VALUE=DATE:20240217",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "event_3") {
		t.Error("export includes event with invalid start date")
	}
}

func TestEventSpan(t *testing.T) {
	tests := []struct {
		name      string
		event     models.CalendarEvent
		wantStart time.Time
		wantEnd   time.Time
		allDay    bool
	}{
		{
			name:      "timed without end uses default block",
			event:     models.CalendarEvent{StartDate: "2024-01-15", StartTime: "09:00"},
			wantStart: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "end before start falls back to default block",
			event:     models.CalendarEvent{StartDate: "2024-01-15", StartTime: "09:00", EndTime: "08:00"},
			wantStart: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "single all-day",
			event:     models.CalendarEvent{StartDate: "2024-01-15T00:00:00Z"},
			wantStart: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			allDay:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, allDay, err := eventSpan(tt.event, time.UTC)
			if err != nil {
				t.Fatalf("eventSpan() error = %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) || allDay != tt.allDay {
				t.Errorf("eventSpan() = %v, %v, %v; want %v, %v, %v", start, end, allDay, tt.wantStart, tt.wantEnd, tt.allDay)
			}
		})
	}
}
