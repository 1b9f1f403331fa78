package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eduportal/internal/calendar"
	"eduportal/internal/models"
	"eduportal/internal/repository"
	"eduportal/internal/validation"
)

var (
	ErrEventNotFound     = errors.New("calendar event not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrStartDateRequired = errors.New("start date is required")
	ErrInvalidStartDate  = errors.New("start date must be YYYY-MM-DD")
	ErrInvalidTime       = errors.New("times must be HH:MM")
)

// MemberLookup resolves family member references
type MemberLookup interface {
	Exists(id string) bool
}

// CalendarService handles calendar events and date-scoped queries
type CalendarService struct {
	calendarRepo *repository.CalendarRepository
	members      MemberLookup
	loc          *time.Location
	now          func() time.Time
}

// NewCalendarService creates a calendar service. Query dates are interpreted in loc.
func NewCalendarService(calendarRepo *repository.CalendarRepository, members MemberLookup, loc *time.Location) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	return &CalendarService{
		calendarRepo: calendarRepo,
		members:      members,
		loc:          loc,
		now:          time.Now,
	}
}

// Location returns the location query dates are interpreted in
func (s *CalendarService) Location() *time.Location {
	return s.loc
}

// Today returns midnight of the current day in the service location
func (s *CalendarService) Today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}

// ParseDate parses "YYYY-MM-DD" in the service location
func (s *CalendarService) ParseDate(value string) (time.Time, error) {
	return calendar.ParseDay(value, s.loc)
}

// ListEvents returns every event in insertion order
func (s *CalendarService) ListEvents() []models.CalendarEvent {
	return s.calendarRepo.List()
}

// GetEvent retrieves an event by ID
func (s *CalendarService) GetEvent(id string) (models.CalendarEvent, error) {
	event, ok := s.calendarRepo.Get(id)
	if !ok {
		return models.CalendarEvent{}, ErrEventNotFound
	}
	return event, nil
}

// AddEvent validates and stores a new event
func (s *CalendarService) AddEvent(ctx context.Context, in models.CalendarEventInput) (models.CalendarEvent, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.CalendarEvent{}, ErrTitleRequired
	}
	if err := validateStartDate(in.StartDate); err != nil {
		return models.CalendarEvent{}, err
	}
	if err := validateClock(in.StartTime, in.EndTime); err != nil {
		return models.CalendarEvent{}, err
	}
	if err := s.validateMember(in.FamilyMemberID); err != nil {
		return models.CalendarEvent{}, err
	}

	event, err := s.calendarRepo.Add(ctx, in)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to add event: %w", err)
	}
	return event, nil
}

// UpdateEvent applies a partial update to an event
func (s *CalendarService) UpdateEvent(ctx context.Context, id string, patch models.CalendarEventPatch) (models.CalendarEvent, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.CalendarEvent{}, ErrTitleRequired
		}
		patch.Title = &title
	}
	if patch.StartDate != nil {
		if err := validateStartDate(*patch.StartDate); err != nil {
			return models.CalendarEvent{}, err
		}
	}
	if err := validateClock(deref(patch.StartTime), deref(patch.EndTime)); err != nil {
		return models.CalendarEvent{}, err
	}
	if patch.FamilyMemberID != nil {
		if err := s.validateMember(*patch.FamilyMemberID); err != nil {
			return models.CalendarEvent{}, err
		}
	}

	event, ok, err := s.calendarRepo.Update(ctx, id, patch)
	if err != nil {
		return models.CalendarEvent{}, fmt.Errorf("failed to update event: %w", err)
	}
	if !ok {
		return models.CalendarEvent{}, ErrEventNotFound
	}
	return event, nil
}

// DeleteEvent removes an event
func (s *CalendarService) DeleteEvent(ctx context.Context, id string) error {
	deleted, err := s.calendarRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if !deleted {
		return ErrEventNotFound
	}
	return nil
}

// EventsOnDate returns the events starting on date
func (s *CalendarService) EventsOnDate(date time.Time) []models.CalendarEvent {
	return calendar.EventsOnDate(s.calendarRepo.List(), date)
}

// EventsInRange returns the events starting between start and end inclusive
func (s *CalendarService) EventsInRange(start, end time.Time) []models.CalendarEvent {
	return calendar.EventsInRange(s.calendarRepo.List(), start, end)
}

// DailySummary summarizes date
func (s *CalendarService) DailySummary(date time.Time) calendar.DailySummary {
	return calendar.Daily(s.calendarRepo.List(), date)
}

// WeeklySummary summarizes the seven days from weekStart
func (s *CalendarService) WeeklySummary(weekStart time.Time) calendar.WeeklySummary {
	return calendar.Weekly(s.calendarRepo.List(), weekStart)
}

// ExportICS renders every event as an iCalendar document
func (s *CalendarService) ExportICS() string {
	return calendar.ExportICS(s.calendarRepo.List(), s.loc)
}

func (s *CalendarService) validateMember(id string) error {
	if id == "" || s.members == nil {
		return nil
	}
	if !s.members.Exists(id) {
		return ErrMemberNotFound
	}
	return nil
}

func validateStartDate(value string) error {
	if validation.ValidateRequired("startDate", value) != nil {
		return ErrStartDateRequired
	}
	if validation.ValidateDate("startDate", value) != nil {
		return ErrInvalidStartDate
	}
	return nil
}

func validateClock(values ...string) error {
	for _, v := range values {
		if validation.ValidateClock("time", v) != nil {
			return ErrInvalidTime
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
