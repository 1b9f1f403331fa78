package models

import "time"

// CalendarEvent is a dated entry on the family calendar.
//
// StartDate is an ISO-like date ("2024-01-15") optionally carrying a time
// component ("2024-01-15T10:00:00Z"). StartTime and EndTime are "HH:MM".
// FamilyMemberID is a weak reference: it names a member without owning it.
type CalendarEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	StartDate      string    `json:"startDate"`
	EndDate        string    `json:"endDate,omitempty"`
	StartTime      string    `json:"startTime,omitempty"`
	EndTime        string    `json:"endTime,omitempty"`
	FamilyMemberID string    `json:"familyMemberId,omitempty"`
	Category       string    `json:"category,omitempty"`
	Location       string    `json:"location,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RecordID returns the event identifier
func (e CalendarEvent) RecordID() string {
	return e.ID
}

// IsAllDay reports whether the event has no start time
func (e CalendarEvent) IsAllDay() bool {
	return e.StartTime == ""
}

// CalendarEventInput holds the caller-supplied fields of a new event
type CalendarEventInput struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate,omitempty"`
	StartTime      string `json:"startTime,omitempty"`
	EndTime        string `json:"endTime,omitempty"`
	FamilyMemberID string `json:"familyMemberId,omitempty"`
	Category       string `json:"category,omitempty"`
	Location       string `json:"location,omitempty"`
}

// CalendarEventPatch is a partial update; nil fields are left untouched
type CalendarEventPatch struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	StartDate      *string `json:"startDate,omitempty"`
	EndDate        *string `json:"endDate,omitempty"`
	StartTime      *string `json:"startTime,omitempty"`
	EndTime        *string `json:"endTime,omitempty"`
	FamilyMemberID *string `json:"familyMemberId,omitempty"`
	Category       *string `json:"category,omitempty"`
	Location       *string `json:"location,omitempty"`
}

// NewCalendarEvent builds a full record from input
func NewCalendarEvent(id string, in CalendarEventInput, now time.Time) CalendarEvent {
	return CalendarEvent{
		ID:             id,
		Title:          in.Title,
		Description:    in.Description,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		FamilyMemberID: in.FamilyMemberID,
		Category:       in.Category,
		Location:       in.Location,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Apply merges the patch into e and stamps UpdatedAt
func (p CalendarEventPatch) Apply(e CalendarEvent, now time.Time) CalendarEvent {
	setIf(&e.Title, p.Title)
	setIf(&e.Description, p.Description)
	setIf(&e.StartDate, p.StartDate)
	setIf(&e.EndDate, p.EndDate)
	setIf(&e.StartTime, p.StartTime)
	setIf(&e.EndTime, p.EndTime)
	setIf(&e.FamilyMemberID, p.FamilyMemberID)
	setIf(&e.Category, p.Category)
	setIf(&e.Location, p.Location)
	e.UpdatedAt = now
	return e
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
