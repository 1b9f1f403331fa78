package repository

import (
	"context"

	"eduportal/internal/models"
	"eduportal/internal/securestore"
)

// CalendarRepository holds the calendar events
type CalendarRepository struct {
	events *Collection[models.CalendarEvent]
	now    Clock
}

// NewCalendarRepository creates a repository over store. A nil clock uses SystemClock.
func NewCalendarRepository(store securestore.Store, clock Clock) *CalendarRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &CalendarRepository{
		events: NewCollection[models.CalendarEvent](store, SlotCalendarEvents),
		now:    clock,
	}
}

// Load hydrates the events from storage
func (r *CalendarRepository) Load(ctx context.Context) {
	r.events.Load(ctx)
}

// IsLoading reports whether a load is in progress
func (r *CalendarRepository) IsLoading() bool {
	return r.events.IsLoading()
}

// Add creates an event with a fresh id and equal created/updated stamps
func (r *CalendarRepository) Add(ctx context.Context, in models.CalendarEventInput) (models.CalendarEvent, error) {
	return r.events.Insert(ctx, func() models.CalendarEvent {
		now := r.now()
		return models.NewCalendarEvent(newRecordID("event", now), in, now)
	})
}

// Update merges patch into the event with id. ok is false when no event matches.
func (r *CalendarRepository) Update(ctx context.Context, id string, patch models.CalendarEventPatch) (models.CalendarEvent, bool, error) {
	return r.events.Update(ctx, id, func(e models.CalendarEvent) models.CalendarEvent {
		return patch.Apply(e, nextStamp(e.UpdatedAt, r.now()))
	})
}

// Delete removes the event with id
func (r *CalendarRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.events.Delete(ctx, id)
}

// ClearMember drops the member reference from every event naming memberID
// and returns how many events changed.
func (r *CalendarRepository) ClearMember(ctx context.Context, memberID string) (int, error) {
	if memberID == "" {
		return 0, nil
	}
	return r.events.UpdateWhere(ctx,
		func(e models.CalendarEvent) bool { return e.FamilyMemberID == memberID },
		func(e models.CalendarEvent) models.CalendarEvent {
			e.FamilyMemberID = ""
			e.UpdatedAt = nextStamp(e.UpdatedAt, r.now())
			return e
		})
}

// Get returns the event with id
func (r *CalendarRepository) Get(id string) (models.CalendarEvent, bool) {
	return r.events.Get(id)
}

// List returns every event in insertion order
func (r *CalendarRepository) List() []models.CalendarEvent {
	return r.events.All()
}

// ForMember returns the events referencing memberID
func (r *CalendarRepository) ForMember(memberID string) []models.CalendarEvent {
	return r.events.Filter(func(e models.CalendarEvent) bool {
		return e.FamilyMemberID == memberID
	})
}

// Count returns the number of events
func (r *CalendarRepository) Count() int {
	return r.events.Len()
}

// ReplaceAll swaps the stored events, used by backup import
func (r *CalendarRepository) ReplaceAll(ctx context.Context, events []models.CalendarEvent) error {
	return r.events.ReplaceAll(ctx, events)
}
