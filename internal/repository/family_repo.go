package repository

import (
	"context"

	"eduportal/internal/models"
	"eduportal/internal/securestore"
)

// FamilyRepository holds the family members of the household
type FamilyRepository struct {
	members *Collection[models.FamilyMember]
	now     Clock
}

// NewFamilyRepository creates a repository over store. A nil clock uses SystemClock.
func NewFamilyRepository(store securestore.Store, clock Clock) *FamilyRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &FamilyRepository{
		members: NewCollection[models.FamilyMember](store, SlotFamilyMembers),
		now:     clock,
	}
}

// Load hydrates the members from storage
func (r *FamilyRepository) Load(ctx context.Context) {
	r.members.Load(ctx)
}

// IsLoading reports whether a load is in progress
func (r *FamilyRepository) IsLoading() bool {
	return r.members.IsLoading()
}

// Add creates a member with a fresh id and equal created/updated stamps
func (r *FamilyRepository) Add(ctx context.Context, in models.FamilyMemberInput) (models.FamilyMember, error) {
	return r.members.Insert(ctx, func() models.FamilyMember {
		now := r.now()
		return models.NewFamilyMember(newRecordID("member", now), in, now)
	})
}

// Update merges patch into the member with id. ok is false when no member matches.
func (r *FamilyRepository) Update(ctx context.Context, id string, patch models.FamilyMemberPatch) (models.FamilyMember, bool, error) {
	return r.members.Update(ctx, id, func(m models.FamilyMember) models.FamilyMember {
		return patch.Apply(m, nextStamp(m.UpdatedAt, r.now()))
	})
}

// Delete removes the member with id
func (r *FamilyRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.members.Delete(ctx, id)
}

// Get returns the member with id
func (r *FamilyRepository) Get(id string) (models.FamilyMember, bool) {
	return r.members.Get(id)
}

// List returns every member in insertion order
func (r *FamilyRepository) List() []models.FamilyMember {
	return r.members.All()
}

// ByRelationship returns the members whose relationship equals relationship
func (r *FamilyRepository) ByRelationship(relationship string) []models.FamilyMember {
	return r.members.Filter(func(m models.FamilyMember) bool {
		return m.Relationship == relationship
	})
}

// Count returns the number of members
func (r *FamilyRepository) Count() int {
	return r.members.Len()
}

// ReplaceAll swaps the stored members, used by backup import
func (r *FamilyRepository) ReplaceAll(ctx context.Context, members []models.FamilyMember) error {
	return r.members.ReplaceAll(ctx, members)
}
