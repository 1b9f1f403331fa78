package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"eduportal/internal/models"
	"eduportal/internal/repository"
)

var (
	ErrMemberNotFound = errors.New("family member not found")
	ErrNameRequired   = errors.New("name is required")
)

// FamilyService handles family member business logic
type FamilyService struct {
	familyRepo   *repository.FamilyRepository
	calendarRepo *repository.CalendarRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, calendarRepo *repository.CalendarRepository) *FamilyService {
	return &FamilyService{
		familyRepo:   familyRepo,
		calendarRepo: calendarRepo,
	}
}

// ListMembers returns all members, or those with the given relationship
func (s *FamilyService) ListMembers(relationship string) []models.FamilyMember {
	if relationship != "" {
		return s.familyRepo.ByRelationship(relationship)
	}
	return s.familyRepo.List()
}

// CountMembers returns the number of members
func (s *FamilyService) CountMembers() int {
	return s.familyRepo.Count()
}

// GetMember retrieves a member by ID
func (s *FamilyService) GetMember(id string) (models.FamilyMember, error) {
	member, ok := s.familyRepo.Get(id)
	if !ok {
		return models.FamilyMember{}, ErrMemberNotFound
	}
	return member, nil
}

// Exists reports whether a member with id exists
func (s *FamilyService) Exists(id string) bool {
	_, ok := s.familyRepo.Get(id)
	return ok
}

// AddMember creates a new family member
func (s *FamilyService) AddMember(ctx context.Context, in models.FamilyMemberInput) (models.FamilyMember, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.FamilyMember{}, ErrNameRequired
	}

	member, err := s.familyRepo.Add(ctx, in)
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("failed to add family member: %w", err)
	}
	return member, nil
}

// UpdateMember applies a partial update to a member
func (s *FamilyService) UpdateMember(ctx context.Context, id string, patch models.FamilyMemberPatch) (models.FamilyMember, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.FamilyMember{}, ErrNameRequired
		}
		patch.Name = &name
	}

	member, ok, err := s.familyRepo.Update(ctx, id, patch)
	if err != nil {
		return models.FamilyMember{}, fmt.Errorf("failed to update family member: %w", err)
	}
	if !ok {
		return models.FamilyMember{}, ErrMemberNotFound
	}
	return member, nil
}

// DeleteMember clears the member reference from every calendar event that
// names it and then removes the member. Events are detached first so a failed
// delete can be retried without leaving dangling references.
func (s *FamilyService) DeleteMember(ctx context.Context, id string) error {
	if !s.Exists(id) {
		return ErrMemberNotFound
	}

	cleared, err := s.calendarRepo.ClearMember(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to detach events from member: %w", err)
	}
	if cleared > 0 {
		slog.Info("detached events from deleted member", "member_id", id, "events", cleared)
	}

	deleted, err := s.familyRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete family member: %w", err)
	}
	if !deleted {
		return ErrMemberNotFound
	}
	return nil
}
