package models

import "time"

// FamilyMember is a person tracked by the organizer
type FamilyMember struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Age          *int      `json:"age,omitempty"`
	DateOfBirth  string    `json:"dateOfBirth,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RecordID returns the member identifier
func (m FamilyMember) RecordID() string {
	return m.ID
}

// FamilyMemberInput holds the caller-supplied fields of a new member
type FamilyMemberInput struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Age          *int   `json:"age,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
}

// FamilyMemberPatch is a partial update; nil fields are left untouched.
// ClearAge removes the age, which a nil Age cannot express.
type FamilyMemberPatch struct {
	Name         *string `json:"name,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Age          *int    `json:"age,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	Avatar       *string `json:"avatar,omitempty"`
	ClearAge     bool    `json:"-"`
}

// NewFamilyMember builds a full record from input
func NewFamilyMember(id string, in FamilyMemberInput, now time.Time) FamilyMember {
	return FamilyMember{
		ID:           id,
		Name:         in.Name,
		Relationship: in.Relationship,
		Age:          in.Age,
		DateOfBirth:  in.DateOfBirth,
		Avatar:       in.Avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Apply merges the patch into m and stamps UpdatedAt
func (p FamilyMemberPatch) Apply(m FamilyMember, now time.Time) FamilyMember {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Relationship != nil {
		m.Relationship = *p.Relationship
	}
	if p.ClearAge {
		m.Age = nil
	}
	if p.Age != nil {
		age := *p.Age
		m.Age = &age
	}
	if p.DateOfBirth != nil {
		m.DateOfBirth = *p.DateOfBirth
	}
	if p.Avatar != nil {
		m.Avatar = *p.Avatar
	}
	m.UpdatedAt = now
	return m
}
