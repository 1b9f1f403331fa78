package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"eduportal/internal/models"
	"eduportal/internal/securestore"
)

// Credentials is the persisted session of the signed-in user
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Profile      models.UserProfile
}

// CredentialRepository stores the access token, refresh token and user profile
// in three independent slots.
type CredentialRepository struct {
	store securestore.Store
}

func NewCredentialRepository(store securestore.Store) *CredentialRepository {
	return &CredentialRepository{store: store}
}

// Save writes all three slots. An empty refresh token clears the refresh slot.
func (r *CredentialRepository) Save(ctx context.Context, creds Credentials) error {
	if err := r.SaveTokens(ctx, creds.AccessToken, creds.RefreshToken); err != nil {
		return err
	}
	return r.SaveProfile(ctx, creds.Profile)
}

// SaveTokens writes the token slots
func (r *CredentialRepository) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	if err := r.store.Set(ctx, SlotAuthToken, accessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if refreshToken == "" {
		if err := r.store.Delete(ctx, SlotRefreshToken); err != nil {
			return fmt.Errorf("failed to clear refresh token: %w", err)
		}
		return nil
	}
	if err := r.store.Set(ctx, SlotRefreshToken, refreshToken); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// SaveProfile writes the user profile slot
func (r *CredentialRepository) SaveProfile(ctx context.Context, profile models.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}
	if err := r.store.Set(ctx, SlotUserData, string(data)); err != nil {
		return fmt.Errorf("failed to save user profile: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token or securestore.ErrNotFound
func (r *CredentialRepository) AccessToken(ctx context.Context) (string, error) {
	return r.store.Get(ctx, SlotAuthToken)
}

// RefreshToken returns the stored refresh token or securestore.ErrNotFound
func (r *CredentialRepository) RefreshToken(ctx context.Context) (string, error) {
	return r.store.Get(ctx, SlotRefreshToken)
}

// Profile returns the stored user profile or securestore.ErrNotFound
func (r *CredentialRepository) Profile(ctx context.Context) (models.UserProfile, error) {
	var profile models.UserProfile
	raw, err := r.store.Get(ctx, SlotUserData)
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return profile, fmt.Errorf("failed to decode user profile: %w", err)
	}
	return profile, nil
}

// Clear erases all three slots. Every slot is attempted even when one fails.
func (r *CredentialRepository) Clear(ctx context.Context) error {
	var errs []error
	for _, slot := range []string{SlotAuthToken, SlotRefreshToken, SlotUserData} {
		if err := r.store.Delete(ctx, slot); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", slot, err))
		}
	}
	return errors.Join(errs...)
}
