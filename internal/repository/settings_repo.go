package repository

import (
	"context"
	"errors"
	"fmt"

	"eduportal/internal/securestore"
)

// SettingsRepository holds single-value device settings
type SettingsRepository struct {
	store securestore.Store
}

func NewSettingsRepository(store securestore.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// GetSetting retrieves a setting value by key
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	return r.store.Get(ctx, key)
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	if err := r.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a setting
func (r *SettingsRepository) DeleteSetting(ctx context.Context, key string) error {
	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// IsOnboardingComplete checks the onboarding flag. Unreadable values count as not complete.
func (r *SettingsRepository) IsOnboardingComplete(ctx context.Context) bool {
	value, err := r.GetSetting(ctx, SlotOnboardingComplete)
	if err != nil {
		return false
	}
	return value == "true"
}

// SetOnboardingComplete records that onboarding finished
func (r *SettingsRepository) SetOnboardingComplete(ctx context.Context) error {
	return r.SetSetting(ctx, SlotOnboardingComplete, "true")
}

// ResetOnboarding clears the onboarding flag
func (r *SettingsRepository) ResetOnboarding(ctx context.Context) error {
	return r.DeleteSetting(ctx, SlotOnboardingComplete)
}

// PushToken returns the stored push token; ok is false when none is stored
func (r *SettingsRepository) PushToken(ctx context.Context) (string, bool, error) {
	token, err := r.GetSetting(ctx, SlotPushToken)
	if errors.Is(err, securestore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// SetPushToken stores the push token
func (r *SettingsRepository) SetPushToken(ctx context.Context, token string) error {
	return r.SetSetting(ctx, SlotPushToken, token)
}

// ClearPushToken removes the push token
func (r *SettingsRepository) ClearPushToken(ctx context.Context) error {
	return r.DeleteSetting(ctx, SlotPushToken)
}
