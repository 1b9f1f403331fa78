package repository

import (
	"context"
	"errors"
	"testing"

	"eduportal/internal/models"
	"eduportal/internal/securestore"
)

func TestOnboardingFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(securestore.NewMemoryStore())

	if repo.IsOnboardingComplete(ctx) {
		t.Error("fresh store reports onboarding complete")
	}
	if err := repo.SetOnboardingComplete(ctx); err != nil {
		t.Fatalf("SetOnboardingComplete() error = %v", err)
	}
	if !repo.IsOnboardingComplete(ctx) {
		t.Error("IsOnboardingComplete() = false after completing")
	}
	if err := repo.ResetOnboarding(ctx); err != nil {
		t.Fatalf("ResetOnboarding() error = %v", err)
	}
	if repo.IsOnboardingComplete(ctx) {
		t.Error("IsOnboardingComplete() = true after reset")
	}
}

func TestPushToken(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(securestore.NewMemoryStore())

	if _, ok, err := repo.PushToken(ctx); ok || err != nil {
		t.Errorf("PushToken() on empty store = %v, %v", ok, err)
	}
	if err := repo.SetPushToken(ctx, "ExponentPushToken[abc]"); err != nil {
		t.Fatalf("SetPushToken() error = %v", err)
	}
	token, ok, err := repo.PushToken(ctx)
	if err != nil || !ok || token != "ExponentPushToken[abc]" {
		t.Errorf("PushToken() = %q, %v, %v", token, ok, err)
	}
	if err := repo.ClearPushToken(ctx); err != nil {
		t.Fatalf("ClearPushToken() error = %v", err)
	}
	if _, ok, _ := repo.PushToken(ctx); ok {
		t.Error("PushToken() still present after clear")
	}
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	store := securestore.NewMemoryStore()
	repo := NewCredentialRepository(store)

	creds := Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Profile:      models.UserProfile{ID: "u1", Email: "ada@example.com", Name: "Ada"},
	}
	if err := repo.Save(ctx, creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if got, _ := repo.AccessToken(ctx); got != "access" {
		t.Errorf("AccessToken() = %q", got)
	}
	if got, _ := repo.RefreshToken(ctx); got != "refresh" {
		t.Errorf("RefreshToken() = %q", got)
	}
	profile, err := repo.Profile(ctx)
	if err != nil || profile != creds.Profile {
		t.Errorf("Profile() = %+v, %v", profile, err)
	}

	t.Run("empty refresh token clears slot", func(t *testing.T) {
		if err := repo.SaveTokens(ctx, "access2", ""); err != nil {
			t.Fatalf("SaveTokens() error = %v", err)
		}
		if _, err := repo.RefreshToken(ctx); !errors.Is(err, securestore.ErrNotFound) {
			t.Errorf("RefreshToken() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("clear erases every slot", func(t *testing.T) {
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if len(store.Keys()) != 0 {
			t.Errorf("slots left after Clear: %v", store.Keys())
		}
	})
}
