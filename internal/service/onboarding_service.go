package service

import (
	"context"

	"eduportal/internal/repository"
)

// OnboardingService tracks whether the first-run flow has been completed
type OnboardingService struct {
	settingsRepo *repository.SettingsRepository
}

func NewOnboardingService(settingsRepo *repository.SettingsRepository) *OnboardingService {
	return &OnboardingService{settingsRepo: settingsRepo}
}

// IsComplete reports the onboarding flag
func (s *OnboardingService) IsComplete(ctx context.Context) bool {
	return s.settingsRepo.IsOnboardingComplete(ctx)
}

// Complete marks onboarding as finished
func (s *OnboardingService) Complete(ctx context.Context) error {
	return s.settingsRepo.SetOnboardingComplete(ctx)
}

// Reset clears the flag so onboarding runs again
func (s *OnboardingService) Reset(ctx context.Context) error {
	return s.settingsRepo.ResetOnboarding(ctx)
}
