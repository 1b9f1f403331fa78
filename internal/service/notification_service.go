package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"eduportal/internal/metrics"
	"eduportal/internal/models"
	"eduportal/internal/push"
	"eduportal/internal/repository"
)

// TokenSource issues the device push token
type TokenSource interface {
	PushToken(ctx context.Context) (string, error)
}

// NotificationService manages the push token lifecycle
type NotificationService struct {
	settingsRepo *repository.SettingsRepository
	source       TokenSource

	mu    sync.RWMutex
	state models.NotificationState
}

func NewNotificationService(settingsRepo *repository.SettingsRepository, source TokenSource) *NotificationService {
	return &NotificationService{
		settingsRepo: settingsRepo,
		source:       source,
		state:        models.NotificationState{PermissionStatus: models.PermissionUndetermined},
	}
}

// State returns the current registration state
func (s *NotificationService) State() models.NotificationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Load restores the registration state from a stored token
func (s *NotificationService) Load(ctx context.Context) {
	token, ok, err := s.settingsRepo.PushToken(ctx)
	if err != nil {
		slog.Error("failed to read stored push token", "error", err)
		return
	}
	if ok {
		s.setState(models.NotificationState{PushToken: token, IsRegistered: true, PermissionStatus: models.PermissionGranted})
	}
}

// Register obtains a push token and stores it. A failure leaves the service
// unregistered with permission denied; the returned bool reports success.
// A refusal by the push service is reported as (false, nil).
func (s *NotificationService) Register(ctx context.Context) (bool, error) {
	token, err := s.source.PushToken(ctx)
	if errors.Is(err, push.ErrPermissionDenied) {
		slog.Info("push permission denied", "error", err)
		err = nil
	}
	if err != nil || token == "" {
		s.setState(models.NotificationState{PermissionStatus: models.PermissionDenied})
		metrics.Notifications.WithLabelValues("register", "denied").Inc()
		if err != nil {
			slog.Warn("push registration failed", "error", err)
			return false, fmt.Errorf("failed to obtain push token: %w", err)
		}
		return false, nil
	}

	if err := s.settingsRepo.SetPushToken(ctx, token); err != nil {
		s.setState(models.NotificationState{PermissionStatus: models.PermissionDenied})
		metrics.Notifications.WithLabelValues("register", "error").Inc()
		return false, err
	}

	s.setState(models.NotificationState{PushToken: token, IsRegistered: true, PermissionStatus: models.PermissionGranted})
	metrics.Notifications.WithLabelValues("register", "ok").Inc()
	return true, nil
}

// StoredToken returns the stored token, asking the token source when none
// is stored yet. An empty string means no token is available.
func (s *NotificationService) StoredToken(ctx context.Context) (string, error) {
	token, ok, err := s.settingsRepo.PushToken(ctx)
	if err != nil {
		slog.Error("failed to read stored push token", "error", err)
	}
	if ok {
		return token, nil
	}

	token, err = s.source.PushToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to obtain push token: %w", err)
	}
	if token == "" {
		return "", nil
	}
	if err := s.settingsRepo.SetPushToken(ctx, token); err != nil {
		return "", err
	}
	s.setState(models.NotificationState{PushToken: token, IsRegistered: true, PermissionStatus: models.PermissionGranted})
	return token, nil
}

// Clear erases the stored token and resets the registration state
func (s *NotificationService) Clear(ctx context.Context) error {
	if err := s.settingsRepo.ClearPushToken(ctx); err != nil {
		return err
	}
	s.setState(models.NotificationState{PermissionStatus: models.PermissionUndetermined})
	return nil
}

func (s *NotificationService) setState(state models.NotificationState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
