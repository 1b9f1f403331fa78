package handlers

import (
	"net/http"

	"eduportal/internal/netclient"
	"eduportal/internal/service"
)

// SettingsHandler serves onboarding and push notification state
type SettingsHandler struct {
	onboarding    *service.OnboardingService
	notifications *service.NotificationService
}

func NewSettingsHandler(onboarding *service.OnboardingService, notifications *service.NotificationService) *SettingsHandler {
	return &SettingsHandler{onboarding: onboarding, notifications: notifications}
}

func (h *SettingsHandler) OnboardingStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{"complete": h.onboarding.IsComplete(r.Context())})
}

func (h *SettingsHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := h.onboarding.Complete(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrStorageUnavailableMsg, "complete onboarding failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"complete": true})
}

func (h *SettingsHandler) ResetOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := h.onboarding.Reset(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrStorageUnavailableMsg, "reset onboarding failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"complete": false})
}

func (h *SettingsHandler) NotificationStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.notifications.State())
}

// RegisterNotifications obtains and stores a push token
func (h *SettingsHandler) RegisterNotifications(w http.ResponseWriter, r *http.Request) {
	ok, err := h.notifications.Register(r.Context())
	if err != nil {
		respondWithError(w, http.StatusBadGateway, netclient.UserMessage(err), "push registration failed", err)
		return
	}
	status := http.StatusOK
	if !ok {
		status = http.StatusForbidden
	}
	respondJSON(w, status, h.notifications.State())
}

func (h *SettingsHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Clear(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrStorageUnavailableMsg, "clear push token failed", err)
		return
	}
	respondJSON(w, http.StatusOK, h.notifications.State())
}
