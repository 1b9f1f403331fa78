package handlers

import (
	"net/http"

	"eduportal/internal/security"
)

// Routes collects the handlers mounted by NewRouter
type Routes struct {
	Auth        *AuthHandler
	Family      *FamilyHandler
	Calendar    *CalendarHandler
	Settings    *SettingsHandler
	Middleware  *Middleware
	AuthLimiter *security.RateLimiter
	Metrics     http.Handler
}

// NewRouter builds the HTTP surface wrapped in request logging
func NewRouter(rt Routes) http.Handler {
	mux := http.NewServeMux()
	auth := rt.Middleware.RequireAuth
	limit := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if rt.AuthLimiter != nil {
		limit = rt.AuthLimiter.Middleware
	}

	mux.HandleFunc("GET /health", Health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics)
	}

	// Session
	mux.HandleFunc("GET /auth/login", limit(rt.Auth.Login))
	mux.HandleFunc("GET /auth/callback", limit(rt.Auth.Callback))
	mux.HandleFunc("POST /auth/logout", rt.Auth.Logout)
	mux.HandleFunc("POST /auth/refresh", limit(rt.Auth.Refresh))
	mux.HandleFunc("GET /auth/me", rt.Auth.Me)

	// Family
	mux.HandleFunc("GET /api/family", auth(rt.Family.List))
	mux.HandleFunc("POST /api/family", auth(rt.Family.Create))
	mux.HandleFunc("GET /api/family/{id}", auth(rt.Family.Get))
	mux.HandleFunc("PATCH /api/family/{id}", auth(rt.Family.Update))
	mux.HandleFunc("DELETE /api/family/{id}", auth(rt.Family.Delete))

	// Calendar
	mux.HandleFunc("GET /api/events", auth(rt.Calendar.List))
	mux.HandleFunc("POST /api/events", auth(rt.Calendar.Create))
	mux.HandleFunc("GET /api/events/range", auth(rt.Calendar.Range))
	mux.HandleFunc("GET /api/events/on/{date}", auth(rt.Calendar.OnDate))
	mux.HandleFunc("GET /api/events/{id}", auth(rt.Calendar.Get))
	mux.HandleFunc("PATCH /api/events/{id}", auth(rt.Calendar.Update))
	mux.HandleFunc("DELETE /api/events/{id}", auth(rt.Calendar.Delete))
	mux.HandleFunc("GET /api/summary/daily/{date}", auth(rt.Calendar.Daily))
	mux.HandleFunc("GET /api/summary/weekly/{date}", auth(rt.Calendar.Weekly))
	mux.HandleFunc("GET /api/calendar.ics", auth(rt.Calendar.ICS))

	// Device settings
	mux.HandleFunc("GET /api/onboarding", auth(rt.Settings.OnboardingStatus))
	mux.HandleFunc("POST /api/onboarding", auth(rt.Settings.CompleteOnboarding))
	mux.HandleFunc("DELETE /api/onboarding", auth(rt.Settings.ResetOnboarding))
	mux.HandleFunc("GET /api/notifications", auth(rt.Settings.NotificationStatus))
	mux.HandleFunc("POST /api/notifications", auth(rt.Settings.RegisterNotifications))
	mux.HandleFunc("DELETE /api/notifications", auth(rt.Settings.ClearNotifications))

	return Logging(mux)
}

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
