package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"eduportal/internal/auth"
	"eduportal/internal/models"
	"eduportal/internal/push"
	"eduportal/internal/repository"
	"eduportal/internal/securestore"
	"eduportal/internal/service"
)

type stubTokens struct {
	token string
	err   error
}

func (s stubTokens) PushToken(context.Context) (string, error) { return s.token, s.err }

type testApp struct {
	store   *securestore.MemoryStore
	session *auth.Session
	server  *httptest.Server
}

func newTestApp(t *testing.T, signedIn bool) *testApp {
	t.Helper()
	ctx := context.Background()
	store := securestore.NewMemoryStore()

	familyRepo := repository.NewFamilyRepository(store, nil)
	calendarRepo := repository.NewCalendarRepository(store, nil)
	settingsRepo := repository.NewSettingsRepository(store)
	credRepo := repository.NewCredentialRepository(store)

	session := auth.NewSession(auth.Config{
		BaseURL:     "http://idp.test",
		Realm:       "master",
		ClientID:    "edu-portal-client",
		RedirectURL: "http://localhost/auth/callback",
	}, credRepo, nil)
	if signedIn {
		if err := credRepo.Save(ctx, repository.Credentials{
			AccessToken: "access",
			Profile:     models.UserProfile{ID: "u1", Email: "ada@example.com"},
		}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if !session.Restore(ctx) {
			t.Fatal("Restore() = false")
		}
	}

	familyService := service.NewFamilyService(familyRepo, calendarRepo)
	calendarService := service.NewCalendarService(calendarRepo, familyService, time.UTC)

	router := NewRouter(Routes{
		Auth:       NewAuthHandler(session),
		Family:     NewFamilyHandler(familyService),
		Calendar:   NewCalendarHandler(calendarService),
		Settings:   NewSettingsHandler(service.NewOnboardingService(settingsRepo), service.NewNotificationService(settingsRepo, stubTokens{token: "ExponentPushToken[t]"})),
		Middleware: NewMiddleware(session),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testApp{store: store, session: session, server: srv}
}

func (a *testApp) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, false)
	resp, body := app.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("GET /health = %d %s", resp.StatusCode, body)
	}
}

func TestDataRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t, false)
	for _, path := range []string{"/api/family", "/api/events", "/api/summary/daily/today", "/api/onboarding", "/api/notifications", "/auth/me"} {
		resp, _ := app.do(t, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestLoginRedirect(t *testing.T) {
	app := newTestApp(t, false)
	resp, _ := app.do(t, http.MethodGet, "/auth/login", "")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("GET /auth/login = %d, want 302", resp.StatusCode)
	}
	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Path != "/realms/master/protocol/openid-connect/auth" || loc.Query().Get("code_challenge") == "" {
		t.Errorf("Location = %s", loc)
	}

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value != loc.Query().Get("state") {
		t.Fatalf("state cookie = %+v", stateCookie)
	}

	t.Run("callback without cookie is rejected", func(t *testing.T) {
		resp, _ := app.do(t, http.MethodGet, "/auth/callback?state="+stateCookie.Value+"&code=x", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("cancelled login", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/auth/callback?state="+stateCookie.Value+"&error=access_denied", nil)
		req.AddCookie(stateCookie)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("callback: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestFamilyAPI(t *testing.T) {
	app := newTestApp(t, true)

	resp, body := app.do(t, http.MethodPost, "/api/family", `{"name":"Ada","relationship":"child","age":7}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/family = %d %s", resp.StatusCode, body)
	}
	ada := decode[models.FamilyMember](t, body)
	if ada.ID == "" || ada.Age == nil || *ada.Age != 7 {
		t.Errorf("created member = %+v", ada)
	}

	resp, _ = app.do(t, http.MethodPost, "/api/family", `{"name":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST empty name = %d, want 400", resp.StatusCode)
	}
	resp, _ = app.do(t, http.MethodPost, "/api/family", `{`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("POST invalid JSON = %d, want 400", resp.StatusCode)
	}

	_, _ = app.do(t, http.MethodPost, "/api/family", `{"name":"Sam","relationship":"parent"}`)
	_, body = app.do(t, http.MethodGet, "/api/family?relationship=child", "")
	list := decode[struct {
		Members []models.FamilyMember `json:"members"`
		Count   int                   `json:"count"`
	}](t, body)
	if list.Count != 1 || list.Members[0].ID != ada.ID {
		t.Errorf("GET ?relationship=child = %+v", list)
	}

	resp, body = app.do(t, http.MethodPatch, "/api/family/"+ada.ID, `{"name":"Ada L."}`)
	if resp.StatusCode != http.StatusOK || decode[models.FamilyMember](t, body).Name != "Ada L." {
		t.Errorf("PATCH = %d %s", resp.StatusCode, body)
	}

	resp, body = app.do(t, http.MethodPatch, "/api/family/"+ada.ID, `{"age":null}`)
	if got := decode[models.FamilyMember](t, body); resp.StatusCode != http.StatusOK || got.Age != nil || got.Name != "Ada L." {
		t.Errorf("PATCH age null = %d %s", resp.StatusCode, body)
	}

	for _, tt := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPatch, `{"name":"x"}`},
		{http.MethodDelete, ""},
	} {
		resp, _ := app.do(t, tt.method, "/api/family/member_missing", tt.body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s unknown member = %d, want 404", tt.method, resp.StatusCode)
		}
	}

	resp, body = app.do(t, http.MethodPost, "/api/events", `{"title":"Swim","startDate":"2024-01-15","familyMemberId":"`+ada.ID+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/events = %d %s", resp.StatusCode, body)
	}
	event := decode[models.CalendarEvent](t, body)

	resp, _ = app.do(t, http.MethodDelete, "/api/family/"+ada.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", resp.StatusCode)
	}
	_, body = app.do(t, http.MethodGet, "/api/events/"+event.ID, "")
	if got := decode[models.CalendarEvent](t, body); got.FamilyMemberID != "" {
		t.Errorf("event still references deleted member: %+v", got)
	}
}

func TestCalendarAPI(t *testing.T) {
	app := newTestApp(t, true)

	for _, body := range []string{
		`{"title":"Dinner","startDate":"2024-01-15","startTime":"18:00"}`,
		`{"title":"School","startDate":"2024-01-15T08:00:00Z","startTime":"08:30"}`,
		`{"title":"Trip","startDate":"2024-01-18"}`,
		`{"title":"Later","startDate":"2024-01-25"}`,
	} {
		if resp, data := app.do(t, http.MethodPost, "/api/events", body); resp.StatusCode != http.StatusCreated {
			t.Fatalf("POST %s = %d %s", body, resp.StatusCode, data)
		}
	}

	t.Run("validation", func(t *testing.T) {
		resp, body := app.do(t, http.MethodPost, "/api/events", `{"startDate":"2024-01-15"}`)
		if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "title") {
			t.Errorf("missing title = %d %s", resp.StatusCode, body)
		}
	})

	t.Run("on date", func(t *testing.T) {
		_, body := app.do(t, http.MethodGet, "/api/events/on/2024-01-15", "")
		if got := decode[struct{ Count int }](t, body); got.Count != 2 {
			t.Errorf("count = %d, want 2", got.Count)
		}
	})

	t.Run("range", func(t *testing.T) {
		_, body := app.do(t, http.MethodGet, "/api/events/range?start=2024-01-16&end=2024-01-22", "")
		if got := decode[struct{ Count int }](t, body); got.Count != 1 {
			t.Errorf("count = %d, want 1", got.Count)
		}
		resp, _ := app.do(t, http.MethodGet, "/api/events/range?start=yesterday&end=2024-01-22", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("bad start = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("daily summary", func(t *testing.T) {
		_, body := app.do(t, http.MethodGet, "/api/summary/daily/2024-01-15", "")
		got := decode[struct {
			Count  int
			Events []models.CalendarEvent
		}](t, body)
		if got.Count != 2 || got.Events[0].Title != "School" {
			t.Errorf("daily = %+v", got)
		}
	})

	t.Run("weekly summary", func(t *testing.T) {
		_, body := app.do(t, http.MethodGet, "/api/summary/weekly/2024-01-15", "")
		got := decode[struct {
			Count int
			Days  map[string][]models.CalendarEvent
		}](t, body)
		if got.Count != 3 || len(got.Days) != 7 {
			t.Errorf("weekly count = %d days = %d", got.Count, len(got.Days))
		}
	})

	t.Run("ics", func(t *testing.T) {
		resp, body := app.do(t, http.MethodGet, "/api/calendar.ics", "")
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") || !strings.Contains(string(body), "SUMMARY:Trip") {
			t.Errorf("ics = %s %s", resp.Header.Get("Content-Type"), body)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		resp, _ := app.do(t, http.MethodPatch, "/api/events/event_missing", `{"title":"x"}`)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("PATCH unknown = %d, want 404", resp.StatusCode)
		}
	})
}

func TestSettingsAPI(t *testing.T) {
	app := newTestApp(t, true)

	_, body := app.do(t, http.MethodGet, "/api/onboarding", "")
	if decode[map[string]bool](t, body)["complete"] {
		t.Error("onboarding complete initially")
	}
	app.do(t, http.MethodPost, "/api/onboarding", "")
	_, body = app.do(t, http.MethodGet, "/api/onboarding", "")
	if !decode[map[string]bool](t, body)["complete"] {
		t.Error("onboarding not complete after POST")
	}

	resp, body := app.do(t, http.MethodPost, "/api/notifications", "")
	state := decode[models.NotificationState](t, body)
	if resp.StatusCode != http.StatusOK || !state.IsRegistered || state.PermissionStatus != models.PermissionGranted {
		t.Errorf("register = %d %+v", resp.StatusCode, state)
	}
	_, body = app.do(t, http.MethodDelete, "/api/notifications", "")
	if got := decode[models.NotificationState](t, body); got.PermissionStatus != models.PermissionUndetermined {
		t.Errorf("after clear = %+v", got)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t, true)

	resp, _ := app.do(t, http.MethodPost, "/auth/logout", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST /auth/logout = %d", resp.StatusCode)
	}
	if resp, _ := app.do(t, http.MethodGet, "/api/family", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /api/family after logout = %d, want 401", resp.StatusCode)
	}
	if len(app.store.Keys()) != 0 {
		t.Errorf("slots after logout = %v", app.store.Keys())
	}
}

func TestRegisterNotificationsDenied(t *testing.T) {
	settingsRepo := repository.NewSettingsRepository(securestore.NewMemoryStore())
	refused := stubTokens{err: fmt.Errorf("%w: status 403", push.ErrPermissionDenied)}
	h := NewSettingsHandler(service.NewOnboardingService(settingsRepo), service.NewNotificationService(settingsRepo, refused))

	rec := httptest.NewRecorder()
	h.RegisterNotifications(rec, httptest.NewRequest(http.MethodPost, "/api/notifications", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := decode[models.NotificationState](t, rec.Body.Bytes()); got.IsRegistered || got.PermissionStatus != models.PermissionDenied {
		t.Errorf("state = %+v", got)
	}
}
