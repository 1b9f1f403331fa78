package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eduportal/internal/repository"
	"eduportal/internal/securestore"
)

const (
	testRealm    = "family"
	testClientID = "edu-portal-client"
)

// fakeProvider is a minimal OIDC provider for a single realm
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu           sync.Mutex
	nonce        string
	subject      string
	revoked      []string
	revokeStatus int
	refreshOK    bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	p := &fakeProvider{t: t, key: key, subject: "user-1", revokeStatus: http.StatusOK, refreshOK: true}

	prefix := "/realms/" + testRealm + "/protocol/openid-connect"
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+prefix+"/token", p.token)
	mux.HandleFunc("GET "+prefix+"/userinfo", p.userinfo)
	mux.HandleFunc("POST "+prefix+"/revoke", p.revoke)
	mux.HandleFunc("GET "+prefix+"/certs", p.certs)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			writeOAuthError(w, "invalid_grant")
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    300,
			"id_token":      p.idToken(),
		})
	case "refresh_token":
		if !p.refreshOK || r.Form.Get("refresh_token") != "refresh-1" {
			writeOAuthError(w, "invalid_grant")
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "access-2",
			"token_type":   "Bearer",
			"expires_in":   300,
		})
	default:
		writeOAuthError(w, "unsupported_grant_type")
	}
}

func (p *fakeProvider) idToken() string {
	claims := idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.server.URL + "/realms/" + testRealm,
			Subject:   p.subject,
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: "ada@example.com",
		Nonce: p.nonce,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(p.key)
	if err != nil {
		p.t.Errorf("SignedString() error = %v", err)
	}
	return signed
}

func (p *fakeProvider) userinfo(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer access-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{
		"sub":                "user-1",
		"email":              "ada@example.com",
		"name":               "Ada Lovelace",
		"preferred_username": "ada",
	})
}

func (p *fakeProvider) revoke(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Form.Get("client_id") != testClientID {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.revoked = append(p.revoked, r.Form.Get("refresh_token"))
	w.WriteHeader(p.revokeStatus)
}

func (p *fakeProvider) certs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, jwkSet{Keys: []jwk{{
		Kid: "k1",
		Kty: "RSA",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(p.key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.key.E)).Bytes()),
	}}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func newTestSession(t *testing.T, p *fakeProvider) (*Session, *securestore.MemoryStore) {
	t.Helper()
	store := securestore.NewMemoryStore()
	s := NewSession(Config{
		BaseURL:     p.server.URL,
		Realm:       testRealm,
		ClientID:    testClientID,
		RedirectURL: "http://localhost:8080/auth/callback",
	}, repository.NewCredentialRepository(store), p.server.Client())
	return s, store
}

// login drives BeginLogin/CompleteLogin against the fake provider
func login(t *testing.T, p *fakeProvider, s *Session, code string) error {
	t.Helper()
	authURL, state := s.BeginLogin()

	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("auth URL %q: %v", authURL, err)
	}
	q := u.Query()
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Errorf("auth URL missing PKCE challenge: %s", authURL)
	}
	if q.Get("state") != state {
		t.Errorf("state = %q, want %q", q.Get("state"), state)
	}
	p.mu.Lock()
	p.nonce = q.Get("nonce")
	p.mu.Unlock()

	_, err = s.CompleteLogin(context.Background(), state, code)
	return err
}

func TestKeycloakEndpoints(t *testing.T) {
	got := KeycloakEndpoints("http://localhost:8181/", "master")
	want := Endpoints{
		Issuer:        "http://localhost:8181/realms/master",
		Authorization: "http://localhost:8181/realms/master/protocol/openid-connect/auth",
		Token:         "http://localhost:8181/realms/master/protocol/openid-connect/token",
		Revocation:    "http://localhost:8181/realms/master/protocol/openid-connect/revoke",
		UserInfo:      "http://localhost:8181/realms/master/protocol/openid-connect/userinfo",
		JWKS:          "http://localhost:8181/realms/master/protocol/openid-connect/certs",
	}
	if got != want {
		t.Errorf("KeycloakEndpoints() = %+v, want %+v", got, want)
	}
}

func TestLogin(t *testing.T) {
	p := newFakeProvider(t)
	s, store := newTestSession(t, p)

	if err := login(t, p, s, "good-code"); err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
	if !s.IsAuthenticated() {
		t.Fatal("IsAuthenticated() = false after login")
	}
	profile, _ := s.Profile()
	if profile.ID != "user-1" || profile.PreferredUsername != "ada" {
		t.Errorf("Profile() = %+v", profile)
	}

	for slot, want := range map[string]string{
		repository.SlotAuthToken:    "access-1",
		repository.SlotRefreshToken: "refresh-1",
	} {
		if got, _ := store.Get(context.Background(), slot); got != want {
			t.Errorf("slot %s = %q, want %q", slot, got, want)
		}
	}
	if raw, _ := store.Get(context.Background(), repository.SlotUserData); !strings.Contains(raw, `"email":"ada@example.com"`) {
		t.Errorf("user_data slot = %q", raw)
	}
}

func TestLoginFailures(t *testing.T) {
	t.Run("rejected code", func(t *testing.T) {
		p := newFakeProvider(t)
		s, store := newTestSession(t, p)
		err := login(t, p, s, "bad-code")
		if !errors.Is(err, ErrProviderRejected) {
			t.Errorf("error = %v, want ErrProviderRejected", err)
		}
		if s.IsAuthenticated() || len(store.Keys()) != 0 {
			t.Error("failed login left state behind")
		}
	})

	t.Run("unknown state", func(t *testing.T) {
		p := newFakeProvider(t)
		s, _ := newTestSession(t, p)
		if _, err := s.CompleteLogin(context.Background(), "nope", "good-code"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("state is single use", func(t *testing.T) {
		p := newFakeProvider(t)
		s, _ := newTestSession(t, p)
		_, state := s.BeginLogin()
		_, _ = s.CompleteLogin(context.Background(), state, "bad-code")
		if _, err := s.CompleteLogin(context.Background(), state, "good-code"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("user cancelled", func(t *testing.T) {
		p := newFakeProvider(t)
		s, _ := newTestSession(t, p)
		_, state := s.BeginLogin()
		if err := s.CallbackError(state, "access_denied", ""); !errors.Is(err, ErrLoginCancelled) {
			t.Errorf("error = %v, want ErrLoginCancelled", err)
		}
		if err := s.CallbackError(state, "server_error", "boom"); !errors.Is(err, ErrProviderRejected) {
			t.Errorf("error = %v, want ErrProviderRejected", err)
		}
	})

	t.Run("id token subject mismatch", func(t *testing.T) {
		p := newFakeProvider(t)
		p.subject = "someone-else"
		s, _ := newTestSession(t, p)
		if err := login(t, p, s, "good-code"); !errors.Is(err, ErrProviderRejected) {
			t.Errorf("error = %v, want ErrProviderRejected", err)
		}
	})

	t.Run("provider unreachable", func(t *testing.T) {
		p := newFakeProvider(t)
		s, _ := newTestSession(t, p)
		_, state := s.BeginLogin()
		p.server.Close()
		if _, err := s.CompleteLogin(context.Background(), state, "good-code"); !errors.Is(err, ErrNetwork) {
			t.Errorf("error = %v, want ErrNetwork", err)
		}
	})
}

func TestLogout(t *testing.T) {
	tests := []struct {
		name         string
		revokeStatus int
	}{
		{"revocation succeeds", http.StatusOK},
		{"revocation fails", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			p.revokeStatus = tt.revokeStatus
			s, store := newTestSession(t, p)
			if err := login(t, p, s, "good-code"); err != nil {
				t.Fatalf("login: %v", err)
			}

			if err := s.Logout(context.Background()); err != nil {
				t.Fatalf("Logout() error = %v", err)
			}
			if s.IsAuthenticated() {
				t.Error("IsAuthenticated() = true after logout")
			}
			if len(store.Keys()) != 0 {
				t.Errorf("slots left after logout: %v", store.Keys())
			}
			if len(p.revoked) != 1 || p.revoked[0] != "refresh-1" {
				t.Errorf("revoked = %v", p.revoked)
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	t.Run("keeps refresh token when none issued", func(t *testing.T) {
		p := newFakeProvider(t)
		s, store := newTestSession(t, p)
		if err := login(t, p, s, "good-code"); err != nil {
			t.Fatalf("login: %v", err)
		}
		if err := s.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if got, _ := store.Get(context.Background(), repository.SlotAuthToken); got != "access-2" {
			t.Errorf("access token = %q, want access-2", got)
		}
		if got, _ := store.Get(context.Background(), repository.SlotRefreshToken); got != "refresh-1" {
			t.Errorf("refresh token = %q, want refresh-1", got)
		}
		if !s.IsAuthenticated() {
			t.Error("IsAuthenticated() = false after refresh")
		}
	})

	t.Run("failure logs out", func(t *testing.T) {
		p := newFakeProvider(t)
		s, store := newTestSession(t, p)
		if err := login(t, p, s, "good-code"); err != nil {
			t.Fatalf("login: %v", err)
		}
		p.refreshOK = false
		if err := s.Refresh(context.Background()); !errors.Is(err, ErrProviderRejected) {
			t.Errorf("Refresh() error = %v, want ErrProviderRejected", err)
		}
		if s.IsAuthenticated() || len(store.Keys()) != 0 {
			t.Error("failed refresh did not log out")
		}
	})

	t.Run("no refresh token", func(t *testing.T) {
		p := newFakeProvider(t)
		s, _ := newTestSession(t, p)
		if err := s.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("Refresh() error = %v, want ErrNoRefreshToken", err)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider(t)
	s, store := newTestSession(t, p)

	if s.Restore(ctx) {
		t.Error("Restore() = true on empty store")
	}

	_ = store.Set(ctx, repository.SlotAuthToken, "access-1")
	if s.Restore(ctx) {
		t.Error("Restore() = true without profile")
	}

	_ = store.Set(ctx, repository.SlotUserData, `{"id":"user-1","email":"ada@example.com"}`)
	if !s.Restore(ctx) {
		t.Fatal("Restore() = false with token and profile")
	}
	if profile, ok := s.Profile(); !ok || profile.Email != "ada@example.com" {
		t.Errorf("Profile() = %+v, %v", profile, ok)
	}
}
