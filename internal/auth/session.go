package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"eduportal/internal/models"
	"eduportal/internal/netclient"
	"eduportal/internal/repository"
	"eduportal/internal/securestore"
)

var (
	ErrProviderRejected = errors.New("identity provider rejected the login")
	ErrLoginCancelled   = errors.New("login was cancelled")
	ErrNetwork          = errors.New("could not reach identity provider")
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrMissingUserInfo  = errors.New("failed to fetch user information")
	ErrInvalidState     = errors.New("invalid or expired login state")
)

const pendingLoginTTL = 10 * time.Minute

// Config describes the OIDC client
type Config struct {
	BaseURL     string
	Realm       string
	ClientID    string
	RedirectURL string
	Scopes      []string
}

type pendingLogin struct {
	verifier  string
	nonce     string
	expiresAt time.Time
}

// Session is the signed-in state of the device user. Credentials live in the
// credential repository; Session mirrors whether they are present.
type Session struct {
	oauth     *oauth2.Config
	endpoints Endpoints
	creds     *repository.CredentialRepository
	client    *http.Client
	now       func() time.Time

	mu            sync.RWMutex
	pending       map[string]pendingLogin
	authenticated bool
	profile       models.UserProfile
}

// NewSession creates a session. A nil client uses http.DefaultClient.
func NewSession(cfg Config, creds *repository.CredentialRepository, client *http.Client) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}
	endpoints := KeycloakEndpoints(cfg.BaseURL, cfg.Realm)

	return &Session{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURL,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.Authorization,
				TokenURL:  endpoints.Token,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		endpoints: endpoints,
		creds:     creds,
		client:    client,
		now:       time.Now,
		pending:   make(map[string]pendingLogin),
	}
}

// Endpoints returns the provider endpoints in use
func (s *Session) Endpoints() Endpoints {
	return s.endpoints
}

// BeginLogin starts an authorization request and returns the URL the user
// must visit along with its state value.
func (s *Session) BeginLogin() (authURL, state string) {
	state = uuid.NewString()
	nonce := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	s.mu.Lock()
	now := s.now()
	for key, p := range s.pending {
		if now.After(p.expiresAt) {
			delete(s.pending, key)
		}
	}
	s.pending[state] = pendingLogin{verifier: verifier, nonce: nonce, expiresAt: now.Add(pendingLoginTTL)}
	s.mu.Unlock()

	authURL = s.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
	return authURL, state
}

// CallbackError maps an error returned on the redirect to a login error and
// discards the pending request.
func (s *Session) CallbackError(state, code, description string) error {
	s.takePending(state)
	if code == "access_denied" {
		return ErrLoginCancelled
	}
	if description != "" {
		return fmt.Errorf("%w: %s: %s", ErrProviderRejected, code, description)
	}
	return fmt.Errorf("%w: %s", ErrProviderRejected, code)
}

// CompleteLogin exchanges the authorization code, fetches the user profile
// and persists the credentials.
func (s *Session) CompleteLogin(ctx context.Context, state, code string) (models.UserProfile, error) {
	pending, ok := s.takePending(state)
	if !ok {
		return models.UserProfile{}, ErrInvalidState
	}
	ctx = s.clientContext(ctx)

	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(pending.verifier))
	if err != nil {
		return models.UserProfile{}, classify(err)
	}

	profile, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return models.UserProfile{}, err
	}

	if idToken, _ := token.Extra("id_token").(string); idToken != "" {
		claims, err := s.verifyIDToken(ctx, idToken, pending.nonce)
		if err != nil {
			return models.UserProfile{}, fmt.Errorf("%w: %w", ErrProviderRejected, err)
		}
		if claims.Subject != profile.ID {
			return models.UserProfile{}, fmt.Errorf("%w: id token subject does not match user info", ErrProviderRejected)
		}
	}

	if err := s.creds.Save(ctx, repository.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Profile:      profile,
	}); err != nil {
		return models.UserProfile{}, err
	}

	s.setAuthenticated(profile)
	slog.Info("user logged in", "user_id", profile.ID)
	return profile, nil
}

// Logout revokes the refresh token when possible and always erases the
// stored credentials.
func (s *Session) Logout(ctx context.Context) error {
	if refreshToken, err := s.creds.RefreshToken(ctx); err == nil && refreshToken != "" {
		if err := s.revoke(s.clientContext(ctx), refreshToken); err != nil {
			slog.Warn("token revocation failed", "error", err)
		}
	}

	s.mu.Lock()
	s.authenticated = false
	s.profile = models.UserProfile{}
	s.mu.Unlock()

	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// Refresh obtains a new access token. Any failure logs the user out before
// the error is returned.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.refresh(ctx); err != nil {
		slog.Error("token refresh failed", "error", err)
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			slog.Error("logout after failed refresh", "error", logoutErr)
		}
		return err
	}
	return nil
}

func (s *Session) refresh(ctx context.Context) error {
	refreshToken, err := s.creds.RefreshToken(ctx)
	if errors.Is(err, securestore.ErrNotFound) || (err == nil && refreshToken == "") {
		return ErrNoRefreshToken
	}
	if err != nil {
		return fmt.Errorf("failed to read refresh token: %w", err)
	}

	ctx = s.clientContext(ctx)
	token, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return classify(err)
	}

	next := token.RefreshToken
	if next == "" {
		next = refreshToken
	}
	return s.creds.SaveTokens(ctx, token.AccessToken, next)
}

// Restore reloads the session from storage. The user is authenticated only
// when both an access token and a profile are stored.
func (s *Session) Restore(ctx context.Context) bool {
	if _, err := s.creds.AccessToken(ctx); err != nil {
		if !errors.Is(err, securestore.ErrNotFound) {
			slog.Error("failed to read stored access token", "error", err)
		}
		return false
	}
	profile, err := s.creds.Profile(ctx)
	if err != nil {
		if !errors.Is(err, securestore.ErrNotFound) {
			slog.Error("failed to read stored profile", "error", err)
		}
		return false
	}
	s.setAuthenticated(profile)
	return true
}

// IsAuthenticated reports whether credentials are present
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Profile returns the signed-in user's profile
func (s *Session) Profile() (models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.authenticated
}

func (s *Session) setAuthenticated(profile models.UserProfile) {
	s.mu.Lock()
	s.authenticated = true
	s.profile = profile
	s.mu.Unlock()
}

func (s *Session) takePending(state string) (pendingLogin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[state]
	if !ok {
		return p, false
	}
	delete(s.pending, state)
	if s.now().After(p.expiresAt) {
		return p, false
	}
	return p, true
}

// clientContext routes oauth2 traffic through the session's client
func (s *Session) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.client)
}

func (s *Session) fetchUserInfo(ctx context.Context, token *oauth2.Token) (models.UserProfile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(s.endpoints.UserInfo)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("%w: %w", ErrMissingUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.UserProfile{}, fmt.Errorf("%w: %w", ErrMissingUserInfo, netclient.StatusError(resp))
	}

	var payload struct {
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.UserProfile{}, fmt.Errorf("%w: %w", ErrMissingUserInfo, err)
	}
	if payload.Sub == "" {
		return models.UserProfile{}, fmt.Errorf("%w: missing subject", ErrMissingUserInfo)
	}

	return models.UserProfile{
		ID:                payload.Sub,
		Email:             payload.Email,
		Name:              payload.Name,
		PreferredUsername: payload.PreferredUsername,
	}, nil
}

func (s *Session) revoke(ctx context.Context, refreshToken string) error {
	form := url.Values{
		"client_id":       {s.oauth.ClientID},
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
		"refresh_token":   {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.Revocation, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return netclient.StatusError(resp)
	}
	return nil
}

// classify maps token endpoint failures to login errors
func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode == "access_denied" {
			return fmt.Errorf("%w: %w", ErrLoginCancelled, err)
		}
		return fmt.Errorf("%w: %w", ErrProviderRejected, err)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
