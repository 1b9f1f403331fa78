package handlers

import (
	"errors"
	"net/http"
	"time"

	"eduportal/internal/auth"
	"eduportal/internal/netclient"
	"eduportal/internal/security"
)

const loginStateTTL = 10 * time.Minute

// AuthHandler exposes the login flow and the current session
type AuthHandler struct {
	session *auth.Session
}

func NewAuthHandler(session *auth.Session) *AuthHandler {
	return &AuthHandler{session: session}
}

// Login redirects to the identity provider
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	authURL, state := h.session.BeginLogin()
	security.SetStateCookie(w, r, state, loginStateTTL)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the login started by Login
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")
	if !security.StateMatches(r, state) {
		respondWithError(w, http.StatusBadRequest, "Invalid login state", "", nil)
		return
	}
	security.ClearStateCookie(w, r)

	if code := q.Get("error"); code != "" {
		err := h.session.CallbackError(state, code, q.Get("error_description"))
		respondWithLoginError(w, err)
		return
	}

	code := q.Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	profile, err := h.session.CompleteLogin(r.Context(), state, code)
	if err != nil {
		respondWithLoginError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// Logout signs the user out
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh renews the access token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Refresh(r.Context()); err != nil {
		respondWithLoginError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.session.Profile()
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func respondWithLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrLoginCancelled):
		respondWithError(w, http.StatusUnauthorized, "Login was cancelled", "", nil)
	case errors.Is(err, auth.ErrInvalidState):
		respondWithError(w, http.StatusBadRequest, "Invalid login state", "", nil)
	case errors.Is(err, auth.ErrNoRefreshToken):
		respondWithError(w, http.StatusUnauthorized, "No refresh token available", "", nil)
	case errors.Is(err, auth.ErrProviderRejected):
		respondWithError(w, http.StatusUnauthorized, "Authentication failed", "login rejected", err)
	case errors.Is(err, auth.ErrMissingUserInfo):
		respondWithError(w, http.StatusBadGateway, "Failed to fetch user information", "userinfo failed", err)
	case errors.Is(err, auth.ErrNetwork):
		respondWithError(w, http.StatusBadGateway, netclient.UserMessage(err), "identity provider unreachable", err)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "login failed", err)
	}
}
