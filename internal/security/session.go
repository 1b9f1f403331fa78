// Package security holds request-level protections for the HTTP surface.
package security

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// LoginStateCookie binds a pending login to the browser that started it
const LoginStateCookie = "oauth_state"

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// SetStateCookie stores the login state for ttl
func SetStateCookie(w http.ResponseWriter, r *http.Request, state string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     LoginStateCookie,
		Value:    state,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearStateCookie removes the login state cookie
func ClearStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     LoginStateCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	})
}

// StateMatches reports whether the request carries the cookie for state
func StateMatches(r *http.Request, state string) bool {
	cookie, err := r.Cookie(LoginStateCookie)
	if err != nil || cookie.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}
