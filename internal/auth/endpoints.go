// Package auth manages the signed-in session against an OpenID Connect
// provider: Authorization Code login with PKCE, refresh, logout and restore
// of persisted credentials.
package auth

import (
	"fmt"
	"strings"
)

// Endpoints are the provider URLs used by a Session
type Endpoints struct {
	Issuer        string
	Authorization string
	Token         string
	Revocation    string
	UserInfo      string
	JWKS          string
}

// KeycloakEndpoints derives the endpoints of a Keycloak realm
func KeycloakEndpoints(baseURL, realm string) Endpoints {
	issuer := fmt.Sprintf("%s/realms/%s", strings.TrimRight(baseURL, "/"), realm)
	oidc := issuer + "/protocol/openid-connect"
	return Endpoints{
		Issuer:        issuer,
		Authorization: oidc + "/auth",
		Token:         oidc + "/token",
		Revocation:    oidc + "/revoke",
		UserInfo:      oidc + "/userinfo",
		JWKS:          oidc + "/certs",
	}
}
