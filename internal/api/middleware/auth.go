package middleware

import (
	"net/http"
	"strings"

	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/session"
)

// DevUserHeader names the operator directly when dev mode is on.
const DevUserHeader = "X-Dev-User"

// TokenValidator validates bearer tokens. *session.Validator satisfies it.
type TokenValidator interface {
	ValidateToken(token string) (*session.Claims, error)
}

// Auth returns middleware that validates JWT Bearer tokens and injects the
// operator identity into the context. WebSocket upgrades may pass the token
// as a "token" query parameter. With devMode set, X-Dev-User is accepted in
// place of a token; validator may then be nil.
func Auth(validator TokenValidator, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devMode {
				if user := strings.TrimSpace(r.Header.Get(DevUserHeader)); user != "" {
					ctx := session.WithIdentity(r.Context(), session.Identity{Subject: user})
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			token, ok := extractToken(r)
			if !ok {
				response.WriteError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}
			if validator == nil {
				response.WriteError(w, http.StatusUnauthorized, "token authentication is not configured")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := session.WithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reports ok=false when no credentials were sent at all, and an
// empty token when the Authorization header is not a bearer token.
func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if isWebSocketUpgrade(r) {
			if token := r.URL.Query().Get("token"); token != "" {
				return token, true
			}
		}
		return "", false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return "", true
	}
	return token, true
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
