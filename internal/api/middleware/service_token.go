package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/atelierhq/atelier-api/internal/api/shared"
)

// ServiceTokenMiddleware authenticates machine callers (the image runner)
// with a shared bearer token. Separate from user JWT auth: the runner
// writes task statuses, not user resources.
type ServiceTokenMiddleware struct {
	token string
}

// NewServiceTokenMiddleware creates a ServiceTokenMiddleware for the given
// token.
func NewServiceTokenMiddleware(token string) *ServiceTokenMiddleware {
	return &ServiceTokenMiddleware{token: token}
}

// Authenticate verifies the shared token in the Authorization header.
func (m *ServiceTokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Service authentication not configured")
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.token)) != 1 {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid service token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
