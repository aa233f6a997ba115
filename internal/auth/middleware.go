package auth

import (
	"net/http"
	"strings"
	"time"

	"homeservices/internal/api"
)

// SessionAuth authenticates every request with a `Bearer <token>` header
// against the stored session records and attaches the resolved user to the
// request context. Missing, expired, or revoked sessions get a 401.
func SessionAuth(sessions *Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(header, "Bearer ") {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token")
				return
			}

			u, err := sessions.Authenticate(r.Context(), token, time.Now())
			if err != nil {
				api.WriteWorkflowError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireRole guards a route group behind a single role. Ownership checks on
// individual resources stay inside the workflow core.
func RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == nil {
				api.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing session")
				return
			}
			if u.Role != role {
				api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
