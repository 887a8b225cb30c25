package middleware

import (
	"net/http"

	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/rbac"
)

// RequirePermission rejects requests whose session role lacks permission.
// Must run after RequireSession.
func RequirePermission(permission rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := GetSession(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized,
					"INVALID_SESSION", "Missing or invalid session", nil)
				return
			}
			if !rbac.Allowed(session.Role, permission) {
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
