package middleware

import (
	"net/http"

	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/auth"
)

// Auth verifies the session cookie on every request it guards.
type Auth struct {
	sessions *auth.Manager
}

// NewAuth creates a new Auth middleware backed by a session manager.
func NewAuth(m *auth.Manager) *Auth {
	return &Auth{sessions: m}
}

// RequireSession rejects requests without a valid session cookie and
// attaches the parsed session to the request context otherwise.
func (a *Auth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := a.sessions.FromRequest(r)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_SESSION", "Missing or invalid session", nil)
			return
		}
		r = r.WithContext(setSession(r.Context(), session))
		next.ServeHTTP(w, r)
	})
}
