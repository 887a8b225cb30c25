package middleware

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/loghunter/internal/auth"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
)

type contextKey string

const sessionKey contextKey = "session"

func setSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// GetSession returns the session attached by RequireSession, if any.
func GetSession(r *http.Request) (auth.Session, bool) {
	s, ok := r.Context().Value(sessionKey).(auth.Session)
	return s, ok
}

// GetTenancy builds a tenancy.Context from the request's session. Handlers
// call this instead of threading individual fields through by hand.
func GetTenancy(r *http.Request) (tenancy.Context, bool) {
	s, ok := GetSession(r)
	if !ok {
		return tenancy.Context{}, false
	}
	return tenancy.Context{TenantID: s.TenantID, UserID: s.UserID, Role: s.Role}, true
}
