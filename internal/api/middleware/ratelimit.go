package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/kiranshivaraju/loghunter/internal/api/response"
)

// RateLimit applies fixed-window request counters kept in process memory.
// Counters reset on restart; this trades precision for not needing a
// shared backing store, since limits are per-instance by design.
type RateLimit struct {
	readsPerMin  int
	writesPerMin int

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimit creates a RateLimit middleware with separate budgets for
// read (GET/HEAD) and write (everything else) requests.
func NewRateLimit(readsPerMin, writesPerMin int) *RateLimit {
	return &RateLimit{
		readsPerMin:  readsPerMin,
		writesPerMin: writesPerMin,
		windows:      make(map[string]*window),
	}
}

// Limit keys the counter by session user, falling back to remote address
// for unauthenticated requests.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isRead := r.Method == http.MethodGet || r.Method == http.MethodHead
		limit := rl.writesPerMin
		if isRead {
			limit = rl.readsPerMin
		}

		identity := r.RemoteAddr
		if session, ok := GetSession(r); ok {
			identity = session.UserID.String()
		}
		key := fmt.Sprintf("%s:%v", identity, isRead)

		count, resetAt := rl.increment(key)
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) increment(key string) (int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 0, resetAt: now.Add(time.Minute)}
		rl.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt
}
