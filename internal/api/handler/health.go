package handler

import (
	"net/http"

	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/cache"
	"github.com/kiranshivaraju/loghunter/internal/store"
)

// HealthHandler reports liveness of the database and cache.
type HealthHandler struct {
	store store.Store
	cache cache.Cache
}

func NewHealthHandler(s store.Store, c cache.Cache) *HealthHandler {
	return &HealthHandler{store: s, cache: c}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"database": "ok",
		"cache":    "ok",
	}

	if err := h.store.Ping(r.Context()); err != nil {
		checks["database"] = "degraded"
	}
	if err := h.cache.Ping(r.Context()); err != nil {
		checks["cache"] = "degraded"
	}

	degraded := checks["database"] != "ok" || checks["cache"] != "ok"
	if degraded {
		response.Error(w, http.StatusServiceUnavailable, "DEGRADED", "One or more services degraded", checks)
		return
	}

	response.JSON(w, map[string]any{
		"status":   "ok",
		"services": checks,
	})
}
