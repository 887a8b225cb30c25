package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/store"
)

// AuditHandler exposes GET /api/audit-logs. Access is gated upstream by
// middleware.RequirePermission(rbac.PermissionViewAudit); this handler only
// worries about filtering and pagination.
type AuditHandler struct {
	store store.Store
}

func NewAuditHandler(s store.Store) *AuditHandler {
	return &AuditHandler{store: s}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	q := r.URL.Query()
	filter := store.AuditFilter{
		EntityType: q.Get("entity_type"),
		Action:     q.Get("action"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if raw := q.Get("entity_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.EntityID = &id
		}
	}
	if raw := q.Get("actor_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.ActorID = &id
		}
	}
	if raw := q.Get("start_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.StartDate = &t
		}
	}
	if raw := q.Get("end_date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.EndDate = &t
		}
	}
	if raw := q.Get("cursor"); raw != "" {
		if cursor, err := uuid.Parse(raw); err == nil {
			filter.Cursor = &cursor
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	logs, hasMore, err := h.store.ListAuditLogs(r.Context(), tc, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Collection(w, logs, cursorMeta(logs, hasMore, func(i int) uuid.UUID {
		return logs[i].ID
	}))
}
