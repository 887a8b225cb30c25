package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/internal/store"
)

// IncidentHandler exposes the incident endpoints listed under
// /api/incidents.
type IncidentHandler struct {
	svc *incidents.Service
}

func NewIncidentHandler(svc *incidents.Service) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

type createIncidentRequest struct {
	Title       string   `json:"title"`
	Severity    string   `json:"severity"`
	Service     string   `json:"service"`
	Environment string   `json:"environment"`
	Tags        []string `json:"tags"`
}

func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	var req createIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	incident, err := h.svc.Create(r.Context(), tc, store.IncidentInput{
		Title:       req.Title,
		Severity:    req.Severity,
		Service:     req.Service,
		Environment: req.Environment,
		Tags:        req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, incident)
}

func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}

	incident, err := h.svc.Get(r.Context(), tc, id)
	if err != nil {
		writeError(w, err)
		return
	}

	timeline, err := h.svc.ListTimeline(r.Context(), tc, id)
	if err != nil {
		writeError(w, err)
		return
	}

	attachments, err := h.svc.ListAttachments(r.Context(), tc, id)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, incidentDetail{
		Incident:    incident,
		Timeline:    timeline,
		Attachments: attachments,
	})
}

type incidentDetail struct {
	Incident    any `json:"incident"`
	Timeline    any `json:"timeline"`
	Attachments any `json:"attachments"`
}

func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	q := r.URL.Query()
	filter := store.IncidentFilter{
		Status:      q.Get("status"),
		Severity:    q.Get("severity"),
		Environment: q.Get("environment"),
		Service:     q.Get("service"),
		Tag:         q.Get("tag"),
		Search:      q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if raw := q.Get("assignee_id"); raw != "" {
		if assigneeID, err := uuid.Parse(raw); err == nil {
			filter.AssigneeID = &assigneeID
		}
	}
	if raw := q.Get("cursor"); raw != "" {
		if cursor, err := uuid.Parse(raw); err == nil {
			filter.Cursor = &cursor
		}
	}

	incidentList, hasMore, err := h.svc.List(r.Context(), tc, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Collection(w, incidentList, cursorMeta(incidentList, hasMore, func(i int) uuid.UUID {
		return incidentList[i].ID
	}))
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *IncidentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	incident, err := h.svc.ChangeStatus(r.Context(), tc, id, req.Status, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, incident)
}

type assignRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id"`
}

func (h *IncidentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	incident, err := h.svc.Assign(r.Context(), tc, id, req.AssigneeID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, incident)
}

type bulkActionRequest struct {
	Action     string      `json:"action"`
	IDs        []uuid.UUID `json:"ids"`
	AssigneeID *uuid.UUID  `json:"assignee_id,omitempty"`
	Status     string      `json:"status,omitempty"`
}

func (h *IncidentHandler) BulkAction(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	var req bulkActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	var (
		updated int
		err     error
	)
	switch req.Action {
	case "assign":
		if req.AssigneeID == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "assignee_id is required for bulk assign", nil)
			return
		}
		updated, err = h.svc.BulkAssign(r.Context(), tc, req.IDs, *req.AssigneeID)
	case "status":
		if req.Status == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "status is required for bulk status change", nil)
			return
		}
		updated, err = h.svc.BulkChangeStatus(r.Context(), tc, req.IDs, req.Status)
	default:
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "action must be \"assign\" or \"status\"", nil)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, map[string]int{"updated_count": updated})
}
