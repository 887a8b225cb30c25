package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
)

// TimelineHandler exposes POST /api/incidents/{id}/timeline.
type TimelineHandler struct {
	svc *incidents.Service
}

func NewTimelineHandler(svc *incidents.Service) *TimelineHandler {
	return &TimelineHandler{svc: svc}
}

type addTimelineEventRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *TimelineHandler) Add(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid incident id", nil)
		return
	}

	var req addTimelineEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	event, err := h.svc.AddTimelineEvent(r.Context(), tc, incidentID, req.Type, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, event)
}
