package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/internal/realtime"
)

// StreamHandler exposes GET /api/incidents/{id}/stream.
type StreamHandler struct {
	incidents *incidents.Service
	stream    *realtime.Stream
}

func NewStreamHandler(incidentsSvc *incidents.Service, stream *realtime.Stream) *StreamHandler {
	return &StreamHandler{incidents: incidentsSvc, stream: stream}
}

// Serve resolves the incident to confirm it belongs to the caller's tenant
// before opening the stream; a missing or foreign incident closes with 404,
// matching the existence-oracle protection applied to every other route.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
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

	if _, err := h.incidents.Get(r.Context(), tc, incidentID); err != nil {
		writeError(w, err)
		return
	}

	h.stream.Serve(w, r, tc, incidentID)
}
