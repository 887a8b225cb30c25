package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// SavedViewHandler exposes the saved view endpoints under
// /api/tenants/{tenant}/saved-views.
type SavedViewHandler struct {
	store store.Store
}

func NewSavedViewHandler(s store.Store) *SavedViewHandler {
	return &SavedViewHandler{store: s}
}

func (h *SavedViewHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	views, err := h.store.ListSavedViews(r.Context(), tc)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, views)
}

type createSavedViewRequest struct {
	Name    string                  `json:"name"`
	Filters models.SavedViewFilters `json:"filters"`
}

func (h *SavedViewHandler) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	var req createSavedViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	view, err := h.store.CreateSavedView(r.Context(), tc, req.Name, req.Filters)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, view)
}

func (h *SavedViewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "vid"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid saved view id", nil)
		return
	}

	if err := h.store.DeleteSavedView(r.Context(), tc, id); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}
