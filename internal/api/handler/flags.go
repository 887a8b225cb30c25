package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/flags"
	"github.com/kiranshivaraju/loghunter/internal/store"
)

// FlagHandler exposes the feature flag endpoints listed under
// /api/feature-flags.
type FlagHandler struct {
	svc *flags.Service
}

func NewFlagHandler(svc *flags.Service) *FlagHandler {
	return &FlagHandler{svc: svc}
}

type createFlagRequest struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Environment string `json:"environment"`
}

func (h *FlagHandler) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	var req createFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	flag, err := h.svc.Create(r.Context(), tc, store.FlagInput{
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Environment: req.Environment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, flag)
}

func (h *FlagHandler) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	flag, err := h.svc.Get(r.Context(), tc, id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, flag)
}

func (h *FlagHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	environment := r.URL.Query().Get("environment")
	list, err := h.svc.List(r.Context(), tc, environment)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, list)
}

type updateFlagRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

func (h *FlagHandler) Update(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	var req updateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	flag, err := h.svc.Update(r.Context(), tc, id, store.FlagUpdate{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, flag)
}

func (h *FlagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	if err := h.svc.Delete(r.Context(), tc, id); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}

type evaluateFlagRequest struct {
	UserID      string `json:"user_id"`
	Environment string `json:"environment"`
}

func (h *FlagHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	var req evaluateFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	result, err := h.svc.Evaluate(r.Context(), tc, id, flags.EvalContext{
		UserID:      req.UserID,
		Environment: req.Environment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, result)
}
