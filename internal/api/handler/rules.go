package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
	"github.com/kiranshivaraju/loghunter/internal/flags"
)

// RuleHandler exposes the rule endpoints nested under
// /api/feature-flags/{id}/rules.
type RuleHandler struct {
	svc *flags.Service
}

func NewRuleHandler(svc *flags.Service) *RuleHandler {
	return &RuleHandler{svc: svc}
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	flagID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	rules, err := h.svc.ListRules(r.Context(), tc, flagID)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, rules)
}

type addRuleRequest struct {
	Type      string          `json:"type"`
	Condition json.RawMessage `json:"condition"`
	Order     int             `json:"order"`
}

func (h *RuleHandler) Add(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	flagID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}

	var req addRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	rule, err := h.svc.AddRule(r.Context(), tc, flagID, req.Type, req.Condition, req.Order)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Created(w, rule)
}

func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := mw.GetTenancy(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_SESSION", "Missing or invalid session", nil)
		return
	}

	flagID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid flag id", nil)
		return
	}
	ruleID, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid rule id", nil)
		return
	}

	if err := h.svc.DeleteRule(r.Context(), tc, flagID, ruleID); err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, map[string]bool{"success": true})
}
