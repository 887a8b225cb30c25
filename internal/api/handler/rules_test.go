package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/api/handler"
	"github.com/kiranshivaraju/loghunter/internal/flags"
	"github.com/kiranshivaraju/loghunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateFlag(s *fakeStore) uuid.UUID {
	id := uuid.New()
	s.flags[id] = &models.FeatureFlag{ID: id, Key: "k", Name: "n", Enabled: true, Environment: models.EnvironmentProd}
	return id
}

func mustUUID() uuid.UUID { return uuid.New() }

func mountRules(h *handler.RuleHandler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Route("/api/feature-flags/{id}/rules", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Add)
			r.Delete("/{rid}", h.Delete)
		})
	}
}

func TestRuleHandler_AddAndList(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewRuleHandler(svc)
	router, cookie, _ := withSession(t, mountRules(h), models.RoleAdmin)

	flagID := mustCreateFlag(s)

	body, _ := json.Marshal(map[string]any{
		"type": models.RuleTypeAllowlist, "condition": json.RawMessage(`{"user_ids":["u1"]}`), "order": 0,
	})
	req := httptest.NewRequest("POST", "/api/feature-flags/"+flagID.String()+"/rules", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 201, w.Code)

	listReq := httptest.NewRequest("GET", "/api/feature-flags/"+flagID.String()+"/rules", nil)
	listReq.AddCookie(cookie)
	listW := httptest.NewRecorder()
	router.ServeHTTP(listW, listReq)

	assert.Equal(t, 200, listW.Code)

	var out struct {
		Data []models.Rule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &out))
	assert.Len(t, out.Data, 1)
}

func TestRuleHandler_AddRejectsInvalidPercentage(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewRuleHandler(svc)
	router, cookie, _ := withSession(t, mountRules(h), models.RoleAdmin)

	flagID := mustCreateFlag(s)

	body, _ := json.Marshal(map[string]any{
		"type": models.RuleTypePercentRollout, "condition": json.RawMessage(`{"percentage":150}`), "order": 0,
	})
	req := httptest.NewRequest("POST", "/api/feature-flags/"+flagID.String()+"/rules", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestRuleHandler_Delete(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewRuleHandler(svc)
	router, cookie, _ := withSession(t, mountRules(h), models.RoleAdmin)

	flagID := mustCreateFlag(s)
	rule := &models.Rule{ID: mustUUID(), FlagID: flagID, Type: models.RuleTypeAllowlist, Condition: json.RawMessage(`{"user_ids":[]}`)}
	s.rules[flagID] = append(s.rules[flagID], rule)

	req := httptest.NewRequest("DELETE", "/api/feature-flags/"+flagID.String()+"/rules/"+rule.ID.String(), nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Empty(t, s.rules[flagID])
}
