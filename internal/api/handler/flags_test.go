package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/loghunter/internal/api/handler"
	"github.com/kiranshivaraju/loghunter/internal/flags"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagInputFor(key string, enabled bool) store.FlagInput {
	return store.FlagInput{Key: key, Name: key, Enabled: enabled, Environment: models.EnvironmentProd}
}

func mountFlags(h *handler.FlagHandler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Route("/api/feature-flags", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Patch("/", h.Update)
				r.Delete("/", h.Delete)
				r.Post("/evaluate", h.Evaluate)
			})
		})
	}
}

func TestFlagHandler_CreateAndGet(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewFlagHandler(svc)

	router, cookie, _ := withSession(t, mountFlags(h), models.RoleAdmin)

	body, _ := json.Marshal(map[string]any{
		"key": "new-checkout", "name": "New checkout", "environment": models.EnvironmentProd,
	})
	req := httptest.NewRequest("POST", "/api/feature-flags", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 201, w.Code)

	var created struct {
		Data models.FeatureFlag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "new-checkout", created.Data.Key)

	getReq := httptest.NewRequest("GET", "/api/feature-flags/"+created.Data.ID.String(), nil)
	getReq.AddCookie(cookie)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)
	assert.Equal(t, 200, getW.Code)
}

func TestFlagHandler_GetMissingReturns404(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewFlagHandler(svc)
	router, cookie, _ := withSession(t, mountFlags(h), models.RoleAdmin)

	req := httptest.NewRequest("GET", "/api/feature-flags/"+"00000000-0000-0000-0000-000000000000", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
}

func TestFlagHandler_CreateRejectsMissingKey(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewFlagHandler(svc)
	router, cookie, _ := withSession(t, mountFlags(h), models.RoleAdmin)

	body, _ := json.Marshal(map[string]any{"name": "no key", "environment": models.EnvironmentDev})
	req := httptest.NewRequest("POST", "/api/feature-flags", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestFlagHandler_WithoutSessionReturns401(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewFlagHandler(svc)
	router, _, _ := withSession(t, mountFlags(h), models.RoleAdmin)

	req := httptest.NewRequest("GET", "/api/feature-flags", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code)
}

func TestFlagHandler_Evaluate(t *testing.T) {
	s := newFakeStore()
	svc := flags.NewService(s, newFakeCache())
	h := handler.NewFlagHandler(svc)
	router, cookie, tc := withSession(t, mountFlags(h), models.RoleAdmin)

	flag, err := svc.Create(context.Background(), tc, flagInputFor("always-on", true))
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "environment": models.EnvironmentProd})
	req := httptest.NewRequest("POST", "/api/feature-flags/"+flag.ID.String()+"/evaluate", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)

	var out struct {
		Data flags.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Data.Enabled)
}
