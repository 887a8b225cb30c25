package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/api/handler"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountTimeline(h *handler.TimelineHandler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Post("/api/incidents/{id}/timeline", h.Add)
	}
}

func TestTimelineHandler_Add(t *testing.T) {
	s := newFakeStore()
	svc := incidents.NewService(s)
	h := handler.NewTimelineHandler(svc)
	router, cookie, tc := withSession(t, mountTimeline(h), models.RoleEngineer)

	incidentID := uuid.New()
	s.incidents[incidentID] = &models.Incident{ID: incidentID, TenantID: tc.TenantID, Status: models.StatusOpen}

	body, _ := json.Marshal(map[string]string{"type": models.EventTypeNote, "message": "checked dashboards, error rate climbing"})
	req := httptest.NewRequest("POST", "/api/incidents/"+incidentID.String()+"/timeline", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 201, w.Code)
	require.Len(t, s.timelines[incidentID], 1)
	assert.Equal(t, models.EventTypeNote, s.timelines[incidentID][0].Type)
}

func TestTimelineHandler_RejectsStatusChangeType(t *testing.T) {
	s := newFakeStore()
	svc := incidents.NewService(s)
	h := handler.NewTimelineHandler(svc)
	router, cookie, tc := withSession(t, mountTimeline(h), models.RoleEngineer)

	incidentID := uuid.New()
	s.incidents[incidentID] = &models.Incident{ID: incidentID, TenantID: tc.TenantID, Status: models.StatusOpen}

	body, _ := json.Marshal(map[string]string{"type": models.EventTypeStatusChange, "message": "manual status note"})
	req := httptest.NewRequest("POST", "/api/incidents/"+incidentID.String()+"/timeline", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestTimelineHandler_RejectsEmptyMessage(t *testing.T) {
	s := newFakeStore()
	svc := incidents.NewService(s)
	h := handler.NewTimelineHandler(svc)
	router, cookie, tc := withSession(t, mountTimeline(h), models.RoleEngineer)

	incidentID := uuid.New()
	s.incidents[incidentID] = &models.Incident{ID: incidentID, TenantID: tc.TenantID, Status: models.StatusOpen}

	body, _ := json.Marshal(map[string]string{"type": models.EventTypeNote, "message": ""})
	req := httptest.NewRequest("POST", "/api/incidents/"+incidentID.String()+"/timeline", bytes.NewReader(body))
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}
