package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/auth"
	"github.com/kiranshivaraju/loghunter/internal/config"
	"github.com/kiranshivaraju/loghunter/internal/incidents/transitions"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
	"github.com/stretchr/testify/require"
)

// fakeStore embeds store.Store so each test file only implements the
// methods its handler actually calls.
type fakeStore struct {
	store.Store
	mu sync.Mutex

	pingErr error

	flags       map[uuid.UUID]*models.FeatureFlag
	rules       map[uuid.UUID][]*models.Rule
	auditLogs   []*models.AuditLog
	savedViews  map[uuid.UUID]*models.SavedView
	incidents   map[uuid.UUID]*models.Incident
	timelines   map[uuid.UUID][]*models.TimelineEvent
	attachments map[uuid.UUID][]*models.Attachment
	createErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		flags:       make(map[uuid.UUID]*models.FeatureFlag),
		rules:       make(map[uuid.UUID][]*models.Rule),
		savedViews:  make(map[uuid.UUID]*models.SavedView),
		incidents:   make(map[uuid.UUID]*models.Incident),
		timelines:   make(map[uuid.UUID][]*models.TimelineEvent),
		attachments: make(map[uuid.UUID][]*models.Attachment),
	}
}

func (f *fakeStore) CreateIncident(_ context.Context, tc tenancy.Context, in store.IncidentInput) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc := &models.Incident{
		ID: uuid.New(), TenantID: tc.TenantID, Title: in.Title, Severity: in.Severity,
		Status: models.StatusOpen, Service: in.Service, Environment: in.Environment,
		Tags: in.Tags, CreatedByID: tc.UserID,
	}
	f.incidents[inc.ID] = inc
	return inc, nil
}

func (f *fakeStore) ListIncidents(_ context.Context, _ tenancy.Context, filter store.IncidentFilter) ([]*models.Incident, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Incident
	for _, inc := range f.incidents {
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		out = append(out, inc)
	}
	return out, false, nil
}

func (f *fakeStore) ChangeIncidentStatus(_ context.Context, _ tenancy.Context, id uuid.UUID, newStatus, _ string) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.incidents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !transitions.CanTransition(inc.Status, newStatus) {
		return nil, store.ErrInvalidTransition
	}
	inc.Status = newStatus
	return inc, nil
}

func (f *fakeStore) AssignIncident(_ context.Context, _ tenancy.Context, id, assigneeID uuid.UUID) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.incidents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	inc.AssigneeID = &assigneeID
	return inc, nil
}

func (f *fakeStore) AddTimelineEvent(_ context.Context, tc tenancy.Context, incidentID uuid.UUID, eventType, message string) (*models.TimelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := &models.TimelineEvent{ID: uuid.New(), IncidentID: incidentID, TenantID: tc.TenantID, Type: eventType, Message: message, CreatedByID: tc.UserID}
	f.timelines[incidentID] = append(f.timelines[incidentID], ev)
	return ev, nil
}

func (f *fakeStore) ListTimelineEvents(_ context.Context, _ tenancy.Context, incidentID uuid.UUID) ([]*models.TimelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timelines[incidentID], nil
}

func (f *fakeStore) BulkAssignIncidents(_ context.Context, _ tenancy.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if inc, ok := f.incidents[id]; ok {
			inc.AssigneeID = &assigneeID
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) BulkChangeStatus(_ context.Context, _ tenancy.Context, ids []uuid.UUID, newStatus string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		inc, ok := f.incidents[id]
		if !ok || !transitions.CanTransition(inc.Status, newStatus) {
			continue
		}
		inc.Status = newStatus
		n++
	}
	return n, nil
}

func (f *fakeStore) CreateAttachment(_ context.Context, tc tenancy.Context, in store.AttachmentInput) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	att := &models.Attachment{
		ID: uuid.New(), IncidentID: in.IncidentID, TenantID: tc.TenantID, FileName: in.FileName,
		MimeType: in.MimeType, SizeBytes: in.SizeBytes, StorageURL: in.StorageURL, ScanStatus: models.ScanStatusPending,
	}
	f.attachments[in.IncidentID] = append(f.attachments[in.IncidentID], att)
	return att, nil
}

func (f *fakeStore) ListAttachments(_ context.Context, _ tenancy.Context, incidentID uuid.UUID) ([]*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachments[incidentID], nil
}

func (f *fakeStore) DeleteAttachment(_ context.Context, _ tenancy.Context, incidentID, attachmentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.attachments[incidentID]
	for i, a := range list {
		if a.ID == attachmentID {
			f.attachments[incidentID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetIncident(_ context.Context, _ tenancy.Context, id uuid.UUID) (*models.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inc, ok := f.incidents[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return inc, nil
}

func (f *fakeStore) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeStore) CreateFlag(_ context.Context, tc tenancy.Context, in store.FlagInput) (*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	flag := &models.FeatureFlag{
		ID: uuid.New(), TenantID: tc.TenantID, Key: in.Key, Name: in.Name,
		Description: in.Description, Enabled: in.Enabled, Environment: in.Environment,
	}
	f.flags[flag.ID] = flag
	return flag, nil
}

func (f *fakeStore) GetFlag(_ context.Context, _ tenancy.Context, id uuid.UUID) (*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag, ok := f.flags[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return flag, nil
}

func (f *fakeStore) ListFlags(_ context.Context, _ tenancy.Context) ([]*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.FeatureFlag, 0, len(f.flags))
	for _, flag := range f.flags {
		out = append(out, flag)
	}
	return out, nil
}

func (f *fakeStore) UpdateFlag(_ context.Context, _ tenancy.Context, id uuid.UUID, in store.FlagUpdate) (*models.FeatureFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag, ok := f.flags[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if in.Name != nil {
		flag.Name = *in.Name
	}
	if in.Description != nil {
		flag.Description = *in.Description
	}
	if in.Enabled != nil {
		flag.Enabled = *in.Enabled
	}
	return flag, nil
}

func (f *fakeStore) DeleteFlag(_ context.Context, _ tenancy.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.flags[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.flags, id)
	return nil
}

func (f *fakeStore) ListRules(_ context.Context, _ tenancy.Context, flagID uuid.UUID) ([]*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rules[flagID], nil
}

func (f *fakeStore) AddRule(_ context.Context, _ tenancy.Context, flagID uuid.UUID, ruleType string, condition json.RawMessage, order int) (*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule := &models.Rule{ID: uuid.New(), FlagID: flagID, Type: ruleType, Condition: condition, Order: order}
	f.rules[flagID] = append(f.rules[flagID], rule)
	return rule, nil
}

func (f *fakeStore) DeleteRule(_ context.Context, _ tenancy.Context, flagID, ruleID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rules := f.rules[flagID]
	for i, r := range rules {
		if r.ID == ruleID {
			f.rules[flagID] = append(rules[:i], rules[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) ListAuditLogs(_ context.Context, _ tenancy.Context, filter store.AuditFilter) ([]*models.AuditLog, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditLog
	for _, l := range f.auditLogs {
		if filter.EntityID != nil && l.EntityID != *filter.EntityID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, false, nil
}

func (f *fakeStore) ListSavedViews(_ context.Context, _ tenancy.Context) ([]*models.SavedView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SavedView, 0, len(f.savedViews))
	for _, v := range f.savedViews {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeStore) CreateSavedView(_ context.Context, tc tenancy.Context, name string, filters models.SavedViewFilters) (*models.SavedView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	view := &models.SavedView{ID: uuid.New(), TenantID: tc.TenantID, UserID: tc.UserID, Name: name, Filters: filters}
	f.savedViews[view.ID] = view
	return view, nil
}

func (f *fakeStore) DeleteSavedView(_ context.Context, _ tenancy.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.savedViews[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.savedViews, id)
	return nil
}

// fakeCache implements cache.Cache with an in-memory map.
type fakeCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	pingErr error
}

func newFakeCache() *fakeCache { return &fakeCache{values: make(map[string][]byte)} }

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *fakeCache) Ping(_ context.Context) error { return c.pingErr }

func (c *fakeCache) SetJobStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}

func (c *fakeCache) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}

// testSessionManager returns an auth.Manager usable for issuing cookies in
// tests, mirroring the router/middleware test helpers.
func testSessionManager() *auth.Manager {
	return auth.NewManager(config.AuthConfig{
		SessionSecret: "this-is-a-32-byte-test-secret!!",
		CookieName:    "session",
		MaxAge:        time.Hour,
	}, true)
}

// withSession wraps handler under RequireSession and returns both the
// router and a cookie for the given role, so tests can exercise the real
// tenancy-extraction path instead of poking context directly.
func withSession(t *testing.T, mountFn func(r chi.Router), role string) (chi.Router, *http.Cookie, tenancy.Context) {
	t.Helper()
	sessions := testSessionManager()
	authMw := mw.NewAuth(sessions)

	tenantID := uuid.New()
	userID := uuid.New()

	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(rec, auth.Session{
		UserID: userID, TenantID: tenantID, Role: role,
	}))
	cookie := rec.Result().Cookies()[0]

	r := chi.NewRouter()
	r.Use(authMw.RequireSession)
	mountFn(r)

	tc, err := tenancy.New(tenantID, userID, role)
	require.NoError(t, err)
	return r, cookie, tc
}
