// Package realtime serves a per-incident Server-Sent-Events change stream
// by polling the incident row and its timeline every poll interval, rather
// than maintaining a pub/sub fanout. A heartbeat comment frame accompanies
// every poll so intermediate proxies don't time out an idle connection.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// connectedEvent is sent once, immediately after the connection opens.
type connectedEvent struct {
	IncidentID uuid.UUID `json:"incidentId"`
}

// incidentUpdatedEvent is sent whenever the incident's updated_at advances
// beyond the last value observed on this connection.
type incidentUpdatedEvent struct {
	Status     string     `json:"status"`
	Severity   string     `json:"severity"`
	AssigneeID *uuid.UUID `json:"assignee"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// timelineUpdatedEvent carries exactly the events added since the last
// observed count, newest first.
type timelineUpdatedEvent struct {
	NewEvents []*models.TimelineEvent `json:"newEvents"`
}

// deletedEvent is sent if the incident disappears; the stream closes
// immediately after.
type deletedEvent struct{}

// Stream serves a single tenant-scoped, per-incident SSE connection.
type Stream struct {
	store        store.Store
	pollInterval time.Duration
}

func NewStream(s store.Store, pollInterval time.Duration) *Stream {
	return &Stream{store: s, pollInterval: pollInterval}
}

// Serve writes connected/incident_updated/timeline_updated/deleted frames to
// w until the incident disappears, the client disconnects, or the request
// context is cancelled. The caller has already confirmed the incident
// exists and belongs to tc's tenant; Serve re-resolves it on open to build
// the baseline last_updated_at/last_event_count watermarks.
func (s *Stream) Serve(w http.ResponseWriter, r *http.Request, tc tenancy.Context, incidentID uuid.UUID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	inc, err := s.store.GetIncident(ctx, tc, incidentID)
	if err != nil {
		http.Error(w, "incident not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "connected", connectedEvent{IncidentID: incidentID})
	flusher.Flush()

	lastUpdatedAt := inc.UpdatedAt
	lastEventCount := 0
	if events, err := s.store.ListTimelineEvents(ctx, tc, incidentID); err == nil {
		lastEventCount = len(events)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.poll(ctx, w, flusher, tc, incidentID, &lastUpdatedAt, &lastEventCount) {
				return
			}
		}
	}
}

// poll runs one observation cycle, emitting incident_updated and/or
// timeline_updated as needed, then a heartbeat. It returns false when the
// incident has disappeared and the stream should close.
func (s *Stream) poll(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, tc tenancy.Context, incidentID uuid.UUID, lastUpdatedAt *time.Time, lastEventCount *int) bool {
	inc, err := s.store.GetIncident(ctx, tc, incidentID)
	if errors.Is(err, store.ErrNotFound) {
		writeEvent(w, "deleted", deletedEvent{})
		flusher.Flush()
		return false
	}
	if err != nil {
		slog.Error("realtime poll failed", "incident_id", incidentID, "error", err)
		fmt.Fprint(w, ": heartbeat\n\n")
		flusher.Flush()
		return true
	}

	if inc.UpdatedAt.After(*lastUpdatedAt) {
		writeEvent(w, "incident_updated", incidentUpdatedEvent{
			Status: inc.Status, Severity: inc.Severity, AssigneeID: inc.AssigneeID, UpdatedAt: inc.UpdatedAt,
		})
		*lastUpdatedAt = inc.UpdatedAt
	}

	if events, err := s.store.ListTimelineEvents(ctx, tc, incidentID); err == nil && len(events) > *lastEventCount {
		fresh := events[*lastEventCount:]
		newEvents := make([]*models.TimelineEvent, len(fresh))
		for i, e := range fresh {
			newEvents[len(fresh)-1-i] = e
		}
		writeEvent(w, "timeline_updated", timelineUpdatedEvent{NewEvents: newEvents})
		*lastEventCount = len(events)
	}

	fmt.Fprint(w, ": heartbeat\n\n")
	flusher.Flush()
	return true
}

func writeEvent(w http.ResponseWriter, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}
