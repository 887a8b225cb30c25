package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kiranshivaraju/loghunter/internal/notify"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// scanAttachmentHandler simulates a malware scan: a real deployment would
// call out to a scanning service here. Any file name containing "infected"
// is flagged; everything else is marked clean.
func scanAttachmentHandler(s store.Store) Handler {
	return func(ctx context.Context, job *models.Job) (json.RawMessage, error) {
		var payload models.ScanAttachmentPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal scan attachment payload: %w", err)
		}

		att, err := s.GetAttachmentByID(ctx, payload.AttachmentID)
		if err != nil {
			return nil, fmt.Errorf("load attachment: %w", err)
		}

		status := models.ScanStatusClean
		if strings.Contains(strings.ToLower(att.FileName), "infected") {
			status = models.ScanStatusInfected
		}

		if err := s.UpdateAttachmentScanStatus(ctx, att.ID, status); err != nil {
			return nil, fmt.Errorf("update scan status: %w", err)
		}

		return json.Marshal(map[string]string{"scan_status": status})
	}
}

func sendNotificationHandler(notifier notify.Provider) Handler {
	return func(ctx context.Context, job *models.Job) (json.RawMessage, error) {
		var payload models.SendNotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal send notification payload: %w", err)
		}
		if err := notifier.Send(ctx, payload); err != nil {
			return nil, fmt.Errorf("deliver notification: %w", err)
		}
		return json.Marshal(map[string]string{"delivered_via": notifier.Name()})
	}
}

// incidentSummaryHandler renders a short timeline digest and notifies every
// recipient. It reads across tenancy by impersonating the incident's own
// tenant — the job was enqueued on behalf of that tenant, so this is not a
// cross-tenant read.
func incidentSummaryHandler(s store.Store, notifier notify.Provider) Handler {
	return func(ctx context.Context, job *models.Job) (json.RawMessage, error) {
		var payload models.IncidentSummaryPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal incident summary payload: %w", err)
		}

		tc := tenancy.Context{TenantID: job.TenantID, UserID: job.TenantID, Role: models.RoleAdmin}
		incident, err := s.GetIncident(ctx, tc, payload.IncidentID)
		if err != nil {
			return nil, fmt.Errorf("load incident: %w", err)
		}

		events, err := s.ListTimelineEvents(ctx, tc, payload.IncidentID)
		if err != nil {
			return nil, fmt.Errorf("load timeline: %w", err)
		}

		summary := fmt.Sprintf("[%s] %s (%s) — %d timeline events", incident.Severity, incident.Title, incident.Status, len(events))

		for _, recipientID := range payload.RecipientIDs {
			if err := notifier.Send(ctx, models.SendNotificationPayload{
				UserID:  recipientID,
				Kind:    "incident_summary",
				Message: summary,
			}); err != nil {
				return nil, fmt.Errorf("notify recipient %s: %w", recipientID, err)
			}
		}

		return json.Marshal(map[string]any{"summary": summary, "recipients": len(payload.RecipientIDs)})
	}
}
