package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusCompleted  = "COMPLETED"
	JobStatusFailed     = "FAILED"
)

const (
	JobTypeScanAttachment  = "SCAN_ATTACHMENT"
	JobTypeSendNotification = "SEND_NOTIFICATION"
	JobTypeIncidentSummary = "INCIDENT_SUMMARY"
)

// MaxJobRetries bounds how many times a failed job is re-queued before it is
// marked terminally FAILED.
const MaxJobRetries = 3

// Job is a persistent request for background work, subject to retry and a
// terminal status. Enqueued in the same transaction as the mutation that
// triggered it, so a rollback never leaks a job.
type Job struct {
	ID          uuid.UUID       `db:"id"           json:"id"`
	TenantID    uuid.UUID       `db:"tenant_id"    json:"tenant_id"`
	Type        string          `db:"type"         json:"type"`
	Payload     json.RawMessage `db:"payload"      json:"payload,omitempty"`
	Status      string          `db:"status"       json:"status"`
	Result      json.RawMessage `db:"result"       json:"result,omitempty"`
	Error       *string         `db:"error"        json:"error,omitempty"`
	Retries     int             `db:"retries"      json:"retries"`
	CreatedAt   time.Time       `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"   json:"updated_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// ScanAttachmentPayload is the payload shape for JobTypeScanAttachment.
type ScanAttachmentPayload struct {
	AttachmentID uuid.UUID `json:"attachment_id"`
}

// SendNotificationPayload is the payload shape for JobTypeSendNotification.
type SendNotificationPayload struct {
	UserID  uuid.UUID `json:"user_id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// IncidentSummaryPayload is the payload shape for JobTypeIncidentSummary.
type IncidentSummaryPayload struct {
	IncidentID   uuid.UUID   `json:"incident_id"`
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
}
