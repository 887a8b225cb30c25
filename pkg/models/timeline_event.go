package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeNote         = "NOTE"
	EventTypeAction       = "ACTION"
	EventTypeStatusChange = "STATUS_CHANGE"
)

// TimelineEvent is an append-only annotation attached to an incident. Never mutated or deleted.
type TimelineEvent struct {
	ID          uuid.UUID       `db:"id"            json:"id"`
	IncidentID  uuid.UUID       `db:"incident_id"   json:"incident_id"`
	TenantID    uuid.UUID       `db:"tenant_id"      json:"tenant_id"`
	Type        string          `db:"type"          json:"type"`
	Message     string          `db:"message"       json:"message,omitempty"`
	Data        json.RawMessage `db:"data"          json:"data,omitempty"`
	CreatedByID uuid.UUID       `db:"created_by_id" json:"created_by_id"`
	CreatedAt   time.Time       `db:"created_at"    json:"created_at"`
}

// StatusChangeData is the structured payload stored on STATUS_CHANGE events.
type StatusChangeData struct {
	From *string `json:"from"`
	To   string  `json:"to"`
}
