package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionCreate       = "CREATE"
	AuditActionUpdate       = "UPDATE"
	AuditActionDelete       = "DELETE"
	AuditActionStatusChange = "STATUS_CHANGE"
	AuditActionAssign       = "ASSIGN"
	AuditActionBulkAssign   = "BULK_ASSIGN"
	AuditActionBulkStatus   = "BULK_STATUS_CHANGE"
	AuditActionTimelineAdd  = "TIMELINE_ADD"
)

// AuditLog is an append-only ledger entry for a single mutation.
type AuditLog struct {
	ID         uuid.UUID       `db:"id"          json:"id"`
	TenantID   uuid.UUID       `db:"tenant_id"   json:"tenant_id"`
	ActorID    uuid.UUID       `db:"actor_id"    json:"actor_id"`
	Action     string          `db:"action"      json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID       `db:"entity_id"   json:"entity_id"`
	BeforeData json.RawMessage `db:"before_data" json:"before_data,omitempty"`
	AfterData  json.RawMessage `db:"after_data"  json:"after_data,omitempty"`
	Metadata   json.RawMessage `db:"metadata"    json:"metadata,omitempty"`
	CreatedAt  time.Time       `db:"created_at"  json:"created_at"`
}
