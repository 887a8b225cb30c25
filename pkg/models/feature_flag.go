package models

import (
	"time"

	"github.com/google/uuid"
)

// FeatureFlag is a named boolean switch scoped to a tenant and environment.
// Unique per (tenant_id, key, environment).
type FeatureFlag struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	TenantID    uuid.UUID `db:"tenant_id"   json:"tenant_id"`
	Key         string    `db:"key"         json:"key"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Enabled     bool      `db:"enabled"     json:"enabled"`
	Environment string    `db:"environment" json:"environment"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}
