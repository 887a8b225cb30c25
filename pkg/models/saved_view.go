package models

import (
	"time"

	"github.com/google/uuid"
)

// SavedViewFilters is the structured filter set a view remembers.
type SavedViewFilters struct {
	Status      string `json:"status,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Environment string `json:"environment,omitempty"`
	Search      string `json:"search,omitempty"`
}

// SavedView is a per-user named incident filter. Only the owner may delete it.
type SavedView struct {
	ID        uuid.UUID        `db:"id"         json:"id"`
	TenantID  uuid.UUID        `db:"tenant_id"  json:"tenant_id"`
	UserID    uuid.UUID        `db:"user_id"    json:"user_id"`
	Name      string           `db:"name"       json:"name"`
	Filters   SavedViewFilters `db:"filters"    json:"filters"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}
