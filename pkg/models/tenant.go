package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolated organizational namespace. Every scoped row belongs to exactly one.
type Tenant struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Slug      string    `db:"slug"       json:"slug"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
