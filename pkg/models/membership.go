package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin    = "ADMIN"
	RoleEngineer = "ENGINEER"
	RoleViewer   = "VIEWER"
)

// ValidRoles lists every recognized membership role, in privilege order (lowest first).
var ValidRoles = []string{RoleViewer, RoleEngineer, RoleAdmin}

func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Membership binds a user to a tenant with a role. Deleting it revokes access.
type Membership struct {
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	Role      string    `db:"role"       json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
