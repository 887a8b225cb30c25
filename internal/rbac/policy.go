// Package rbac gates HTTP handlers by the role carried on a membership.
// The store package enforces the same rule independently at the data-access
// layer (see tenancy.Context); this package is the HTTP-facing mirror so
// requests are rejected before they ever reach a repository call.
package rbac

import "github.com/kiranshivaraju/loghunter/pkg/models"

// Permission is a capability a role either has or doesn't.
type Permission string

const (
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionViewAudit Permission = "view_audit"
)

var grants = map[string]map[Permission]bool{
	models.RoleViewer: {
		PermissionRead: true,
	},
	models.RoleEngineer: {
		PermissionRead:  true,
		PermissionWrite: true,
	},
	models.RoleAdmin: {
		PermissionRead:      true,
		PermissionWrite:     true,
		PermissionViewAudit: true,
	},
}

// Allowed reports whether role carries permission.
func Allowed(role string, permission Permission) bool {
	return grants[role][permission]
}
