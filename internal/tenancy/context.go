// Package tenancy carries the per-request tenant scope through the repository
// layer. No query reaches the database without one.
package tenancy

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// ErrTenantContextMissing is returned by any repository method called with
// a zero-value Context.
var ErrTenantContextMissing = errors.New("tenancy: context missing")

// Context is the required first argument (after ctx.Context) of every
// tenant-scoped repository method. It carries enough to both filter queries
// and gate roles without a second round trip.
type Context struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}

// New builds a Context, validating that none of its fields are zero values.
func New(tenantID, userID uuid.UUID, role string) (Context, error) {
	tc := Context{TenantID: tenantID, UserID: userID, Role: role}
	if err := tc.Validate(); err != nil {
		return Context{}, err
	}
	return tc, nil
}

// Validate reports ErrTenantContextMissing if the context is unusable.
func (tc Context) Validate() error {
	if tc.TenantID == uuid.Nil || tc.UserID == uuid.Nil || tc.Role == "" {
		return ErrTenantContextMissing
	}
	return nil
}

// CanWrite reports whether the role may mutate tenant-scoped entities.
func (tc Context) CanWrite() bool {
	return tc.Role == models.RoleEngineer || tc.Role == models.RoleAdmin
}

// CanViewAudit reports whether the role may read the audit log.
func (tc Context) CanViewAudit() bool {
	return tc.Role == models.RoleAdmin
}
