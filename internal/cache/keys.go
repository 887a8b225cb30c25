package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// JobStatusKey caches the latest known status of a background job so
// clients can poll it without hitting Postgres on every request.
func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

// FlagSnapshotKey caches the flag list (without rules) for a
// tenant/environment pair, invalidated whenever a flag or rule in that scope
// changes. An empty environment keys the tenant's all-environments list.
func FlagSnapshotKey(tenantID uuid.UUID, environment string) string {
	return fmt.Sprintf("flags:%s:%s", tenantID, environment)
}
