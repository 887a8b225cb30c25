package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusOpen      = "OPEN"
	StatusMitigated = "MITIGATED"
	StatusResolved  = "RESOLVED"
)

const (
	SeveritySev1 = "SEV1"
	SeveritySev2 = "SEV2"
	SeveritySev3 = "SEV3"
	SeveritySev4 = "SEV4"
)

const (
	EnvironmentDev     = "DEV"
	EnvironmentStaging = "STAGING"
	EnvironmentProd    = "PROD"
)

var ValidSeverities = map[string]bool{
	SeveritySev1: true, SeveritySev2: true, SeveritySev3: true, SeveritySev4: true,
}

var ValidEnvironments = map[string]bool{
	EnvironmentDev: true, EnvironmentStaging: true, EnvironmentProd: true,
}

// Incident is a tracked operational event with severity, status, and an append-only timeline.
type Incident struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	TenantID    uuid.UUID  `db:"tenant_id"    json:"tenant_id"`
	Title       string     `db:"title"        json:"title"`
	Severity    string     `db:"severity"     json:"severity"`
	Status      string     `db:"status"       json:"status"`
	Service     string     `db:"service"      json:"service"`
	Environment string     `db:"environment"  json:"environment"`
	Tags        []string   `db:"tags"         json:"tags"`
	CreatedByID uuid.UUID  `db:"created_by_id" json:"created_by_id"`
	AssigneeID  *uuid.UUID `db:"assignee_id"  json:"assignee_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}
