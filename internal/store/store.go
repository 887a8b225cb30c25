package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrInvalidTransition   = errors.New("invalid incident status transition")
	ErrAssigneeNotInTenant = errors.New("assignee is not a member of this tenant")
	ErrForbidden           = errors.New("role does not permit this operation")
)

// Store is the data access interface. Every method that touches a
// tenant-scoped table takes a tenancy.Context as its second argument
// (after ctx.Context); a zero-value Context is rejected by
// tenancy.Context.Validate before any query runs. Methods with no
// tenancy.Context parameter operate on tenant-independent tables
// (tenants, users) or cross-tenant worker plumbing (jobs), and are
// called out as such below.
type Store interface {
	Ping(ctx context.Context) error

	// --- Tenants & Identity (not tenant-scoped) ---
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error)
	ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
	IsActiveMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)

	// --- Incidents ---
	CreateIncident(ctx context.Context, tc tenancy.Context, in IncidentInput) (*models.Incident, error)
	GetIncident(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, tc tenancy.Context, filter IncidentFilter) ([]*models.Incident, bool, error)
	ChangeIncidentStatus(ctx context.Context, tc tenancy.Context, id uuid.UUID, newStatus, message string) (*models.Incident, error)
	AssignIncident(ctx context.Context, tc tenancy.Context, id, assigneeID uuid.UUID) (*models.Incident, error)
	AddTimelineEvent(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID, eventType, message string) (*models.TimelineEvent, error)
	ListTimelineEvents(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.TimelineEvent, error)
	BulkAssignIncidents(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error)
	BulkChangeStatus(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, newStatus string) (int, error)

	// --- Attachments (UpdateAttachmentScanStatus and GetAttachmentByID are
	// worker plumbing and not tenant-scoped) ---
	CreateAttachment(ctx context.Context, tc tenancy.Context, in AttachmentInput) (*models.Attachment, error)
	ListAttachments(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.Attachment, error)
	DeleteAttachment(ctx context.Context, tc tenancy.Context, incidentID, attachmentID uuid.UUID) error
	UpdateAttachmentScanStatus(ctx context.Context, id uuid.UUID, status string) error
	GetAttachmentByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)

	// --- Saved views ---
	CreateSavedView(ctx context.Context, tc tenancy.Context, name string, filters models.SavedViewFilters) (*models.SavedView, error)
	ListSavedViews(ctx context.Context, tc tenancy.Context) ([]*models.SavedView, error)
	DeleteSavedView(ctx context.Context, tc tenancy.Context, id uuid.UUID) error

	// --- Feature flags & rules ---
	CreateFlag(ctx context.Context, tc tenancy.Context, in FlagInput) (*models.FeatureFlag, error)
	GetFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.FeatureFlag, error)
	ListFlags(ctx context.Context, tc tenancy.Context) ([]*models.FeatureFlag, error)
	UpdateFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID, in FlagUpdate) (*models.FeatureFlag, error)
	DeleteFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID) error
	ListRules(ctx context.Context, tc tenancy.Context, flagID uuid.UUID) ([]*models.Rule, error)
	AddRule(ctx context.Context, tc tenancy.Context, flagID uuid.UUID, ruleType string, condition json.RawMessage, order int) (*models.Rule, error)
	DeleteRule(ctx context.Context, tc tenancy.Context, flagID, ruleID uuid.UUID) error

	// --- Audit log ---
	ListAuditLogs(ctx context.Context, tc tenancy.Context, filter AuditFilter) ([]*models.AuditLog, bool, error)

	// --- Jobs (not tenant-scoped for leasing; CreateJob is) ---
	CreateJob(ctx context.Context, tc tenancy.Context, jobType string, payload json.RawMessage) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	LeaseJobs(ctx context.Context, batchSize int) ([]*models.Job, error)
	CompleteJob(ctx context.Context, id uuid.UUID, result json.RawMessage) error
	FailJob(ctx context.Context, id uuid.UUID, errMsg string) error
}

// IncidentInput is the payload accepted by CreateIncident.
type IncidentInput struct {
	Title       string
	Severity    string
	Service     string
	Environment string
	Tags        []string
}

// IncidentFilter controls ListIncidents. Cursor is the opaque id of the
// last item seen; Limit is pre-clamped to (0, 100] by the caller.
type IncidentFilter struct {
	Status      string
	Severity    string
	Environment string
	Service     string
	Tag         string
	AssigneeID  *uuid.UUID
	Search      string
	Cursor      *uuid.UUID
	Limit       int
}

// AttachmentInput is the payload accepted by CreateAttachment.
type AttachmentInput struct {
	IncidentID uuid.UUID
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageURL string
}

// FlagInput is the payload accepted by CreateFlag.
type FlagInput struct {
	Key         string
	Name        string
	Description string
	Enabled     bool
	Environment string
}

// FlagUpdate carries only the fields to change; nil means "leave as is".
type FlagUpdate struct {
	Name        *string
	Description *string
	Enabled     *bool
}

// AuditFilter controls ListAuditLogs.
type AuditFilter struct {
	EntityType string
	EntityID   *uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	StartDate  *time.Time
	EndDate    *time.Time
	Cursor     *uuid.UUID
	Limit      int
}
