package incidents

import (
	"context"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service validates requests and forwards them to the store. The store is
// the transactional authority for every multi-row write (create, status
// change, assign, bulk ops, attachment upload); Service's job is to reject
// malformed input before it ever reaches a repository call, matching the
// request -> validation -> repository data flow used throughout the API.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Create(ctx context.Context, tc tenancy.Context, in store.IncidentInput) (*models.Incident, error) {
	if err := ValidateCreateInput(in.Title, in.Severity, in.Service, in.Environment); err != nil {
		return nil, err
	}
	return s.store.CreateIncident(ctx, tc, in)
}

func (s *Service) Get(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.Incident, error) {
	return s.store.GetIncident(ctx, tc, id)
}

func (s *Service) List(ctx context.Context, tc tenancy.Context, filter store.IncidentFilter) ([]*models.Incident, bool, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.store.ListIncidents(ctx, tc, filter)
}

func (s *Service) ChangeStatus(ctx context.Context, tc tenancy.Context, id uuid.UUID, newStatus, message string) (*models.Incident, error) {
	return s.store.ChangeIncidentStatus(ctx, tc, id, newStatus, message)
}

func (s *Service) Assign(ctx context.Context, tc tenancy.Context, id, assigneeID uuid.UUID) (*models.Incident, error) {
	return s.store.AssignIncident(ctx, tc, id, assigneeID)
}

func (s *Service) AddTimelineEvent(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID, eventType, message string) (*models.TimelineEvent, error) {
	if err := ValidateTimelineEntry(eventType, message); err != nil {
		return nil, err
	}
	return s.store.AddTimelineEvent(ctx, tc, incidentID, eventType, message)
}

func (s *Service) ListTimeline(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.TimelineEvent, error) {
	return s.store.ListTimelineEvents(ctx, tc, incidentID)
}

// BulkAssign assigns every incident in ids to assigneeID in one transaction.
func (s *Service) BulkAssign(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error) {
	return s.store.BulkAssignIncidents(ctx, tc, ids, assigneeID)
}

// BulkChangeStatus moves every incident in ids to newStatus in one
// transaction. If any incident lacks a legal path to newStatus, the whole
// operation fails atomically and no row is touched.
func (s *Service) BulkChangeStatus(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, newStatus string) (int, error) {
	return s.store.BulkChangeStatus(ctx, tc, ids, newStatus)
}

func (s *Service) UploadAttachment(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID, fileName, mimeType string, sizeBytes int64, storageURL string) (*models.Attachment, error) {
	if err := ValidateAttachment(mimeType, sizeBytes); err != nil {
		return nil, err
	}
	return s.store.CreateAttachment(ctx, tc, store.AttachmentInput{
		IncidentID: incidentID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  sizeBytes,
		StorageURL: storageURL,
	})
}

func (s *Service) ListAttachments(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.Attachment, error) {
	return s.store.ListAttachments(ctx, tc, incidentID)
}

func (s *Service) DeleteAttachment(ctx context.Context, tc tenancy.Context, incidentID, attachmentID uuid.UUID) error {
	return s.store.DeleteAttachment(ctx, tc, incidentID, attachmentID)
}
