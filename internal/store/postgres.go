package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/loghunter/internal/incidents/transitions"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Tenants & Identity ---

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, slug, name, created_at, updated_at FROM tenants WHERE slug = $1`, slug,
	).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, slug, name, created_at, updated_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, tenant_id, role, created_at, updated_at FROM memberships WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID,
	).Scan(&m.UserID, &m.TenantID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMembershipsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, tenant_id, role, created_at, updated_at FROM memberships WHERE user_id = $1 ORDER BY created_at ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships for user: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.UserID, &m.TenantID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) IsActiveMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM memberships WHERE tenant_id = $1 AND user_id = $2)`,
		tenantID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// --- Incidents ---

func (s *PostgresStore) CreateIncident(ctx context.Context, tc tenancy.Context, in IncidentInput) (*models.Incident, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create incident: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	incident := &models.Incident{
		ID:          uuid.New(),
		TenantID:    tc.TenantID,
		Title:       in.Title,
		Severity:    in.Severity,
		Status:      models.StatusOpen,
		Service:     in.Service,
		Environment: in.Environment,
		Tags:        in.Tags,
		CreatedByID: tc.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO incidents (id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, $10, $11)`,
		incident.ID, incident.TenantID, incident.Title, incident.Severity, incident.Status,
		incident.Service, incident.Environment, incident.Tags, incident.CreatedByID,
		incident.CreatedAt, incident.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}

	statusData, _ := json.Marshal(models.StatusChangeData{From: nil, To: models.StatusOpen})
	if err := insertTimelineEvent(ctx, tx, uuid.New(), incident.ID, tc.TenantID, models.EventTypeStatusChange, "", statusData, tc.UserID, now); err != nil {
		return nil, err
	}

	afterData, _ := json.Marshal(incident)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionCreate, "incident", incident.ID, nil, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create incident: %w", err)
	}
	return incident, nil
}

func (s *PostgresStore) GetIncident(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.Incident, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	var inc models.Incident
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
		 FROM incidents WHERE id = $1 AND tenant_id = $2`, id, tc.TenantID,
	).Scan(&inc.ID, &inc.TenantID, &inc.Title, &inc.Severity, &inc.Status, &inc.Service,
		&inc.Environment, &inc.Tags, &inc.CreatedByID, &inc.AssigneeID, &inc.CreatedAt, &inc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

func (s *PostgresStore) ListIncidents(ctx context.Context, tc tenancy.Context, filter IncidentFilter) ([]*models.Incident, bool, error) {
	if err := tc.Validate(); err != nil {
		return nil, false, err
	}

	conditions := []string{"tenant_id = $1"}
	args := []any{tc.TenantID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", argIdx))
		args = append(args, filter.Severity)
		argIdx++
	}
	if filter.Environment != "" {
		conditions = append(conditions, fmt.Sprintf("environment = $%d", argIdx))
		args = append(args, filter.Environment)
		argIdx++
	}
	if filter.Service != "" {
		conditions = append(conditions, fmt.Sprintf("service ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Service+"%")
		argIdx++
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argIdx))
		args = append(args, filter.Tag)
		argIdx++
	}
	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", argIdx))
		args = append(args, *filter.AssigneeID)
		argIdx++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR service ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.Cursor != nil {
		conditions = append(conditions,
			fmt.Sprintf("(created_at, id) < (SELECT created_at, id FROM incidents WHERE id = $%d)", argIdx))
		args = append(args, *filter.Cursor)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf(
		`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
		 FROM incidents WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d`,
		where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []*models.Incident
	for rows.Next() {
		var inc models.Incident
		if err := rows.Scan(&inc.ID, &inc.TenantID, &inc.Title, &inc.Severity, &inc.Status, &inc.Service,
			&inc.Environment, &inc.Tags, &inc.CreatedByID, &inc.AssigneeID, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, &inc)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

func (s *PostgresStore) ChangeIncidentStatus(ctx context.Context, tc tenancy.Context, id uuid.UUID, newStatus, message string) (*models.Incident, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin change status: %w", err)
	}
	defer tx.Rollback(ctx)

	var before models.Incident
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
		 FROM incidents WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
	).Scan(&before.ID, &before.TenantID, &before.Title, &before.Severity, &before.Status, &before.Service,
		&before.Environment, &before.Tags, &before.CreatedByID, &before.AssigneeID, &before.CreatedAt, &before.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock incident: %w", err)
	}

	if !transitions.CanTransition(before.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	after := before
	after.Status = newStatus
	after.UpdatedAt = now

	if _, err := tx.Exec(ctx,
		`UPDATE incidents SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		newStatus, now, id, tc.TenantID); err != nil {
		return nil, fmt.Errorf("update incident status: %w", err)
	}

	fromStatus := before.Status
	statusData, _ := json.Marshal(models.StatusChangeData{From: &fromStatus, To: newStatus})
	if err := insertTimelineEvent(ctx, tx, uuid.New(), id, tc.TenantID, models.EventTypeStatusChange, "", statusData, tc.UserID, now); err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) != "" {
		if err := insertTimelineEvent(ctx, tx, uuid.New(), id, tc.TenantID, models.EventTypeNote, message, nil, tc.UserID, now); err != nil {
			return nil, err
		}
	}

	beforeData, _ := json.Marshal(before)
	afterData, _ := json.Marshal(after)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionStatusChange, "incident", id, beforeData, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit change status: %w", err)
	}
	return &after, nil
}

func (s *PostgresStore) AssignIncident(ctx context.Context, tc tenancy.Context, id, assigneeID uuid.UUID) (*models.Incident, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	var isMember bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM memberships WHERE tenant_id = $1 AND user_id = $2)`,
		tc.TenantID, assigneeID).Scan(&isMember); err != nil {
		return nil, fmt.Errorf("check assignee membership: %w", err)
	}
	if !isMember {
		return nil, ErrAssigneeNotInTenant
	}

	var before models.Incident
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
		 FROM incidents WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
	).Scan(&before.ID, &before.TenantID, &before.Title, &before.Severity, &before.Status, &before.Service,
		&before.Environment, &before.Tags, &before.CreatedByID, &before.AssigneeID, &before.CreatedAt, &before.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock incident: %w", err)
	}

	now := time.Now().UTC()
	after := before
	after.AssigneeID = &assigneeID
	after.UpdatedAt = now

	if _, err := tx.Exec(ctx,
		`UPDATE incidents SET assignee_id = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		assigneeID, now, id, tc.TenantID); err != nil {
		return nil, fmt.Errorf("update incident assignee: %w", err)
	}

	data, _ := json.Marshal(map[string]any{"assignee_id": assigneeID})
	if err := insertTimelineEvent(ctx, tx, uuid.New(), id, tc.TenantID, models.EventTypeAction, "assigned", data, tc.UserID, now); err != nil {
		return nil, err
	}

	beforeData, _ := json.Marshal(before)
	afterData, _ := json.Marshal(after)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionAssign, "incident", id, beforeData, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	return &after, nil
}

func (s *PostgresStore) AddTimelineEvent(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID, eventType, message string) (*models.TimelineEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add timeline event: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1 AND tenant_id = $2)`,
		incidentID, tc.TenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check incident exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	event := &models.TimelineEvent{
		ID:          uuid.New(),
		IncidentID:  incidentID,
		TenantID:    tc.TenantID,
		Type:        eventType,
		Message:     message,
		CreatedByID: tc.UserID,
		CreatedAt:   now,
	}
	if err := insertTimelineEvent(ctx, tx, event.ID, incidentID, tc.TenantID, eventType, message, nil, tc.UserID, now); err != nil {
		return nil, err
	}

	afterData, _ := json.Marshal(event)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionTimelineAdd, "timeline_event", event.ID, nil, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add timeline event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListTimelineEvents(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.TimelineEvent, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, incident_id, tenant_id, type, message, data, created_by_id, created_at
		 FROM timeline_events WHERE incident_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`,
		incidentID, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	var out []*models.TimelineEvent
	for rows.Next() {
		var e models.TimelineEvent
		if err := rows.Scan(&e.ID, &e.IncidentID, &e.TenantID, &e.Type, &e.Message, &e.Data, &e.CreatedByID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) BulkAssignIncidents(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error) {
	if err := tc.Validate(); err != nil {
		return 0, err
	}
	if !tc.CanWrite() {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk assign: %w", err)
	}
	defer tx.Rollback(ctx)

	var isMember bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM memberships WHERE tenant_id = $1 AND user_id = $2)`,
		tc.TenantID, assigneeID).Scan(&isMember); err != nil {
		return 0, fmt.Errorf("check assignee membership: %w", err)
	}
	if !isMember {
		return 0, ErrAssigneeNotInTenant
	}

	now := time.Now().UTC()
	count := 0
	for _, id := range ids {
		var before models.Incident
		err := tx.QueryRow(ctx,
			`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
			 FROM incidents WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
		).Scan(&before.ID, &before.TenantID, &before.Title, &before.Severity, &before.Status, &before.Service,
			&before.Environment, &before.Tags, &before.CreatedByID, &before.AssigneeID, &before.CreatedAt, &before.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("lock incident %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE incidents SET assignee_id = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
			assigneeID, now, id, tc.TenantID); err != nil {
			return 0, fmt.Errorf("bulk update assignee: %w", err)
		}

		after := before
		after.AssigneeID = &assigneeID
		after.UpdatedAt = now

		beforeData, _ := json.Marshal(before)
		afterData, _ := json.Marshal(after)
		if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionBulkAssign, "incident", id, beforeData, afterData, now); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk assign: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) BulkChangeStatus(ctx context.Context, tc tenancy.Context, ids []uuid.UUID, newStatus string) (int, error) {
	if err := tc.Validate(); err != nil {
		return 0, err
	}
	if !tc.CanWrite() {
		return 0, ErrForbidden
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk status change: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	count := 0
	for _, id := range ids {
		var before models.Incident
		err := tx.QueryRow(ctx,
			`SELECT id, tenant_id, title, severity, status, service, environment, tags, created_by_id, assignee_id, created_at, updated_at
			 FROM incidents WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
		).Scan(&before.ID, &before.TenantID, &before.Title, &before.Severity, &before.Status, &before.Service,
			&before.Environment, &before.Tags, &before.CreatedByID, &before.AssigneeID, &before.CreatedAt, &before.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("lock incident %s: %w", id, err)
		}

		// Every incident is validated individually; the first illegal
		// transition aborts the whole batch via the deferred rollback.
		if !transitions.CanTransition(before.Status, newStatus) {
			return 0, ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx,
			`UPDATE incidents SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
			newStatus, now, id, tc.TenantID); err != nil {
			return 0, fmt.Errorf("bulk update status: %w", err)
		}

		fromStatus := before.Status
		statusData, _ := json.Marshal(models.StatusChangeData{From: &fromStatus, To: newStatus})
		if err := insertTimelineEvent(ctx, tx, uuid.New(), id, tc.TenantID, models.EventTypeStatusChange, "", statusData, tc.UserID, now); err != nil {
			return 0, err
		}

		after := before
		after.Status = newStatus
		after.UpdatedAt = now
		beforeData, _ := json.Marshal(before)
		afterData, _ := json.Marshal(after)
		if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionBulkStatus, "incident", id, beforeData, afterData, now); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk status change: %w", err)
	}
	return count, nil
}

// --- Attachments ---

func (s *PostgresStore) CreateAttachment(ctx context.Context, tc tenancy.Context, in AttachmentInput) (*models.Attachment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create attachment: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1 AND tenant_id = $2)`,
		in.IncidentID, tc.TenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check incident exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	now := time.Now().UTC()
	att := &models.Attachment{
		ID:         uuid.New(),
		IncidentID: in.IncidentID,
		TenantID:   tc.TenantID,
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		SizeBytes:  in.SizeBytes,
		StorageURL: in.StorageURL,
		ScanStatus: models.ScanStatusPending,
		CreatedAt:  now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO attachments (id, incident_id, tenant_id, file_name, mime_type, size_bytes, storage_url, scan_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		att.ID, att.IncidentID, att.TenantID, att.FileName, att.MimeType, att.SizeBytes,
		att.StorageURL, att.ScanStatus, att.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}

	payload, _ := json.Marshal(models.ScanAttachmentPayload{AttachmentID: att.ID})
	job := &models.Job{
		ID:        uuid.New(),
		TenantID:  tc.TenantID,
		Type:      models.JobTypeScanAttachment,
		Payload:   payload,
		Status:    models.JobStatusPending,
		Retries:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, type, payload, status, retries, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.TenantID, job.Type, job.Payload, job.Status, job.Retries, job.CreatedAt, job.UpdatedAt); err != nil {
		return nil, fmt.Errorf("enqueue scan job: %w", err)
	}

	afterData, _ := json.Marshal(att)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionCreate, "attachment", att.ID, nil, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create attachment: %w", err)
	}
	return att, nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, tc tenancy.Context, incidentID uuid.UUID) ([]*models.Attachment, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, incident_id, tenant_id, file_name, mime_type, size_bytes, storage_url, scan_status, created_at
		 FROM attachments WHERE incident_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`,
		incidentID, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []*models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.IncidentID, &a.TenantID, &a.FileName, &a.MimeType, &a.SizeBytes,
			&a.StorageURL, &a.ScanStatus, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, tc tenancy.Context, incidentID, attachmentID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if !tc.CanWrite() {
		return ErrForbidden
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM attachments WHERE id = $1 AND incident_id = $2 AND tenant_id = $3`,
		attachmentID, incidentID, tc.TenantID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateAttachmentScanStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE attachments SET scan_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update attachment scan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetAttachmentByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment
	err := s.pool.QueryRow(ctx,
		`SELECT id, incident_id, tenant_id, file_name, mime_type, size_bytes, storage_url, scan_status, created_at
		 FROM attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.IncidentID, &a.TenantID, &a.FileName, &a.MimeType, &a.SizeBytes, &a.StorageURL, &a.ScanStatus, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment by id: %w", err)
	}
	return &a, nil
}

// --- Saved views ---

func (s *PostgresStore) CreateSavedView(ctx context.Context, tc tenancy.Context, name string, filters models.SavedViewFilters) (*models.SavedView, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	v := &models.SavedView{
		ID: uuid.New(), TenantID: tc.TenantID, UserID: tc.UserID, Name: name,
		Filters: filters, CreatedAt: now, UpdatedAt: now,
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, fmt.Errorf("marshal saved view filters: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO saved_views (id, tenant_id, user_id, name, filters, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.TenantID, v.UserID, v.Name, filtersJSON, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create saved view: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) ListSavedViews(ctx context.Context, tc tenancy.Context) ([]*models.SavedView, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, user_id, name, filters, created_at, updated_at
		 FROM saved_views WHERE tenant_id = $1 AND user_id = $2 ORDER BY created_at DESC`,
		tc.TenantID, tc.UserID)
	if err != nil {
		return nil, fmt.Errorf("list saved views: %w", err)
	}
	defer rows.Close()

	var out []*models.SavedView
	for rows.Next() {
		var v models.SavedView
		var filtersJSON []byte
		if err := rows.Scan(&v.ID, &v.TenantID, &v.UserID, &v.Name, &filtersJSON, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan saved view: %w", err)
		}
		if err := json.Unmarshal(filtersJSON, &v.Filters); err != nil {
			return nil, fmt.Errorf("unmarshal saved view filters: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSavedView(ctx context.Context, tc tenancy.Context, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}

	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM saved_views WHERE id = $1 AND tenant_id = $2`,
		id, tc.TenantID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup saved view: %w", err)
	}
	if ownerID != tc.UserID {
		return ErrForbidden
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_views WHERE id = $1 AND tenant_id = $2 AND user_id = $3`,
		id, tc.TenantID, tc.UserID)
	if err != nil {
		return fmt.Errorf("delete saved view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Feature flags & rules ---

func (s *PostgresStore) CreateFlag(ctx context.Context, tc tenancy.Context, in FlagInput) (*models.FeatureFlag, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}
	now := time.Now().UTC()
	flag := &models.FeatureFlag{
		ID: uuid.New(), TenantID: tc.TenantID, Key: in.Key, Name: in.Name,
		Description: in.Description, Enabled: in.Enabled, Environment: in.Environment,
		CreatedAt: now, UpdatedAt: now,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create flag: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO feature_flags (id, tenant_id, key, name, description, enabled, environment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		flag.ID, flag.TenantID, flag.Key, flag.Name, flag.Description, flag.Enabled,
		flag.Environment, flag.CreatedAt, flag.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert feature flag: %w", err)
	}

	afterData, _ := json.Marshal(flag)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionCreate, "feature_flag", flag.ID, nil, afterData, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create flag: %w", err)
	}
	return flag, nil
}

func (s *PostgresStore) GetFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.FeatureFlag, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	var f models.FeatureFlag
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, key, name, description, enabled, environment, created_at, updated_at
		 FROM feature_flags WHERE id = $1 AND tenant_id = $2`, id, tc.TenantID,
	).Scan(&f.ID, &f.TenantID, &f.Key, &f.Name, &f.Description, &f.Enabled, &f.Environment, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feature flag: %w", err)
	}
	return &f, nil
}

func (s *PostgresStore) ListFlags(ctx context.Context, tc tenancy.Context) ([]*models.FeatureFlag, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, key, name, description, enabled, environment, created_at, updated_at
		 FROM feature_flags WHERE tenant_id = $1 ORDER BY created_at DESC`, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list feature flags: %w", err)
	}
	defer rows.Close()

	var out []*models.FeatureFlag
	for rows.Next() {
		var f models.FeatureFlag
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Key, &f.Name, &f.Description, &f.Enabled, &f.Environment, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan feature flag: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID, in FlagUpdate) (*models.FeatureFlag, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update flag: %w", err)
	}
	defer tx.Rollback(ctx)

	var before models.FeatureFlag
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, key, name, description, enabled, environment, created_at, updated_at
		 FROM feature_flags WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
	).Scan(&before.ID, &before.TenantID, &before.Key, &before.Name, &before.Description,
		&before.Enabled, &before.Environment, &before.CreatedAt, &before.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock feature flag: %w", err)
	}

	after := before
	if in.Name != nil {
		after.Name = *in.Name
	}
	if in.Description != nil {
		after.Description = *in.Description
	}
	if in.Enabled != nil {
		after.Enabled = *in.Enabled
	}
	after.UpdatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE feature_flags SET name = $1, description = $2, enabled = $3, updated_at = $4 WHERE id = $5 AND tenant_id = $6`,
		after.Name, after.Description, after.Enabled, after.UpdatedAt, id, tc.TenantID); err != nil {
		return nil, fmt.Errorf("update feature flag: %w", err)
	}

	beforeData, _ := json.Marshal(before)
	afterData, _ := json.Marshal(after)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionUpdate, "feature_flag", id, beforeData, afterData, after.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update flag: %w", err)
	}
	return &after, nil
}

func (s *PostgresStore) DeleteFlag(ctx context.Context, tc tenancy.Context, id uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if !tc.CanWrite() {
		return ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete flag: %w", err)
	}
	defer tx.Rollback(ctx)

	var before models.FeatureFlag
	err = tx.QueryRow(ctx,
		`SELECT id, tenant_id, key, name, description, enabled, environment, created_at, updated_at
		 FROM feature_flags WHERE id = $1 AND tenant_id = $2 FOR UPDATE`, id, tc.TenantID,
	).Scan(&before.ID, &before.TenantID, &before.Key, &before.Name, &before.Description,
		&before.Enabled, &before.Environment, &before.CreatedAt, &before.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock feature flag: %w", err)
	}

	// ON DELETE CASCADE on rules.flag_id handles the child rows.
	if _, err := tx.Exec(ctx, `DELETE FROM feature_flags WHERE id = $1 AND tenant_id = $2`, id, tc.TenantID); err != nil {
		return fmt.Errorf("delete feature flag: %w", err)
	}

	beforeData, _ := json.Marshal(before)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionDelete, "feature_flag", id, beforeData, nil, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListRules(ctx context.Context, tc tenancy.Context, flagID uuid.UUID) ([]*models.Rule, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.flag_id, r.type, r.condition, r.order_idx
		 FROM rules r JOIN feature_flags f ON f.id = r.flag_id
		 WHERE r.flag_id = $1 AND f.tenant_id = $2 ORDER BY r.order_idx ASC`,
		flagID, tc.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []*models.Rule
	for rows.Next() {
		var r models.Rule
		if err := rows.Scan(&r.ID, &r.FlagID, &r.Type, &r.Condition, &r.Order); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddRule(ctx context.Context, tc tenancy.Context, flagID uuid.UUID, ruleType string, condition json.RawMessage, order int) (*models.Rule, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	if !tc.CanWrite() {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin add rule: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM feature_flags WHERE id = $1 AND tenant_id = $2)`,
		flagID, tc.TenantID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check flag exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rule := &models.Rule{ID: uuid.New(), FlagID: flagID, Type: ruleType, Condition: condition, Order: order}
	if _, err := tx.Exec(ctx,
		`INSERT INTO rules (id, flag_id, type, condition, order_idx) VALUES ($1, $2, $3, $4, $5)`,
		rule.ID, rule.FlagID, rule.Type, rule.Condition, rule.Order); err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}

	afterData, _ := json.Marshal(rule)
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionCreate, "rule", rule.ID, nil, afterData, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit add rule: %w", err)
	}
	return rule, nil
}

func (s *PostgresStore) DeleteRule(ctx context.Context, tc tenancy.Context, flagID, ruleID uuid.UUID) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if !tc.CanWrite() {
		return ErrForbidden
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete rule: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM rules r USING feature_flags f
		 WHERE r.id = $1 AND r.flag_id = $2 AND f.id = r.flag_id AND f.tenant_id = $3`,
		ruleID, flagID, tc.TenantID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	beforeData, _ := json.Marshal(map[string]any{"id": ruleID, "flag_id": flagID})
	if err := insertAuditLog(ctx, tx, uuid.New(), tc.TenantID, tc.UserID, models.AuditActionDelete, "rule", ruleID, beforeData, nil, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Audit log ---

func (s *PostgresStore) ListAuditLogs(ctx context.Context, tc tenancy.Context, filter AuditFilter) ([]*models.AuditLog, bool, error) {
	if err := tc.Validate(); err != nil {
		return nil, false, err
	}
	if !tc.CanViewAudit() {
		return nil, false, ErrForbidden
	}

	conditions := []string{"tenant_id = $1"}
	args := []any{tc.TenantID}
	argIdx := 2

	if filter.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argIdx))
		args = append(args, filter.EntityType)
		argIdx++
	}
	if filter.EntityID != nil {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argIdx))
		args = append(args, *filter.EntityID)
		argIdx++
	}
	if filter.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", argIdx))
		args = append(args, *filter.ActorID)
		argIdx++
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, filter.Action)
		argIdx++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Cursor != nil {
		conditions = append(conditions,
			fmt.Sprintf("(created_at, id) < (SELECT created_at, id FROM audit_logs WHERE id = $%d)", argIdx))
		args = append(args, *filter.Cursor)
		argIdx++
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf(
		`SELECT id, tenant_id, actor_id, action, entity_type, entity_id, before_data, after_data, metadata, created_at
		 FROM audit_logs WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d`, where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditLog
	for rows.Next() {
		var a models.AuditLog
		if err := rows.Scan(&a.ID, &a.TenantID, &a.ActorID, &a.Action, &a.EntityType, &a.EntityID,
			&a.BeforeData, &a.AfterData, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("scan audit log: %w", err)
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	return out, hasMore, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, tc tenancy.Context, jobType string, payload json.RawMessage) (*models.Job, error) {
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := &models.Job{
		ID: uuid.New(), TenantID: tc.TenantID, Type: jobType, Payload: payload,
		Status: models.JobStatusPending, Retries: 0, CreatedAt: now, UpdatedAt: now,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, tenant_id, type, payload, status, retries, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.TenantID, job.Type, job.Payload, job.Status, job.Retries, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, type, payload, status, result, error, retries, created_at, updated_at, processed_at
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.TenantID, &j.Type, &j.Payload, &j.Status, &j.Result, &j.Error, &j.Retries,
		&j.CreatedAt, &j.UpdatedAt, &j.ProcessedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

// LeaseJobs claims up to batchSize PENDING jobs ordered by created_at ASC,
// transitioning each to PROCESSING. FOR UPDATE SKIP LOCKED lets multiple
// worker instances poll the same table without claiming the same row twice.
func (s *PostgresStore) LeaseJobs(ctx context.Context, batchSize int) ([]*models.Job, error) {
	if batchSize <= 0 {
		batchSize = 1
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin lease jobs: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT id FROM jobs WHERE status = $1 ORDER BY created_at ASC LIMIT $2 FOR UPDATE SKIP LOCKED`,
		models.JobStatusPending, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select leasable jobs: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan leasable job id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit(ctx)
	}

	now := time.Now().UTC()
	leased, err := tx.Query(ctx,
		`UPDATE jobs SET status = $1, updated_at = $2 WHERE id = ANY($3)
		 RETURNING id, tenant_id, type, payload, status, result, error, retries, created_at, updated_at, processed_at`,
		models.JobStatusProcessing, now, ids)
	if err != nil {
		return nil, fmt.Errorf("claim leasable jobs: %w", err)
	}
	defer leased.Close()

	var out []*models.Job
	for leased.Next() {
		var j models.Job
		if err := leased.Scan(&j.ID, &j.TenantID, &j.Type, &j.Payload, &j.Status, &j.Result, &j.Error,
			&j.Retries, &j.CreatedAt, &j.UpdatedAt, &j.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		out = append(out, &j)
	}
	if err := leased.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit lease jobs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, result = $2, processed_at = $3, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		models.JobStatusCompleted, result, now, id, models.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob re-queues the job for another attempt if it has retries left,
// otherwise marks it terminally FAILED with the given error message.
func (s *PostgresStore) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin fail job: %w", err)
	}
	defer tx.Rollback(ctx)

	var retries int
	err = tx.QueryRow(ctx, `SELECT retries FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&retries)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock job: %w", err)
	}

	now := time.Now().UTC()
	if retries < models.MaxJobRetries {
		if _, err := tx.Exec(ctx,
			`UPDATE jobs SET status = $1, retries = $2, error = $3, updated_at = $4 WHERE id = $5`,
			models.JobStatusPending, retries+1, errMsg, now, id); err != nil {
			return fmt.Errorf("requeue job: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`UPDATE jobs SET status = $1, error = $2, processed_at = $3, updated_at = $3 WHERE id = $4`,
			models.JobStatusFailed, errMsg, now, id); err != nil {
			return fmt.Errorf("fail job: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// --- shared helpers ---

func insertTimelineEvent(ctx context.Context, tx pgx.Tx, id, incidentID, tenantID uuid.UUID, eventType, message string, data json.RawMessage, createdBy uuid.UUID, createdAt time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO timeline_events (id, incident_id, tenant_id, type, message, data, created_by_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, incidentID, tenantID, eventType, message, data, createdBy, createdAt)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

func insertAuditLog(ctx context.Context, tx pgx.Tx, id, tenantID, actorID uuid.UUID, action, entityType string, entityID uuid.UUID, before, after json.RawMessage, createdAt time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO audit_logs (id, tenant_id, actor_id, action, entity_type, entity_id, before_data, after_data, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)`,
		id, tenantID, actorID, action, entityType, entityID, before, after, createdAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
