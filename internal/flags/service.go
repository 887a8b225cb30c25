package flags

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/cache"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/tenancy"
	"github.com/kiranshivaraju/loghunter/pkg/models"
)

var (
	ErrKeyRequired  = errors.New("flags: key is required")
	ErrNameRequired = errors.New("flags: name is required")
)

const snapshotTTL = 5 * time.Minute

// Service validates flag/rule writes and caches the per-environment flag
// list so repeated listings don't round-trip Postgres on every request.
type Service struct {
	store store.Store
	cache cache.Cache
}

func NewService(s store.Store, c cache.Cache) *Service {
	return &Service{store: s, cache: c}
}

func (s *Service) Create(ctx context.Context, tc tenancy.Context, in store.FlagInput) (*models.FeatureFlag, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, ErrKeyRequired
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrNameRequired
	}
	flag, err := s.store.CreateFlag(ctx, tc, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tc.TenantID, in.Environment)
	return flag, nil
}

func (s *Service) Get(ctx context.Context, tc tenancy.Context, id uuid.UUID) (*models.FeatureFlag, error) {
	return s.store.GetFlag(ctx, tc, id)
}

// List returns every flag in environment for the caller's tenant, serving
// from the cached snapshot when present.
func (s *Service) List(ctx context.Context, tc tenancy.Context, environment string) ([]*models.FeatureFlag, error) {
	key := cache.FlagSnapshotKey(tc.TenantID, environment)

	if raw, found, err := s.cache.Get(ctx, key); err == nil && found {
		var cached []*models.FeatureFlag
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	all, err := s.store.ListFlags(ctx, tc)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.FeatureFlag, 0, len(all))
	for _, f := range all {
		if environment == "" || f.Environment == environment {
			filtered = append(filtered, f)
		}
	}

	if raw, err := json.Marshal(filtered); err == nil {
		_ = s.cache.Set(ctx, key, raw, snapshotTTL)
	}
	return filtered, nil
}

func (s *Service) Update(ctx context.Context, tc tenancy.Context, id uuid.UUID, in store.FlagUpdate) (*models.FeatureFlag, error) {
	flag, err := s.store.UpdateFlag(ctx, tc, id, in)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, tc.TenantID, flag.Environment)
	return flag, nil
}

func (s *Service) Delete(ctx context.Context, tc tenancy.Context, id uuid.UUID) error {
	flag, err := s.store.GetFlag(ctx, tc, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFlag(ctx, tc, id); err != nil {
		return err
	}
	s.invalidate(ctx, tc.TenantID, flag.Environment)
	return nil
}

func (s *Service) ListRules(ctx context.Context, tc tenancy.Context, flagID uuid.UUID) ([]*models.Rule, error) {
	return s.store.ListRules(ctx, tc, flagID)
}

func (s *Service) AddRule(ctx context.Context, tc tenancy.Context, flagID uuid.UUID, ruleType string, condition json.RawMessage, order int) (*models.Rule, error) {
	if err := ValidateCondition(ruleType, condition); err != nil {
		return nil, err
	}
	rule, err := s.store.AddRule(ctx, tc, flagID, ruleType, condition, order)
	if err != nil {
		return nil, err
	}
	if flag, err := s.store.GetFlag(ctx, tc, flagID); err == nil {
		s.invalidate(ctx, tc.TenantID, flag.Environment)
	}
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, tc tenancy.Context, flagID, ruleID uuid.UUID) error {
	flag, err := s.store.GetFlag(ctx, tc, flagID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, tc, flagID, ruleID); err != nil {
		return err
	}
	s.invalidate(ctx, tc.TenantID, flag.Environment)
	return nil
}

// Evaluate loads a flag and its rules fresh (never from the list snapshot,
// since a single evaluation needs the rule bodies the snapshot omits) and
// runs the deterministic rule-grammar evaluator against evalCtx.
func (s *Service) Evaluate(ctx context.Context, tc tenancy.Context, flagID uuid.UUID, evalCtx EvalContext) (Result, error) {
	flag, err := s.store.GetFlag(ctx, tc, flagID)
	if err != nil {
		return Result{}, err
	}
	rules, err := s.store.ListRules(ctx, tc, flagID)
	if err != nil {
		return Result{}, err
	}

	ruleVals := make([]models.Rule, len(rules))
	for i, r := range rules {
		ruleVals[i] = *r
	}

	return Evaluate(*flag, ruleVals, evalCtx), nil
}

func (s *Service) invalidate(ctx context.Context, tenantID uuid.UUID, environment string) {
	_ = s.cache.Delete(ctx, cache.FlagSnapshotKey(tenantID, environment))
	_ = s.cache.Delete(ctx, cache.FlagSnapshotKey(tenantID, ""))
}
