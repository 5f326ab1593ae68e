package audience

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/audience-estimator/internal/domain"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/distlock"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// RefreshLockTTL is the lifetime to give locks created by a LockFactory. It
// bounds how long a crashed bulk refresh can block the next one.
const RefreshLockTTL = 10 * time.Minute

// LockFactory returns a lock for key. distlock.NewLock bound to the
// deployment's Redis client or database fits.
type LockFactory func(key string) distlock.DistLock

// Estimator sizes a set of criteria across markets. *estimation.Engine
// satisfies it.
type Estimator interface {
	Estimate(attributes []estimation.AttributeCriterion, markets []string) *estimation.EstimationResult
}

// Service implements saved-audience business logic. All public methods are
// safe for concurrent use if the underlying repository is concurrency-safe.
type Service struct {
	repo        Repository
	estimator   Estimator
	concurrency int
	newLock     LockFactory
	now         func() time.Time
}

// NewService creates an audience service backed by the given repository.
// concurrency bounds RefreshAll fan-out; values below 1 mean 1.
func NewService(repo Repository, estimator Estimator, concurrency int) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		repo:        repo,
		estimator:   estimator,
		concurrency: concurrency,
		newLock: func(key string) distlock.DistLock {
			return distlock.NewLocalLock(key)
		},
		now: time.Now,
	}
}

// WithLocks replaces the in-process lock used to serialize RefreshAll per
// organization.
func (s *Service) WithLocks(f LockFactory) *Service {
	s.newLock = f
	return s
}

// CreateInput holds the fields for creating a saved audience.
type CreateInput struct {
	Name        string                          `json:"name"`
	Description string                          `json:"description"`
	Criteria    []estimation.AttributeCriterion `json:"criteria"`
	Markets     []string                        `json:"markets"`
}

// Get returns a single audience.
func (s *Service) Get(ctx context.Context, orgID, id string) (*domain.Audience, error) {
	return s.repo.Get(ctx, orgID, id)
}

// List returns audiences matching the filter.
func (s *Service) List(ctx context.Context, orgID string, f ListFilter) ([]domain.Audience, int, error) {
	return s.repo.List(ctx, orgID, f)
}

// Delete removes an audience.
func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	return s.repo.Delete(ctx, orgID, id)
}

// Create validates the input, sizes the audience and persists it.
func (s *Service) Create(ctx context.Context, orgID string, input CreateInput) (*domain.Audience, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	markets := cleanMarkets(input.Markets)
	if len(markets) == 0 {
		return nil, ErrMarketsRequired
	}
	criteria := input.Criteria
	if criteria == nil {
		criteria = []estimation.AttributeCriterion{}
	}

	est, err := s.estimate(criteria, markets)
	if err != nil {
		return nil, err
	}

	a := &domain.Audience{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		Criteria:       toDomain(criteria),
		Markets:        markets,
		EstimatedSize:  est.EstimatedSize,
		Confidence:     est.Confidence,
		Estimate:       est.Estimate,
		EstimatedAt:    &est.EstimatedAt,
	}

	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.CreatedAt = est.EstimatedAt
	a.UpdatedAt = est.EstimatedAt
	return a, nil
}

// Refresh re-estimates a saved audience and stores the new snapshot.
func (s *Service) Refresh(ctx context.Context, orgID, id string) (*domain.Audience, error) {
	a, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	est, err := s.estimate(fromDomain(a.Criteria), a.Markets)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateEstimate(ctx, orgID, id, est); err != nil {
		return nil, fmt.Errorf("update estimate: %w", err)
	}

	a.EstimatedSize = est.EstimatedSize
	a.Confidence = est.Confidence
	a.Estimate = est.Estimate
	a.EstimatedAt = &est.EstimatedAt
	a.UpdatedAt = est.EstimatedAt
	return a, nil
}

// RefreshAll re-estimates every audience in the organization with bounded
// concurrency. It returns the number refreshed and the first failure, if any.
// Only one bulk refresh per organization runs at a time; a second caller gets
// ErrRefreshInProgress.
func (s *Service) RefreshAll(ctx context.Context, orgID string) (int, error) {
	lock := s.newLock("audience:refresh:" + orgID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !acquired {
		return 0, ErrRefreshInProgress
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release refresh lock failed", "org_id", orgID, "error", err)
		}
	}()

	ids, err := s.repo.ListIDs(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("list audience ids: %w", err)
	}

	var refreshed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := s.Refresh(gctx, orgID, id); err != nil {
				// Deleted between listing and refresh
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				logger.Error("audience refresh failed", "audience_id", id, "error", err)
				return fmt.Errorf("refresh %s: %w", id, err)
			}
			refreshed.Add(1)
			return nil
		})
	}
	err = g.Wait()

	n := int(refreshed.Load())
	logger.Info("audiences refreshed", "org_id", orgID, "count", n, "total", len(ids))
	return n, err
}

func (s *Service) estimate(criteria []estimation.AttributeCriterion, markets []string) (domain.AudienceEstimate, error) {
	result := s.estimator.Estimate(criteria, markets)
	raw, err := json.Marshal(result)
	if err != nil {
		return domain.AudienceEstimate{}, fmt.Errorf("encode estimate: %w", err)
	}
	return domain.AudienceEstimate{
		EstimatedSize: result.TotalSize,
		Confidence:    string(result.Confidence),
		Estimate:      raw,
		EstimatedAt:   s.now().UTC(),
	}, nil
}

func cleanMarkets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func toDomain(in []estimation.AttributeCriterion) []domain.Criterion {
	out := make([]domain.Criterion, len(in))
	for i, c := range in {
		out[i] = domain.Criterion(c)
	}
	return out
}

func fromDomain(in []domain.Criterion) []estimation.AttributeCriterion {
	out := make([]estimation.AttributeCriterion, len(in))
	for i, c := range in {
		out[i] = estimation.AttributeCriterion(c)
	}
	return out
}
