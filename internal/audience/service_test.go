package audience_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/domain"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/distlock"
)

// memRepo is an in-memory audience repository for unit testing.
type memRepo struct {
	mu        sync.Mutex
	audiences map[string]*domain.Audience // keyed by id
	updates   int
	failID    string
}

func newMemRepo() *memRepo {
	return &memRepo{audiences: make(map[string]*domain.Audience)}
}

func (m *memRepo) Get(_ context.Context, orgID, id string) (*domain.Audience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audiences[id]
	if !ok || a.OrganizationID != orgID {
		return nil, audience.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) List(_ context.Context, orgID string, f audience.ListFilter) ([]domain.Audience, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Audience
	for _, a := range m.audiences {
		if a.OrganizationID != orgID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(out) || f.Limit <= 0 {
		end = len(out)
	}
	return out[f.Offset:end], total, nil
}

func (m *memRepo) Create(_ context.Context, a *domain.Audience) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		return "", fmt.Errorf("id required")
	}
	cp := *a
	m.audiences[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audiences[id]
	if !ok || a.OrganizationID != orgID {
		return audience.ErrNotFound
	}
	delete(m.audiences, id)
	return nil
}

func (m *memRepo) UpdateEstimate(_ context.Context, orgID, id string, est domain.AudienceEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.failID {
		return errors.New("connection reset")
	}
	a, ok := m.audiences[id]
	if !ok || a.OrganizationID != orgID {
		return audience.ErrNotFound
	}
	a.EstimatedSize = est.EstimatedSize
	a.Confidence = est.Confidence
	a.Estimate = est.Estimate
	at := est.EstimatedAt
	a.EstimatedAt = &at
	m.updates++
	return nil
}

func (m *memRepo) ListIDs(_ context.Context, orgID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, a := range m.audiences {
		if a.OrganizationID == orgID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

const testOrg = "org-1"

func newService(repo *memRepo, r float64) *audience.Service {
	engine := estimation.NewEngine(estimation.NewCalculator(estimation.FixedRand(r)))
	return audience.NewService(repo, engine, 2)
}

func TestCreate(t *testing.T) {
	svc := newService(newMemRepo(), 0.5)
	a, err := svc.Create(context.Background(), testOrg, audience.CreateInput{
		Name:    "  US gamers ",
		Markets: []string{"US", " "},
		Criteria: []estimation.AttributeCriterion{
			{Dimension: "interests", Operator: "in", Value: "gaming"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "US gamers", a.Name)
	assert.Equal(t, []string{"US"}, a.Markets)
	assert.True(t, a.HasEstimate())
	// 280M * 0.92 * 0.35 * 0.38, variance factor exactly 1.0
	assert.Equal(t, int64(34260800), a.EstimatedSize)
	assert.Equal(t, "medium", a.Confidence)

	var result estimation.EstimationResult
	require.NoError(t, json.Unmarshal(a.Estimate, &result))
	assert.Equal(t, a.EstimatedSize, result.TotalSize)
	require.Len(t, result.MarketBreakdown, 1)
	assert.Equal(t, 100, result.MarketBreakdown[0].Percentage)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMemRepo(), 0.5)

	_, err := svc.Create(context.Background(), testOrg, audience.CreateInput{Markets: []string{"US"}})
	assert.ErrorIs(t, err, audience.ErrNameRequired)

	_, err = svc.Create(context.Background(), testOrg, audience.CreateInput{Name: "x", Markets: []string{""}})
	assert.ErrorIs(t, err, audience.ErrMarketsRequired)
	assert.True(t, audience.IsValidationError(err))
}

func TestGetNotFound(t *testing.T) {
	svc := newService(newMemRepo(), 0.5)
	_, err := svc.Get(context.Background(), testOrg, "nonexistent")
	assert.ErrorIs(t, err, audience.ErrNotFound)
}

func TestGetOtherOrg(t *testing.T) {
	svc := newService(newMemRepo(), 0.5)
	a, err := svc.Create(context.Background(), testOrg, audience.CreateInput{Name: "A", Markets: []string{"UK"}})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "org-2", a.ID)
	assert.ErrorIs(t, err, audience.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	svc := newService(newMemRepo(), 0.5)
	ctx := context.Background()
	for _, name := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := svc.Create(ctx, testOrg, audience.CreateInput{Name: name, Markets: []string{"DE"}})
		require.NoError(t, err)
	}

	page, total, err := svc.List(ctx, testOrg, audience.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	found, total, err := svc.List(ctx, testOrg, audience.ListFilter{Search: "bet"})
	require.NoError(t, err)
	require.Equal(t, 1, total)

	require.NoError(t, svc.Delete(ctx, testOrg, found[0].ID))
	assert.ErrorIs(t, svc.Delete(ctx, testOrg, found[0].ID), audience.ErrNotFound)
}

func TestRefresh(t *testing.T) {
	repo := newMemRepo()
	ctx := context.Background()
	a, err := newService(repo, 0.0).Create(ctx, testOrg, audience.CreateInput{Name: "US", Markets: []string{"US"}})
	require.NoError(t, err)

	refreshed, err := newService(repo, 0.999).Refresh(ctx, testOrg, a.ID)
	require.NoError(t, err)
	assert.Greater(t, refreshed.EstimatedSize, a.EstimatedSize)

	stored, err := repo.Get(ctx, testOrg, a.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshed.EstimatedSize, stored.EstimatedSize)
}

func TestRefreshAll(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, 0.5)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, testOrg, audience.CreateInput{Name: fmt.Sprintf("a%d", i), Markets: []string{"FR"}})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "org-2", audience.CreateInput{Name: "other", Markets: []string{"FR"}})
	require.NoError(t, err)

	n, err := svc.RefreshAll(ctx, testOrg)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, repo.updates)
}

func TestRefreshAllReportsFailure(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, 0.5)
	a, err := svc.Create(context.Background(), testOrg, audience.CreateInput{Name: "broken", Markets: []string{"US"}})
	require.NoError(t, err)
	repo.failID = a.ID

	n, err := svc.RefreshAll(context.Background(), testOrg)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}

type busyLock struct{}

func (busyLock) Acquire(context.Context) (bool, error) { return false, nil }
func (busyLock) Release(context.Context) error         { return nil }

func TestRefreshAllInProgress(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, 0.5).WithLocks(func(string) distlock.DistLock { return busyLock{} })

	_, err := svc.RefreshAll(context.Background(), testOrg)
	assert.ErrorIs(t, err, audience.ErrRefreshInProgress)
	assert.Equal(t, 0, repo.updates)
}

func TestRefreshAllReleasesLock(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, 0.5)

	_, err := svc.RefreshAll(context.Background(), testOrg)
	require.NoError(t, err)
	_, err = svc.RefreshAll(context.Background(), testOrg)
	require.NoError(t, err)
}
