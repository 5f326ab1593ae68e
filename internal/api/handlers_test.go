package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/domain"
	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/distlock"
	"github.com/ignite/audience-estimator/internal/pkg/httputil"
	"github.com/ignite/audience-estimator/internal/queryparser"
)

const testOrgID = "7d3c1f0e-4b2a-4c5d-9e8f-112233445566"

// memAudiences is an in-memory audience.Repository.
type memAudiences struct {
	mu   sync.Mutex
	byID map[string]domain.Audience
}

func newMemAudiences() *memAudiences {
	return &memAudiences{byID: make(map[string]domain.Audience)}
}

func (m *memAudiences) Get(_ context.Context, orgID, id string) (*domain.Audience, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.OrganizationID != orgID {
		return nil, audience.ErrNotFound
	}
	return &a, nil
}

func (m *memAudiences) List(_ context.Context, orgID string, f audience.ListFilter) ([]domain.Audience, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Audience
	for _, a := range m.byID {
		if a.OrganizationID == orgID && strings.Contains(a.Name, f.Search) {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *memAudiences) Create(_ context.Context, a *domain.Audience) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[a.ID] = *a
	return a.ID, nil
}

func (m *memAudiences) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.OrganizationID != orgID {
		return audience.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memAudiences) UpdateEstimate(_ context.Context, orgID, id string, est domain.AudienceEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok || a.OrganizationID != orgID {
		return audience.ErrNotFound
	}
	a.EstimatedSize = est.EstimatedSize
	a.Confidence = est.Confidence
	m.byID[id] = a
	return nil
}

func (m *memAudiences) ListIDs(_ context.Context, orgID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, a := range m.byID {
		if a.OrganizationID == orgID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type busyLock struct{}

func (busyLock) Acquire(context.Context) (bool, error) { return false, nil }
func (busyLock) Release(context.Context) error         { return nil }

func newTestEngine() *estimation.Engine {
	return estimation.NewEngine(estimation.NewCalculator(estimation.FixedRand(0.5)))
}

func setupRouter(t *testing.T, svc *audience.Service) http.Handler {
	t.Helper()
	t.Setenv("DEFAULT_ORG_ID", "")
	engine := newTestEngine()
	builder := queryparser.NewBuilder(queryparser.NewRulesParser(), engine)
	h := NewHandlers(engine, builder, svc, nil)
	return SetupRoutes(h, []string{"http://localhost:5173"})
}

func newAudienceService() *audience.Service {
	return audience.NewService(newMemAudiences(), newTestEngine(), 2)
}

func do(t *testing.T, router http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestEstimateAudience_UnfilteredUS(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/estimate", `{"attributes":[],"markets":["US"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	env := decodeEnvelope(t, rr)
	assert.True(t, env.Success)

	var result estimation.EstimationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.InDelta(t, 90_160_000, result.TotalSize, 90_160_000*0.05)
	require.Len(t, result.MarketBreakdown, 1)
	assert.Equal(t, "US", result.MarketBreakdown[0].Market)
	assert.Equal(t, 100, result.MarketBreakdown[0].Percentage)
	assert.Equal(t, estimation.ConfidenceLow, result.Confidence)
	assert.NotEmpty(t, result.Methodology)
	assert.NotEmpty(t, result.LastUpdated)
}

func TestEstimateAudience_DefaultsToGlobal(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/estimate", `{}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var result estimation.EstimationResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	require.Len(t, result.MarketBreakdown, 1)
	assert.Equal(t, estimation.GlobalMarket, result.MarketBreakdown[0].Market)
}

func TestEstimateAudience_ValidationErrors(t *testing.T) {
	router := setupRouter(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"attributes not array", `{"attributes":"age","markets":["US"]}`, "Attributes must be an array"},
		{"attributes null", `{"attributes":null,"markets":["US"]}`, "Attributes must be an array"},
		{"empty markets", `{"attributes":[],"markets":[]}`, "At least one market is required"},
		{"markets not array", `{"markets":"US"}`, "At least one market is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/api/v1/audiences/estimate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.want, decodeEnvelope(t, rr).Error)
		})
	}
}

func TestEstimateAudience_MixedTypeMarkets(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/estimate", `{"attributes":[],"markets":[1,"US"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result estimation.EstimationResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	require.Len(t, result.MarketBreakdown, 2)

	sizes := map[string]int64{}
	for _, b := range result.MarketBreakdown {
		sizes[b.Market] = b.Size
	}
	calc := estimation.NewCalculator(estimation.FixedRand(0.5))
	assert.Equal(t, calc.MarketSize(estimation.GlobalMarket, nil), sizes["1"])
	assert.Equal(t, calc.MarketSize("US", nil), sizes["US"])
	assert.Equal(t, sizes["1"]+sizes["US"], result.TotalSize)
}

func TestEstimateAudience_MalformedBody(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/estimate", `{"attributes":[`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "Failed to estimate audience size", env.Error)
}

func TestQuickEstimate(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/api/v1/audiences/estimate?markets=US,%20UK&age=25-34&location=urban", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var quick estimation.QuickEstimate
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &quick))
	assert.Equal(t, []string{"US", "UK"}, quick.Markets)
	assert.Equal(t, 2, quick.AttributeCount)
	assert.Positive(t, quick.TotalSize)
}

func TestQuickEstimate_Defaults(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/api/v1/audiences/estimate", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var quick estimation.QuickEstimate
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &quick))
	assert.Equal(t, []string{estimation.GlobalMarket}, quick.Markets)
	assert.Equal(t, 0, quick.AttributeCount)
}

func TestParseAudience(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/parse", `{"query":"gamers aged 25-34 in the US"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var result queryparser.BuildResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &result))
	assert.Equal(t, queryparser.SourceRules, result.Source)
	assert.Equal(t, []string{"US"}, result.Markets)
	assert.Contains(t, result.Criteria, estimation.AttributeCriterion{
		Dimension: estimation.DimensionInterests, Operator: estimation.OperatorIn, Value: "gaming",
	})
	assert.Positive(t, result.EstimatedSize)
}

func TestParseAudience_EmptyQuery(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/parse", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Query is required", decodeEnvelope(t, rr).Error)
}

func TestListMarkets(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/api/v1/markets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var markets []map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &markets))
	require.Len(t, markets, len(estimation.SupportedMarkets()))

	var us map[string]interface{}
	for _, m := range markets {
		if m["market"] == "US" {
			us = m
		}
	}
	require.NotNil(t, us)
	assert.Equal(t, 280.0, us["population"])
	assert.InDelta(t, 90_160_000.0, us["reachablePopulation"], 1)
	assert.Equal(t, true, us["wellCovered"])
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, notConfigured, status.Checks["database"].Message)
	assert.Equal(t, "rules", status.Checks["parser"].Message)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health/live", "").Code)
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "down", Message: "ping failed: refused"},
	}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"},
		"redis":    {Status: "down", Message: "ping failed: refused"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "down", Message: notConfigured},
		"parser":   {Status: "up"},
	}))
}

func TestSavedAudienceRoutesRequireDatabase(t *testing.T) {
	router := setupRouter(t, nil)

	rr := do(t, router, http.MethodGet, "/api/v1/audiences", "", "X-Organization-ID", testOrgID)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSavedAudienceRequiresOrg(t *testing.T) {
	router := setupRouter(t, newAudienceService())

	rr := do(t, router, http.MethodGet, "/api/v1/audiences", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSavedAudienceLifecycle(t *testing.T) {
	router := setupRouter(t, newAudienceService())
	org := []string{"X-Organization-ID", testOrgID}

	rr := do(t, router, http.MethodPost, "/api/v1/audiences",
		`{"name":"US gamers","criteria":[{"dimension":"interests","operator":"includes","value":"gaming"}],"markets":["US"]}`, org...)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created domain.Audience
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, testOrgID, created.OrganizationID)
	assert.InDelta(t, 34_260_800, created.EstimatedSize, 1)

	rr = do(t, router, http.MethodGet, "/api/v1/audiences/"+created.ID, "", org...)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/audiences?search=gamers", "", org...)
	require.Equal(t, http.StatusOK, rr.Code)
	var page struct {
		Success    bool              `json:"success"`
		Data       []domain.Audience `json:"data"`
		Pagination httputil.PageMeta `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.True(t, page.Success)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	rr = do(t, router, http.MethodPost, "/api/v1/audiences/"+created.ID+"/refresh", "", org...)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/v1/audiences/refresh", "", org...)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"refreshed":1}`, string(decodeEnvelope(t, rr).Data))

	rr = do(t, router, http.MethodDelete, "/api/v1/audiences/"+created.ID, "", org...)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/audiences/"+created.ID, "", org...)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Audience not found", decodeEnvelope(t, rr).Error)
}

func TestCreateAudienceValidation(t *testing.T) {
	router := setupRouter(t, newAudienceService())

	rr := do(t, router, http.MethodPost, "/api/v1/audiences", `{"name":"","markets":["US"]}`, "X-Organization-ID", testOrgID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, audience.ErrNameRequired.Error(), decodeEnvelope(t, rr).Error)

	rr = do(t, router, http.MethodPost, "/api/v1/audiences", `{"name":`, "X-Organization-ID", testOrgID)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshAllInProgress(t *testing.T) {
	svc := newAudienceService().WithLocks(func(string) distlock.DistLock { return busyLock{} })
	router := setupRouter(t, svc)

	rr := do(t, router, http.MethodPost, "/api/v1/audiences/refresh", "", "X-Organization-ID", testOrgID)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestDefaultOrgFromEnv(t *testing.T) {
	t.Setenv("DEFAULT_ORG_ID", testOrgID)
	resolver := NewOrgResolver()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id, err := resolver.ExtractOrgID(req)
	require.NoError(t, err)
	assert.Equal(t, testOrgID, id.String())

	req.Header.Set("X-Organization-ID", "not-a-uuid")
	id, err = resolver.ExtractOrgID(req)
	require.NoError(t, err)
	assert.Equal(t, testOrgID, id.String())
}
