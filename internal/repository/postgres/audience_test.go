package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var audienceCols = []string{
	"id", "organization_id", "name", "description", "criteria", "markets",
	"estimated_size", "confidence", "estimate", "estimated_at", "created_at", "updated_at",
}

func TestAudienceRepo_Get(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .* FROM audiences WHERE id = \\$1 AND organization_id = \\$2").
		WithArgs("aud-1", "org-1").
		WillReturnRows(sqlmock.NewRows(audienceCols).AddRow(
			"aud-1", "org-1", "Gamers", "", `[{"dimension":"interests","operator":"in","value":"gaming"}]`, "{US,UK}",
			int64(1200), "medium", `{"totalSize":1200}`, now, now, now,
		))

	a, err := NewAudienceRepo(db).Get(context.Background(), "org-1", "aud-1")
	require.NoError(t, err)
	assert.Equal(t, "Gamers", a.Name)
	assert.Equal(t, []string{"US", "UK"}, a.Markets)
	require.Len(t, a.Criteria, 1)
	assert.Equal(t, domain.Criterion{Dimension: "interests", Operator: "in", Value: "gaming"}, a.Criteria[0])
	assert.JSONEq(t, `{"totalSize":1200}`, string(a.Estimate))
	require.NotNil(t, a.EstimatedAt)
	assert.True(t, a.EstimatedAt.Equal(now))
}

func TestAudienceRepo_GetNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery("SELECT .* FROM audiences").
		WithArgs("missing", "org-1").
		WillReturnError(sql.ErrNoRows)

	_, err := NewAudienceRepo(db).Get(context.Background(), "org-1", "missing")
	assert.ErrorIs(t, err, audience.ErrNotFound)
}

func TestAudienceRepo_GetNeverEstimated(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM audiences").
		WillReturnRows(sqlmock.NewRows(audienceCols).AddRow(
			"aud-2", "org-1", "Empty", "", `[]`, "{}", int64(0), "low", nil, nil, now, now,
		))

	a, err := NewAudienceRepo(db).Get(context.Background(), "org-1", "aud-2")
	require.NoError(t, err)
	assert.False(t, a.HasEstimate())
	assert.Empty(t, a.Criteria)
	assert.Nil(t, a.Estimate)
}

func TestAudienceRepo_ListWithSearch(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audiences WHERE organization_id = \\$1 AND name ILIKE \\$2").
		WithArgs("org-1", "%gam%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT .* FROM audiences WHERE organization_id = \\$1 AND name ILIKE \\$2 ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs("org-1", "%gam%", 2, 0).
		WillReturnRows(sqlmock.NewRows(audienceCols).
			AddRow("a", "org-1", "Gamers US", "", `[]`, "{US}", int64(10), "low", nil, nil, now, now).
			AddRow("b", "org-1", "Gamers UK", "", `[]`, "{UK}", int64(20), "low", nil, nil, now, now))

	out, total, err := NewAudienceRepo(db).List(context.Background(), "org-1", audience.ListFilter{Search: "gam", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, out, 2)
	assert.Equal(t, "Gamers UK", out[1].Name)
}

func TestAudienceRepo_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	at := time.Now().UTC()

	mock.ExpectExec("INSERT INTO audiences").
		WithArgs(sqlmock.AnyArg(), "org-1", "Gamers", "desc", sqlmock.AnyArg(), `{"US","DE"}`,
			int64(500), "high", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &domain.Audience{
		OrganizationID: "org-1",
		Name:           "Gamers",
		Description:    "desc",
		Criteria:       []domain.Criterion{{Dimension: "age", Operator: "between", Value: "18-24"}},
		Markets:        []string{"US", "DE"},
		EstimatedSize:  500,
		Confidence:     "high",
		Estimate:       json.RawMessage(`{"totalSize":500}`),
		EstimatedAt:    &at,
	}
	id, err := NewAudienceRepo(db).Create(context.Background(), a)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, a.ID)
}

func TestAudienceRepo_DeleteNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec("DELETE FROM audiences").
		WithArgs("missing", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewAudienceRepo(db).Delete(context.Background(), "org-1", "missing")
	assert.ErrorIs(t, err, audience.ErrNotFound)
}

func TestAudienceRepo_UpdateEstimate(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec("UPDATE audiences").
		WithArgs(int64(900), "medium", sqlmock.AnyArg(), sqlmock.AnyArg(), "aud-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewAudienceRepo(db).UpdateEstimate(context.Background(), "org-1", "aud-1", domain.AudienceEstimate{
		EstimatedSize: 900,
		Confidence:    "medium",
		Estimate:      json.RawMessage(`{}`),
		EstimatedAt:   time.Now(),
	})
	assert.NoError(t, err)
}

func TestAudienceRepo_ListIDs(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery("SELECT id FROM audiences WHERE organization_id = \\$1").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	ids, err := NewAudienceRepo(db).ListIDs(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
