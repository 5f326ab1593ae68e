package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/domain"
)

// AudienceRepo implements audience.Repository against PostgreSQL.
type AudienceRepo struct{ db *sql.DB }

// NewAudienceRepo creates a Postgres-backed audience repository.
func NewAudienceRepo(db *sql.DB) *AudienceRepo { return &AudienceRepo{db: db} }

const audienceColumns = `
		id, organization_id, name, COALESCE(description,''), criteria, markets,
		estimated_size, confidence, estimate, estimated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAudience(row rowScanner) (*domain.Audience, error) {
	var (
		a           domain.Audience
		criteria    []byte
		estimate    []byte
		estimatedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.Description, &criteria, pq.Array(&a.Markets),
		&a.EstimatedSize, &a.Confidence, &estimate, &estimatedAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(criteria) > 0 {
		if err := json.Unmarshal(criteria, &a.Criteria); err != nil {
			return nil, fmt.Errorf("decode criteria: %w", err)
		}
	}
	if a.Criteria == nil {
		a.Criteria = []domain.Criterion{}
	}
	if len(estimate) > 0 {
		a.Estimate = json.RawMessage(estimate)
	}
	if estimatedAt.Valid {
		t := estimatedAt.Time
		a.EstimatedAt = &t
	}
	return &a, nil
}

func (r *AudienceRepo) Get(ctx context.Context, orgID, id string) (*domain.Audience, error) {
	a, err := scanAudience(r.db.QueryRowContext(ctx, `
		SELECT`+audienceColumns+`
		FROM audiences
		WHERE id = $1 AND organization_id = $2
	`, id, orgID))
	if err == sql.ErrNoRows {
		return nil, audience.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get audience: %w", err)
	}
	return a, nil
}

func (r *AudienceRepo) List(ctx context.Context, orgID string, f audience.ListFilter) ([]domain.Audience, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := ` WHERE organization_id = $1`
	args := []interface{}{orgID}
	idx := 2
	if f.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audiences`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audiences: %w", err)
	}

	q := `SELECT` + audienceColumns + ` FROM audiences` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audiences: %w", err)
	}
	defer rows.Close()

	out := []domain.Audience{}
	for rows.Next() {
		a, err := scanAudience(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audience: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list audiences: %w", err)
	}
	return out, total, nil
}

func (r *AudienceRepo) Create(ctx context.Context, a *domain.Audience) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return "", fmt.Errorf("encode criteria: %w", err)
	}
	var estimate interface{}
	if len(a.Estimate) > 0 {
		estimate = []byte(a.Estimate)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audiences
			(id, organization_id, name, description, criteria, markets,
			 estimated_size, confidence, estimate, estimated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`, a.ID, a.OrganizationID, a.Name, a.Description, criteria, pq.Array(a.Markets),
		a.EstimatedSize, a.Confidence, estimate, a.EstimatedAt)
	if err != nil {
		return "", fmt.Errorf("create audience: %w", err)
	}
	return a.ID, nil
}

func (r *AudienceRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM audiences WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("delete audience: %w", err)
	}
	return expectOneRow(res)
}

func (r *AudienceRepo) UpdateEstimate(ctx context.Context, orgID, id string, est domain.AudienceEstimate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE audiences
		SET estimated_size = $1, confidence = $2, estimate = $3, estimated_at = $4, updated_at = NOW()
		WHERE id = $5 AND organization_id = $6
	`, est.EstimatedSize, est.Confidence, []byte(est.Estimate), est.EstimatedAt.UTC().Truncate(time.Microsecond), id, orgID)
	if err != nil {
		return fmt.Errorf("update audience estimate: %w", err)
	}
	return expectOneRow(res)
}

func (r *AudienceRepo) ListIDs(ctx context.Context, orgID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM audiences WHERE organization_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list audience ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan audience id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return audience.ErrNotFound
	}
	return nil
}
