package domain

import (
	"encoding/json"
	"time"
)

// Criterion is one saved targeting filter. It mirrors the engine's
// attribute criterion field for field so the two convert directly.
type Criterion struct {
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

// Audience is a saved audience definition together with its latest estimate.
type Audience struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Name           string      `json:"name" db:"name"`
	Description    string      `json:"description" db:"description"`
	Criteria       []Criterion `json:"criteria" db:"criteria"`
	Markets        []string    `json:"markets" db:"markets"`

	// Latest estimate (populated on create and refresh)
	EstimatedSize int64           `json:"estimated_size" db:"estimated_size"`
	Confidence    string          `json:"confidence" db:"confidence"`
	Estimate      json.RawMessage `json:"estimate,omitempty" db:"estimate"`
	EstimatedAt   *time.Time      `json:"estimated_at" db:"estimated_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasEstimate returns true once the audience has been sized at least once.
func (a *Audience) HasEstimate() bool {
	return a.EstimatedAt != nil
}

// AudienceEstimate is the estimate snapshot written back on refresh.
type AudienceEstimate struct {
	EstimatedSize int64
	Confidence    string
	Estimate      json.RawMessage
	EstimatedAt   time.Time
}
