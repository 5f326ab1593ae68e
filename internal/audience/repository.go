package audience

import (
	"context"

	"github.com/ignite/audience-estimator/internal/domain"
)

// Repository defines the data access contract for saved audiences.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single audience. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, orgID, id string) (*domain.Audience, error)

	// List returns audiences matching the given filter, ordered by created_at DESC,
	// along with the total number of matches.
	List(ctx context.Context, orgID string, filter ListFilter) ([]domain.Audience, int, error)

	// Create inserts a new audience and returns its ID.
	Create(ctx context.Context, a *domain.Audience) (string, error)

	// Delete removes an audience. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, orgID, id string) error

	// UpdateEstimate stores a fresh estimate snapshot for an audience.
	UpdateEstimate(ctx context.Context, orgID, id string, est domain.AudienceEstimate) error

	// ListIDs returns the IDs of every audience in the organization.
	ListIDs(ctx context.Context, orgID string) ([]string, error)
}

// ListFilter controls pagination and filtering for audience lists.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
