package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/ignite/audience-estimator/internal/pkg/httputil"
)

// OrgContextKey is the key for storing the organization ID in a request context
type OrgContextKey struct{}

var errNoOrg = errors.New("organization ID not found in request")

// OrgResolver extracts the organization a request acts for.
type OrgResolver struct {
	defaultOrgID uuid.UUID
}

// NewOrgResolver creates a resolver. DEFAULT_ORG_ID, when it is a valid UUID,
// is used for requests that name no organization.
func NewOrgResolver() *OrgResolver {
	var def uuid.UUID
	if s := os.Getenv("DEFAULT_ORG_ID"); s != "" {
		if parsed, err := uuid.Parse(s); err == nil {
			def = parsed
		}
	}
	return &OrgResolver{defaultOrgID: def}
}

// ExtractOrgID extracts organization ID from request with fallback chain
// Priority: 1. Context, 2. X-Organization-ID header, 3. org_id query param, 4. DEFAULT_ORG_ID
func (o *OrgResolver) ExtractOrgID(r *http.Request) (uuid.UUID, error) {
	if id, ok := r.Context().Value(OrgContextKey{}).(uuid.UUID); ok && id != uuid.Nil {
		return id, nil
	}

	if s := r.Header.Get("X-Organization-ID"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			return id, nil
		}
	}

	if s := r.URL.Query().Get("org_id"); s != "" {
		if id, err := uuid.Parse(s); err == nil {
			return id, nil
		}
	}

	if o.defaultOrgID != uuid.Nil {
		return o.defaultOrgID, nil
	}
	return uuid.Nil, errNoOrg
}

// RequireOrg requires an organization, returns 401 if none can be resolved
func (o *OrgResolver) RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := o.ExtractOrgID(r)
		if err != nil {
			httputil.Error(w, http.StatusUnauthorized, "organization context required")
			return
		}
		ctx := context.WithValue(r.Context(), OrgContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// orgIDFromContext returns the organization set by RequireOrg.
func orgIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(OrgContextKey{}).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}
