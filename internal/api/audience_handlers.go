package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/audience-estimator/internal/audience"
	"github.com/ignite/audience-estimator/internal/pkg/httputil"
)

// ListAudiences returns the organization's saved audiences, newest first.
//
//	GET /api/v1/audiences?search=gamers&page=1&limit=20
func (h *Handlers) ListAudiences(w http.ResponseWriter, r *http.Request) {
	orgID := orgIDFromContext(r.Context())
	page := httputil.ParsePage(r, 20, 100)

	items, total, err := h.audiences.List(r.Context(), orgID, audience.ListFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, msgListAudiencesFailed)
		return
	}

	httputil.Paged(w, items, page, int64(total))
}

// CreateAudience saves an audience together with a fresh estimate.
//
//	POST /api/v1/audiences
func (h *Handlers) CreateAudience(w http.ResponseWriter, r *http.Request) {
	var input audience.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}

	a, err := h.audiences.Create(r.Context(), orgIDFromContext(r.Context()), input)
	if err != nil {
		if audience.IsValidationError(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		respondSafeError(w, r, http.StatusInternalServerError, err, msgCreateFailed)
		return
	}
	httputil.Created(w, a)
}

// GetAudience returns one saved audience.
//
//	GET /api/v1/audiences/{id}
func (h *Handlers) GetAudience(w http.ResponseWriter, r *http.Request) {
	a, err := h.audiences.Get(r.Context(), orgIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondAudienceError(w, r, err, msgLoadAudienceFailed)
		return
	}
	httputil.OK(w, a)
}

// DeleteAudience removes a saved audience.
//
//	DELETE /api/v1/audiences/{id}
func (h *Handlers) DeleteAudience(w http.ResponseWriter, r *http.Request) {
	if err := h.audiences.Delete(r.Context(), orgIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respondAudienceError(w, r, err, msgDeleteFailed)
		return
	}
	httputil.NoContent(w)
}

// RefreshAudience re-estimates one saved audience.
//
//	POST /api/v1/audiences/{id}/refresh
func (h *Handlers) RefreshAudience(w http.ResponseWriter, r *http.Request) {
	a, err := h.audiences.Refresh(r.Context(), orgIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respondAudienceError(w, r, err, msgRefreshFailed)
		return
	}
	httputil.OK(w, a)
}

// RefreshAllAudiences re-estimates every saved audience of the organization.
//
//	POST /api/v1/audiences/refresh
func (h *Handlers) RefreshAllAudiences(w http.ResponseWriter, r *http.Request) {
	n, err := h.audiences.RefreshAll(r.Context(), orgIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, audience.ErrRefreshInProgress) {
			httputil.Error(w, http.StatusConflict, err.Error())
			return
		}
		respondSafeError(w, r, http.StatusInternalServerError, err, msgRefreshAllFailed)
		return
	}
	httputil.OK(w, map[string]int{"refreshed": n})
}

func (h *Handlers) respondAudienceError(w http.ResponseWriter, r *http.Request, err error, publicMsg string) {
	if errors.Is(err, audience.ErrNotFound) {
		httputil.NotFound(w, "Audience not found")
		return
	}
	respondSafeError(w, r, http.StatusInternalServerError, err, publicMsg)
}
