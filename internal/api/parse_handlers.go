package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/audience-estimator/internal/pkg/httputil"
	"github.com/ignite/audience-estimator/internal/queryparser"
)

type parseRequest struct {
	Query   string   `json:"query"`
	Markets []string `json:"markets"`
}

// ParseAudience turns a natural-language audience description into criteria
// and sizes it.
//
//	POST /api/v1/audiences/parse
func (h *Handlers) ParseAudience(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(r)
	if err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, msgParseFailed)
		return
	}

	var req parseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, msgParseFailed)
		return
	}

	result, err := h.builder.Build(r.Context(), req.Query, req.Markets)
	if err != nil {
		if errors.Is(err, queryparser.ErrEmptyQuery) {
			httputil.BadRequest(w, err.Error())
			return
		}
		respondSafeError(w, r, http.StatusInternalServerError, err, msgParseFailed)
		return
	}

	httputil.OK(w, result)
}
