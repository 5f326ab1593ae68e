package api

import (
	"net/http"

	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/httputil"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// EstimateAudience sizes an audience across the requested markets.
//
//	POST /api/v1/audiences/estimate
func (h *Handlers) EstimateAudience(w http.ResponseWriter, r *http.Request) {
	body, err := httputil.ReadBody(r)
	if err != nil {
		respondSafeError(w, r, http.StatusInternalServerError, err, msgEstimateFailed)
		return
	}

	attributes, markets, err := estimation.DecodeRequest(body)
	if err != nil {
		if estimation.IsValidationError(err) {
			httputil.BadRequest(w, err.Error())
			return
		}
		respondSafeError(w, r, http.StatusInternalServerError, err, msgEstimateFailed)
		return
	}

	result := h.engine.Estimate(attributes, markets)
	logger.Debug("audience estimated",
		"markets", len(markets), "attributes", len(attributes), "total", result.TotalSize)
	httputil.OK(w, result)
}

// QuickEstimate returns a summed estimate built from query parameters.
//
//	GET /api/v1/audiences/estimate?markets=US,UK&age=25-34&income=50000&location=urban
func (h *Handlers) QuickEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	markets := estimation.ParseMarketList(q.Get("markets"))
	attributes := estimation.QuickAttributes(q.Get("age"), q.Get("income"), q.Get("location"))

	httputil.OK(w, h.engine.QuickEstimate(attributes, markets))
}
