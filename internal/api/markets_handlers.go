package api

import (
	"math"
	"net/http"

	"github.com/ignite/audience-estimator/internal/estimation"
	"github.com/ignite/audience-estimator/internal/pkg/httputil"
)

type marketInfo struct {
	Market string `json:"market"`
	estimation.MarketProfile
	ReachablePopulation int64 `json:"reachablePopulation"`
	WellCovered         bool  `json:"wellCovered"`
}

// ListMarkets returns the supported markets and their reach constants.
//
//	GET /api/v1/markets
func (h *Handlers) ListMarkets(w http.ResponseWriter, r *http.Request) {
	codes := estimation.SupportedMarkets()
	out := make([]marketInfo, 0, len(codes))
	for _, code := range codes {
		p := estimation.ResolveMarket(code)
		out = append(out, marketInfo{
			Market:              code,
			MarketProfile:       p,
			ReachablePopulation: int64(math.Round(p.ReachablePopulation())),
			WellCovered:         estimation.IsWellCovered(code),
		})
	}
	httputil.OK(w, out)
}
