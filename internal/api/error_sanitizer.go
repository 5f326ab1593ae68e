package api

import (
	"net/http"

	"github.com/ignite/audience-estimator/internal/pkg/httputil"
	"github.com/ignite/audience-estimator/internal/pkg/logger"
)

// =============================================================================
// ERROR SANITIZER
// Internal errors (database details, provider replies, stack traces) are never
// returned to API consumers. 5xx responses carry a fixed public message while
// the full error is logged server-side.
// =============================================================================

// Public 5xx messages.
const (
	msgEstimateFailed      = "Failed to estimate audience size"
	msgParseFailed         = "Failed to parse audience query"
	msgLoadAudienceFailed  = "Failed to load audience"
	msgListAudiencesFailed = "Failed to list audiences"
	msgCreateFailed        = "Failed to create audience"
	msgDeleteFailed        = "Failed to delete audience"
	msgRefreshFailed       = "Failed to refresh audience"
	msgRefreshAllFailed    = "Failed to refresh audiences"
)

// respondSafeError logs the internal error and sends a sanitized JSON error
// response to the client.
func respondSafeError(w http.ResponseWriter, r *http.Request, code int, internalErr error, publicMsg string) {
	if internalErr != nil {
		logger.Error(publicMsg,
			"status", code, "method", r.Method, "path", r.URL.Path, "error", internalErr)
	}
	httputil.Error(w, code, publicMsg)
}

// recoverAs converts a handler panic into a sanitized 500 with publicMsg.
func recoverAs(publicMsg string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
				httputil.Error(w, http.StatusInternalServerError, publicMsg)
			}
		}()
		next(w, r)
	}
}
