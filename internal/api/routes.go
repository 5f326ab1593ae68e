package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Server-Identity", "audience-estimator-v1")
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks
	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/live", h.health.HandleLiveness)
	r.Get("/health/ready", h.health.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/markets", h.ListMarkets)

		r.Route("/audiences", func(r chi.Router) {
			r.Post("/estimate", recoverAs(msgEstimateFailed, h.EstimateAudience))
			r.Get("/estimate", recoverAs(msgEstimateFailed, h.QuickEstimate))
			r.Post("/parse", recoverAs(msgParseFailed, h.ParseAudience))

			// Saved audiences need a database.
			if h.audiences == nil {
				return
			}
			r.Group(func(r chi.Router) {
				r.Use(h.orgs.RequireOrg)
				r.Get("/", h.ListAudiences)
				r.Post("/", h.CreateAudience)
				r.Post("/refresh", h.RefreshAllAudiences)
				r.Get("/{id}", h.GetAudience)
				r.Delete("/{id}", h.DeleteAudience)
				r.Post("/{id}/refresh", h.RefreshAudience)
			})
		})
	})

	return r
}
