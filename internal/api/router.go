package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and configures the HTTP router. limiter may be nil to
// disable rate limiting.
func NewRouter(a IntakeAgent, verifier KeyVerifier, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	intakeHandler := NewIntakeHandler(a)
	workItemHandler := NewWorkItemHandler(a)
	exportHandler := NewExportHandler(a)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())

		// Everything below is tenant-scoped and key-gated.
		r.Group(func(r chi.Router) {
			r.Use(tenantAuth(verifier))
			r.Use(rateLimit(limiter))

			r.Post("/intake", intakeHandler.Create)

			r.Route("/workitems", func(r chi.Router) {
				r.Get("/", workItemHandler.List)
				r.Get("/{id}", workItemHandler.Get)
				r.Post("/{id}/status", workItemHandler.UpdateStatus)
				r.Post("/{id}/owner", workItemHandler.AssignOwner)
				r.Get("/{id}/audit", workItemHandler.Audit)
			})

			r.Get("/export/workitems.csv", exportHandler.WorkItemsCSV)
		})
	})

	return r
}
