package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/inventhq/invent/internal/guard"
	"github.com/inventhq/invent/internal/handler"
	"github.com/inventhq/invent/internal/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.metrics.Instrument)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health checks and metrics (no session)
	healthHandler := handler.NewHealthHandler(s.deps.Redis, s.ref, s.deps.Version)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Get("/health", healthHandler.Health)
		r.Get("/ready", healthHandler.Ready)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	})

	views := handler.NewViewHandler(handler.SessionAPI(s.deps.API), s.ref, s.deps.Prefs, s.deps.Mapping, nil)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(s.deps.API))
		r.Use(middleware.Logger)
		r.Use(middleware.RateLimit(s.rateLimiter))
		r.Use(guard.Middleware(middleware.GetProfile))

		r.Route("/api/vm", func(r chi.Router) {
			// Public views; anonymous users see what the API shows them
			r.Get("/landing", views.Landing)
			r.Get("/projects/{id}", views.Project)
			r.Get("/portfolios/{id}/matrices", views.Matrices)
			r.Get("/filters/searched", views.Searched)
			r.Get("/import/template", views.ImportTemplate)
			r.With(middleware.WriteRateLimit(s.rateLimiter)).Post("/import/validate", views.ValidateImport)
			r.Get("/export", views.Export)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireProfile)

				r.Get("/initiatives", views.Initiatives)
				r.Get("/projects/{id}/charts/{kind}", views.Chart)
				r.Post("/projects/{id}/charts/{kind}", views.Chart)
				r.Get("/filters", views.ListFilters)

				// Writes
				r.Group(func(r chi.Router) {
					r.Use(middleware.WriteRateLimit(s.rateLimiter))

					r.Post("/reviews/{id}", views.AddReview)
					r.Put("/favorites/{id}", views.AddFavorite)
					r.Delete("/favorites/{id}", views.RemoveFavorite)

					r.Post("/projects", views.CreateProject)
					r.Post("/projects/{id}/snapshot", views.Snapshot)
					r.Post("/projects/{id}/{action}", views.ProjectAction)

					r.Put("/filters/{name}", views.SaveFilter)
					r.Delete("/filters/{name}", views.DeleteFilter)
				})
			})
		})

		// Organisation management, guarded above
		for _, prefix := range []string{"/{locale}/{organisation}/organisation-management", "/{organisation}/organisation-management"} {
			r.Get(prefix, views.Organisations)
			r.Get(prefix+"/new", views.Organisations)
			r.Get(prefix+"/{id}", views.Organisations)
			r.Get(prefix+"/edit/{id}", views.Organisations)
		}
	})

	return r
}
