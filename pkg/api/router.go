package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/gfs/pkg/api/handlers"
	"github.com/marmos91/gfs/pkg/api/middleware"
	"github.com/marmos91/gfs/pkg/metrics"
	"github.com/marmos91/gfs/pkg/registry"
)

// NewRouter creates the chi router with all middleware and routes.
//
// Routes:
//   - GET /health, /health/ready, /health/mounts
//   - GET /api/v1/mounts, /api/v1/mounts/{mount}
//   - GET|HEAD|PUT|PATCH|DELETE /api/v1/mounts/{mount}/entries/*
//   - GET|PATCH /api/v1/mounts/{mount}/meta/*
//   - GET /api/v1/mounts/{mount}/dirs/*
//   - GET /api/v1/mounts/{mount}/glob?pattern=
//   - POST /api/v1/mounts/{mount}/rename
func NewRouter(cfg APIConfig, registry *registry.Registry, httpMetrics metrics.HTTPMetrics) http.Handler {
	cfg.ApplyDefaults()

	r := chi.NewRouter()

	// Order matters: the logger needs the request id, metrics need the
	// matched route, which chi fills in while routing.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics(httpMetrics))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(registry)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/mounts", healthHandler.Mounts)
	})

	mountHandler := handlers.NewMountHandler(registry)
	entryHandler := handlers.NewEntryHandler(registry, cfg.MaxBodySize)

	r.Route("/api/v1/mounts", func(r chi.Router) {
		r.Get("/", mountHandler.List)

		r.Route("/{mount}", func(r chi.Router) {
			r.Get("/", mountHandler.Get)

			r.Get("/entries/*", entryHandler.Get)
			r.Head("/entries/*", entryHandler.Get)
			r.Put("/entries/*", entryHandler.Put)
			r.Patch("/entries/*", entryHandler.Append)
			r.Delete("/entries/*", entryHandler.Delete)

			r.Get("/meta/*", entryHandler.Stat)
			r.Patch("/meta/*", entryHandler.SetMeta)

			r.Get("/dirs", entryHandler.List)
			r.Get("/dirs/*", entryHandler.List)

			r.Get("/glob", entryHandler.Glob)
			r.Post("/rename", entryHandler.Rename)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}
