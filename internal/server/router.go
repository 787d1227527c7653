// Package server assembles the HTTP routes.
package server

import (
	"net/http"

	"github.com/cloo-solutions/docinsight/internal/api"
	"github.com/cloo-solutions/docinsight/internal/api/handlers"
	"github.com/cloo-solutions/docinsight/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	HealthHandler   *handlers.HealthHandler
	ChunkHandler    *handlers.ChunkHandler
	DocumentHandler *handlers.DocumentHandler
	InsightHandler  *handlers.InsightHandler

	// Body limits; zero selects the middleware defaults, negative disables.
	MaxBodyBytes      int64
	ChunkMaxBodyBytes int64
}

func limitOr(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	health := cfg.HealthHandler
	if health == nil {
		health = handlers.NewHealthHandler(nil)
	}
	r.Get("/health", health.Health)

	r.With(middleware.MaxBodyBytes(limitOr(cfg.ChunkMaxBodyBytes, middleware.DefaultChunkMaxBodyBytes))).
		Post("/chunk", cfg.ChunkHandler.Chunk)

	r.Route("/documents", func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(limitOr(cfg.MaxBodyBytes, middleware.DefaultMaxBodyBytes)))

		r.Post("/uploads", cfg.DocumentHandler.InitUpload)
		r.Post("/{id}/process", cfg.DocumentHandler.Process)

		r.Route("/{id}/insights", func(r chi.Router) {
			r.Post("/", cfg.InsightHandler.Extract)
			r.Get("/", cfg.InsightHandler.List)
			r.Delete("/", cfg.InsightHandler.Invalidate)
		})
	})

	r.Get("/jobs/{id}", cfg.DocumentHandler.GetJob)

	return r
}
