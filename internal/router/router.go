package router

import (
	"net/http"

	"axie-market-cache/internal/handler"
	"axie-market-cache/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	UnitHandler    *handler.UnitHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	AllowedOrigins []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// guarded wraps write routes with the API-key middleware.
	guarded := func(r chi.Router) chi.Router {
		if cfg.AuthMiddleware != nil {
			return r.With(cfg.AuthMiddleware)
		}
		return r
	}

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		// Unit endpoints; reads are public, syncs are guarded
		if cfg.UnitHandler != nil {
			r.Route("/units", func(r chi.Router) {
				r.Get("/", cfg.UnitHandler.ListAll)
				r.Get("/latest", cfg.UnitHandler.ListLatest)
				r.Get("/sold", cfg.UnitHandler.ListSold)
				r.Get("/{id}", cfg.UnitHandler.GetDetail)

				guarded(r).Post("/latest/sync", cfg.UnitHandler.SyncLatest)
				guarded(r).Post("/sold/sync", cfg.UnitHandler.SyncSold)
			})
		}

		// Admin endpoints
		if cfg.AdminHandler != nil {
			r.Group(func(r chi.Router) {
				if cfg.AuthMiddleware != nil {
					r.Use(cfg.AuthMiddleware)
				}
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
				r.Post("/admin/sync", cfg.AdminHandler.RunSync)
			})
		}
	})

	return r
}
