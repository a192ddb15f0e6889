package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/middleware"
)

// RouterConfig wires handlers and middleware into the HTTP API.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	Health   *HealthHandler
	ROI      *ROIHandler
	Waitlist *WaitlistHandler
	// Leads and APIKeys mount the admin API when both are set.
	Leads   *LeadHandler
	APIKeys *APIKeyHandler

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig
	Security  middleware.SecurityConfig

	CORSAllowedOrigins []string
	MaxBodySize        int64
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	h := New()
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.Security(cfg.Security))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public landing page endpoints
		r.Get("/roi", cfg.ROI.Compute)
		r.Post("/roi", cfg.ROI.Compute)
		r.Get("/roi/defaults", cfg.ROI.Defaults)
		r.With(middleware.RateLimitIP(cfg.RateLimit)).Post("/waitlist", cfg.Waitlist.Submit)

		if cfg.Leads == nil || cfg.APIKeys == nil {
			return
		}

		// Admin API (requires authentication)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth))

			r.Route("/leads", func(r chi.Router) {
				r.Use(middleware.RequireRead())
				r.Get("/", cfg.Leads.List)
				r.Get("/export.csv", cfg.Leads.Export)
				r.Get("/stats", cfg.Leads.Stats)
			})

			r.Route("/api-keys", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/", cfg.APIKeys.ListAPIKeys)
				r.Post("/", cfg.APIKeys.CreateAPIKey)
				r.Delete("/{key_id}", cfg.APIKeys.RevokeAPIKey)
				r.Post("/{key_id}/rotate", cfg.APIKeys.RotateAPIKey)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
