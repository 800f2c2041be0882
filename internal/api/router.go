// Package api assembles the windaep HTTP API.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/api/handler"
	"github.com/windaep/windaep/internal/api/middleware"
	"github.com/windaep/windaep/internal/auth"
	"github.com/windaep/windaep/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger

	// Metrics records HTTP metrics when set.
	Metrics *middleware.Metrics

	// Catalog serves turbine curves (required).
	Catalog handler.TurbineCatalog

	// VRef is the default reference wind speed of estimates.
	VRef float64

	// Strict rejects out-of-grid spatial queries.
	Strict bool

	// Tokens validates admin bearer tokens. Admin routes are not mounted
	// without it.
	Tokens middleware.TokenValidator

	Registry   *resilience.Registry
	Subsystems map[string]handler.Pinger

	RequireTLS bool
}

// NewRouter creates the chi router with all API routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "windaep-api"
	}

	// Order matters: the request id must exist before tracing and logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:    cfg.Version,
		BuildTime:  cfg.BuildTime,
		Registry:   cfg.Registry,
		Subsystems: cfg.Subsystems,
	})
	aepHandler := handler.NewAEPHandler(handler.AEPHandlerConfig{
		Curves: cfg.Catalog,
		VRef:   cfg.VRef,
		Strict: cfg.Strict,
		Logger: cfg.Logger,
	})
	turbineHandler := handler.NewTurbineHandler(cfg.Catalog, cfg.Logger)

	estimateRateLimit := middleware.RateLimitByIP(middleware.EstimateRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/aep", func(r chi.Router) {
			r.Use(estimateRateLimit)
			r.Post("/estimate", aepHandler.Estimate)
			r.Post("/spatial", aepHandler.Spatial)
		})

		r.Route("/turbines", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", turbineHandler.List)
			r.Get("/{turbineId}", turbineHandler.Get)
			r.Get("/{turbineId}/curve", turbineHandler.Curve)
		})

		if cfg.Tokens != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.Auth(cfg.Tokens))
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Use(middleware.RateLimitBySubject(middleware.StandardRateLimit))
				r.Put("/turbines/{turbineId}", turbineHandler.Upsert)
			})
		}
	})

	return r
}
