// Package main provides the entrypoint for the windaep API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/api"
	"github.com/windaep/windaep/internal/api/handler"
	"github.com/windaep/windaep/internal/api/middleware"
	"github.com/windaep/windaep/internal/app"
	"github.com/windaep/windaep/internal/auth"
	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/database"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/telemetry"
	"github.com/windaep/windaep/internal/turbine"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "windaep-api"

func main() {
	configPath := flag.String("config", os.Getenv("WINDAEP_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting windaep API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	subsystems := map[string]handler.Pinger{}
	var repo turbine.Repository
	if cfg.Database.Enabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pg := turbine.NewPostgresRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare turbine schema")
		}
		repo = pg
		subsystems["database"] = pool
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	} else {
		log.Info().Msg("database disabled, using in-memory turbine catalog")
	}

	catalog, err := app.Catalog(cfg, repo, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Paths.TurbineFile).Msg("failed to load turbine")
	}

	routerCfg := routerConfig(cfg, log, metrics, catalog, subsystems)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// routerConfig assembles the router settings for cfg. Admin routes are only
// mounted when a JWT secret is configured.
func routerConfig(
	cfg config.Config,
	log zerolog.Logger,
	metrics *middleware.Metrics,
	catalog handler.TurbineCatalog,
	subsystems map[string]handler.Pinger,
) api.RouterConfig {
	rc := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		ServiceName: serviceName,
		Logger:      log,
		Metrics:     metrics,
		Catalog:     catalog,
		VRef:        cfg.Analysis.VRef,
		Strict:      cfg.Analysis.Strict,
		Registry:    resilience.NewRegistry(),
		Subsystems:  subsystems,
		RequireTLS:  !cfg.IsDevelopment(),
	}
	if cfg.JWT.Secret != "" {
		rc.Tokens = auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWT.Secret,
			Issuer:     cfg.JWT.Issuer,
			Audience:   cfg.JWT.Audience,
		})
		log.Info().Msg("admin endpoints enabled")
	} else {
		log.Warn().Msg("JWT_SECRET not set, admin endpoints disabled")
	}
	return rc
}
