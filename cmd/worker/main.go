// Package main provides the entrypoint for the windaep report worker.
//
// By default the worker receives report jobs from Pub/Sub. With -jobs it
// runs a YAML batch on a local worker pool and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/api/handler"
	"github.com/windaep/windaep/internal/app"
	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/telemetry"
	"github.com/windaep/windaep/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "windaep-worker"

	configPath := flag.String("config", os.Getenv("WINDAEP_CONFIG"), "path to a YAML config file")
	jobsPath := flag.String("jobs", "", "run the YAML job batch at this path and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.Logger(serviceName, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting windaep worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	processor, registry, err := newProcessor(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize report processor")
	}

	if *jobsPath != "" {
		if err := runBatch(ctx, cfg, processor, *jobsPath, log); err != nil {
			log.Error().Err(err).Msg("report batch failed")
			os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
		}
		return
	}

	// Cloud Run needs an HTTP port even for a subscriber.
	ops := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Registry:  registry,
	})
	r := chi.NewRouter()
	r.Get("/health", ops.HealthCheck)
	r.Get("/status", ops.SystemStatus)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	sub, err := worker.NewSubscriber(ctx, worker.SubscriberConfig{
		ProjectID:        cfg.Worker.ProjectID,
		SubscriptionName: cfg.Worker.Subscription,
		Processor:        processor,
		Logger:           log,
		Concurrency:      cfg.Worker.Count,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create subscriber")
	}
	defer func() {
		if err := sub.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close subscriber")
		}
	}()

	if err := sub.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("subscriber stopped")
	}

	log.Info().Msg("shutting down worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	log.Info().Msg("worker stopped")
}

func newProcessor(cfg config.Config, log zerolog.Logger) (*worker.Processor, *resilience.Registry, error) {
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		return nil, nil, err
	}
	jobMetrics, err := telemetry.NewJobMetrics()
	if err != nil {
		return nil, nil, err
	}

	registry := resilience.NewRegistry()
	fetcher := app.Retrieval(cfg, registry, providerMetrics, log)

	assembler, err := app.Assembler(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := app.Catalog(cfg, nil, log)
	if err != nil {
		return nil, nil, err
	}

	return worker.NewProcessor(worker.ProcessorConfig{
		Fetcher:    fetcher,
		Curves:     catalog,
		Assembler:  assembler,
		Metrics:    jobMetrics,
		Logger:     log,
		VRef:       cfg.Analysis.VRef,
		Strict:     cfg.Analysis.Strict,
		DataDir:    cfg.Paths.DataDir,
		JobTimeout: cfg.Worker.JobTimeout,
	}), registry, nil
}

func runBatch(ctx context.Context, cfg config.Config, processor *worker.Processor, path string, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	jobs, err := worker.LoadJobs(f)
	if err != nil {
		return err
	}

	pool := worker.NewPool(worker.PoolConfig{
		Processor:   processor,
		Logger:      log,
		Concurrency: cfg.Worker.Count,
	})
	res := pool.Run(ctx, jobs)
	for _, rep := range res.Reports {
		log.Info().Str("report", rep.Location).Msg("report written")
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d report jobs failed", res.Failed, res.Total)
	}
	return nil
}
