// Package app wires configured components shared by the worker and the CLI.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/era5/cds"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/turbine"
)

// Retrieval builds the cached CDS retrieval service. The CDS client is
// registered in registry under cds.ProviderName. A nil metrics interface
// disables retrieval metrics.
func Retrieval(cfg config.Config, registry *resilience.Registry, metrics era5.Recorder, log zerolog.Logger) *era5.Service {
	httpCfg := resilience.DefaultClientConfig(cds.ProviderName)
	httpCfg.Registry = registry

	client := cds.NewClient(cds.ClientConfig{
		APIKey:       cfg.CDS.Key,
		BaseURL:      cfg.CDS.URL,
		Format:       cfg.CDS.Format,
		PollInterval: cfg.CDS.PollInterval,
		MaxWait:      cfg.CDS.MaxWait,
		HTTPClient:   resilience.NewClient(httpCfg),
		Logger:       log,
	})

	return era5.NewService(era5.ServiceConfig{
		Provider: client,
		Logger:   log,
		Registry: registry,
		Metrics:  metrics,
	})
}

// Store builds the configured report store.
func Store(cfg config.Config, log zerolog.Logger) (report.Store, error) {
	switch cfg.Report.Store {
	case config.StoreMinIO:
		m := cfg.Report.MinIO
		return report.NewMinIOStore(report.MinIOConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
			Region:    m.Region,
			Prefix:    m.Prefix,
			Logger:    log,
		})
	case config.StoreFile:
		return report.NewFileStore(cfg.Paths.OutputDir)
	default:
		return nil, fmt.Errorf("%w: unknown report store %q", config.ErrInvalidConfig, cfg.Report.Store)
	}
}

// Assembler builds the report assembler over the configured store.
func Assembler(cfg config.Config, log zerolog.Logger) (*report.Assembler, error) {
	store, err := Store(cfg, log)
	if err != nil {
		return nil, err
	}
	return report.NewAssembler(report.AssemblerConfig{
		Plotter:  report.NewChartPlotter(),
		Renderer: report.NewPDFRenderer(cfg.Report.Organisation, cfg.Paths.Logo()),
		Store:    store,
		Logger:   log,
	}), nil
}

// Catalog builds a turbine catalog whose fallback is the configured turbine
// file, or the embedded default. A nil repo means an in-memory one holding
// the fallback.
func Catalog(cfg config.Config, repo turbine.Repository, log zerolog.Logger) (*turbine.Catalog, error) {
	fallback := turbine.Default()
	if cfg.Paths.TurbineFile != "" {
		c, err := turbine.LoadFile(cfg.Paths.TurbineFile)
		if err != nil {
			return nil, err
		}
		fallback = c
	}
	if repo == nil {
		repo = turbine.NewMemoryRepository(fallback)
	}
	return turbine.NewCatalog(turbine.CatalogConfig{
		Repository: repo,
		Logger:     log,
		Fallback:   fallback,
	}), nil
}
