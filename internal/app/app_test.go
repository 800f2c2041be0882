package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/app"
	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/era5/cds"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/turbine"
)

func TestRetrieval_RegistersProvider(t *testing.T) {
	registry := resilience.NewRegistry()
	svc := app.Retrieval(config.Default(t.TempDir()), registry, nil, zerolog.Nop())

	require.NotNil(t, svc)
	assert.Equal(t, 1, registry.Len())
	require.NotNil(t, registry.Health(cds.ProviderName))
	assert.Equal(t, cds.ProviderName, svc.CacheStats().Provider)
}

func TestStore(t *testing.T) {
	cfg := config.Default(t.TempDir())

	store, err := app.Store(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &report.FileStore{}, store)

	cfg.Report.Store = config.StoreMinIO
	cfg.Report.MinIO.Endpoint = "localhost:9000"
	store, err = app.Store(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &report.MinIOStore{}, store)

	cfg.Report.Store = "ftp"
	_, err = app.Store(cfg, zerolog.Nop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestAssembler(t *testing.T) {
	a, err := app.Assembler(config.Default(t.TempDir()), zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestCatalog_TurbineFile(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "turbine", "data", "reference-2mw.yaml"))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	custom := strings.Replace(string(src), "id: reference-2mw", "id: site-b", 1)
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	cfg := config.Default(dir)
	cfg.Paths.TurbineFile = path

	catalog, err := app.Catalog(cfg, nil, zerolog.Nop())
	require.NoError(t, err)

	curve, err := catalog.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "site-b", curve.ID)

	cfg.Paths.TurbineFile = filepath.Join(dir, "missing.yaml")
	_, err = app.Catalog(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestCatalog_UsesRepository(t *testing.T) {
	extra := turbine.Default()
	extra.ID = "site-a"
	repo := turbine.NewMemoryRepository(extra)

	catalog, err := app.Catalog(config.Default(t.TempDir()), repo, zerolog.Nop())
	require.NoError(t, err)

	curves, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, curves, 2)
}
