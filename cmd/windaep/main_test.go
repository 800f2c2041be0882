package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/windfield"
)

// writeField writes a 2x2 grid with 48 hourly observations and returns its path.
func writeField(t *testing.T, dir string) string {
	t.Helper()
	return writeGrid(t, filepath.Join(dir, "field.json"), []float64{56, 55.75}, []float64{8, 8.25})
}

// writePoint writes a single-cell field like a point retrieval.
func writePoint(t *testing.T, dir string) string {
	t.Helper()
	return writeGrid(t, filepath.Join(dir, "point.json"), []float64{56}, []float64{8})
}

func writeGrid(t *testing.T, path string, lats, lons []float64) string {
	t.Helper()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &windfield.Field{Latitudes: lats, Longitudes: lons}
	for ti := 0; ti < 48; ti++ {
		f.Times = append(f.Times, start.Add(time.Duration(ti)*time.Hour))
		for c := 0; c < len(lats)*len(lons); c++ {
			speed := 2 + float64((ti*5+c*3)%20)*0.6
			f.U10 = append(f.U10, speed)
			f.V10 = append(f.V10, -0.5*speed)
			f.U100 = append(f.U100, 1.3*speed)
			f.V100 = append(f.V100, -0.6*speed)
		}
	}

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	require.NoError(t, windfield.EncodeJSON(out, f))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WINDAEP_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("WINDAEP_OUTPUT_DIR", filepath.Join(dir, "reports"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestEstimate(t *testing.T) {
	dir := setupEnv(t)
	field := writePoint(t, dir)

	out, err := run(t, "estimate", field)
	require.NoError(t, err)

	assert.Contains(t, out, "Time Series analysis, turbine Reference 2 MW, vref 50.0 m/s")
	assert.Contains(t, out, "48 observations")
	assert.Contains(t, out, "10m")
	assert.Contains(t, out, "100m")
	assert.NotContains(t, out, "WARNING")
}

func TestEstimate_RejectsAreaField(t *testing.T) {
	dir := setupEnv(t)

	_, err := run(t, "estimate", writeField(t, dir))
	assert.ErrorIs(t, err, analysis.ErrNotPoint)

	_, err = run(t, "report", "--field", writeField(t, dir), "--lat", "55.8", "--lon", "8.1")
	assert.ErrorIs(t, err, analysis.ErrNotPoint)
}

func TestSpatial(t *testing.T) {
	dir := setupEnv(t)
	field := writeField(t, dir)

	out, err := run(t, "spatial", field, "--lat", "55.95", "--lon", "8.2", "--vref", "42.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Spatial analysis")
	assert.Contains(t, out, "vref 42.5 m/s")
	assert.Contains(t, out, "cell (0, 1)")
	assert.NotContains(t, out, "clamped")

	out, err = run(t, "spatial", field, "--lat", "50", "--lon", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "clamped")

	_, err = run(t, "spatial", field, "--lat", "50", "--lon", "8", "--strict")
	assert.ErrorIs(t, err, windfield.ErrOutOfBounds)
}

func TestSweepAndStats(t *testing.T) {
	dir := setupEnv(t)
	field := writeField(t, dir)

	out, err := run(t, "sweep", field, "-w", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "100 m AEP per cell")
	assert.Contains(t, out, "best cell")

	out, err = run(t, "stats", field, "--lat", "55.75", "--lon", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "cell 55.7500, 8.0000")
	assert.Contains(t, out, "count")
	assert.Contains(t, out, "Weibull fit")
}

func TestLocalReport(t *testing.T) {
	dir := setupEnv(t)
	field := writeField(t, dir)

	out, err := run(t, "report", "--field", field, "-a", "spatial", "--lat", "55.8", "--lon", "8.1", "--name", "site.pdf")
	require.NoError(t, err)

	path := filepath.Join(dir, "reports", "site.pdf")
	assert.Contains(t, out, path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTurbineCurve(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "turbine", "curve", "--from", "3", "--to", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Reference 2 MW (reference-2mw)")
	assert.Contains(t, out, "4.0       66.0")

	_, err = run(t, "turbine", "curve", "--from", "9", "--to", "5")
	assert.Error(t, err)
}

func TestAdminToken(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "admin-token", "--subject", "ops")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "test-secret")
	out, err := run(t, "admin-token", "--subject", "ops")
	require.NoError(t, err)
	assert.Regexp(t, `^ey[\w-]+\.[\w-]+\.[\w-]+\n`, out)
}

func TestInvalidVRef(t *testing.T) {
	dir := setupEnv(t)
	field := writeField(t, dir)

	_, err := run(t, "estimate", field, "--vref", "30")
	assert.Error(t, err)
}
