package report_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/windfield"
)

var reportDate = time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC)

func field(nlat, nlon, nt int) *windfield.Field {
	f := &windfield.Field{}
	for i := 0; i < nlat; i++ {
		f.Latitudes = append(f.Latitudes, 56-0.25*float64(i))
	}
	for j := 0; j < nlon; j++ {
		f.Longitudes = append(f.Longitudes, 8+0.25*float64(j))
	}
	for tt := 0; tt < nt; tt++ {
		f.Times = append(f.Times, time.Date(2020, 1, 1, tt, 0, 0, 0, time.UTC))
	}
	n := nt * nlat * nlon
	f.U10, f.V10, f.U100, f.V100 = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for tt := 0; tt < nt; tt++ {
		for i := 0; i < nlat; i++ {
			for j := 0; j < nlon; j++ {
				k := f.Index(tt, i, j)
				f.U10[k] = float64(2 + (tt*5)%nt)
				f.V10[k] = float64(1 + i)
				f.U100[k] = float64(4 + (tt*5)%nt + j)
				f.V100[k] = -float64(2 + i)
			}
		}
	}
	return f
}

func outcome(t *testing.T, a analysis.Analysis) *analysis.Outcome {
	t.Helper()
	r, err := analysis.NewRunner(analysis.RunnerConfig{
		Curve:  aep.PowerFunc(func(v float64) float64 { return 1000 * v }),
		VRef:   aep.ClassIII,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	out, err := r.Run(context.Background(), a)
	require.NoError(t, err)
	return out
}

func timeSeriesOutcome(t *testing.T) *analysis.Outcome {
	t.Helper()
	cell, err := field(1, 1, 24).Cell(windfield.CellIndex{})
	require.NoError(t, err)
	return outcome(t, analysis.TimeSeries{Series: cell})
}

func spatialOutcome(t *testing.T) *analysis.Outcome {
	t.Helper()
	return outcome(t, analysis.Spatial{Field: field(3, 3, 24), Lat: 55.8, Lon: 8.2})
}

// fakePlotter records which charts were drawn.
type fakePlotter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *fakePlotter) record(name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
	if p.err != nil {
		return nil, p.err
	}
	return []byte("png:" + name), nil
}

func (p *fakePlotter) TimeSeries(*windfield.Series, string) ([]byte, error) {
	return p.record("timeseries")
}

func (p *fakePlotter) WindRose(_ *stats.Rose, title string) ([]byte, error) {
	return p.record(title)
}

func (p *fakePlotter) Histogram(*stats.Histogram, string) ([]byte, error) {
	return p.record("histogram")
}

func (p *fakePlotter) SpatialMap(_, _ []float64, _ [][]float64, _ string) ([]byte, error) {
	return p.record("map")
}

func (p *fakePlotter) PowerCurve(*aep.HeightPair, string) ([]byte, error) {
	return p.record("power")
}

type fakeRenderer struct {
	doc *report.Document
}

func (r *fakeRenderer) Render(doc *report.Document) ([]byte, error) {
	r.doc = doc
	return []byte("%PDF-fake"), nil
}

func (r *fakeRenderer) ContentType() string { return "application/pdf" }

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (s *memStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[name] = data
	return "mem://" + name, nil
}

func newAssembler(p report.Plotter, r report.Renderer, s report.Store) *report.Assembler {
	return report.NewAssembler(report.AssemblerConfig{
		Plotter:  p,
		Renderer: r,
		Store:    s,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return reportDate },
	})
}

func TestAssemble_TimeSeries(t *testing.T) {
	plotter := &fakePlotter{}
	renderer := &fakeRenderer{}
	store := &memStore{}
	out := timeSeriesOutcome(t)

	rep, err := newAssembler(plotter, renderer, store).Assemble(context.Background(), report.Input{
		Outcome:   out,
		Frequency: era5.FrequencyHourly,
		Turbine:   "reference-2mw",
	})
	require.NoError(t, err)

	assert.Equal(t, "report_time_series.pdf", rep.Name)
	assert.Equal(t, "mem://report_time_series.pdf", rep.Location)
	assert.Equal(t, len("%PDF-fake"), rep.Size)
	assert.Equal(t, report.Charts(analysis.ModeTimeSeries), rep.Charts)
	assert.Contains(t, store.objects, "report_time_series.pdf")

	doc := renderer.doc
	require.NotNil(t, doc)
	assert.Equal(t, report.DefaultTitle, doc.Title)
	assert.Equal(t, report.DefaultSubtitle, doc.Subtitle)
	assert.Equal(t, reportDate, doc.Date)
	assert.Equal(t, era5.FrequencyHourly, doc.Frequency)
	assert.Equal(t, aep.ClassIII, doc.VRef)
	for _, c := range report.Charts(analysis.ModeTimeSeries) {
		_, ok := doc.Chart(c)
		assert.True(t, ok, "chart %s", c)
	}
	_, ok := doc.Chart(report.ChartSpatialMap)
	assert.False(t, ok)

	require.Len(t, doc.AEP, 2)
	assert.Equal(t, windfield.Height10m, doc.AEP[0].Height)
	assert.InDelta(t, out.Pair.At10m.MWh(), doc.AEP[0].Signed, 1e-12)
	assert.InDelta(t, out.Pair.At100m.MWh(), doc.AEP[1].Signed, 1e-12)

	require.NotNil(t, doc.Stats)
	assert.Equal(t, []string{"WS10m", "WS100m", "WD10m", "WD100m"}, doc.Stats.Columns)
	assert.Equal(t, 24, doc.Stats.Rows["WS10m"].Count)

	assert.ElementsMatch(t, []string{
		"timeseries", "power", "histogram", "histogram",
		"Wind Rose at the height of 10m", "Wind Rose at the height of 100m",
	}, plotter.calls)
}

func TestAssemble_Spatial(t *testing.T) {
	plotter := &fakePlotter{}
	renderer := &fakeRenderer{}
	store := &memStore{}

	rep, err := newAssembler(plotter, renderer, store).Assemble(context.Background(), report.Input{
		Outcome:   spatialOutcome(t),
		Frequency: era5.FrequencyMonthly,
		Name:      "job-42.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "job-42.pdf", rep.Name)
	assert.Contains(t, plotter.calls, "map")
	assert.NotContains(t, plotter.calls, "histogram")
	assert.Equal(t, 55.75, renderer.doc.Latitude)
	assert.Equal(t, 8.25, renderer.doc.Longitude)
}

func TestAssemble_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newAssembler(&fakePlotter{}, &fakeRenderer{}, &memStore{}).Assemble(ctx, report.Input{})
	assert.ErrorIs(t, err, report.ErrNoOutcome)

	_, err = newAssembler(&fakePlotter{}, &fakeRenderer{}, nil).Assemble(ctx, report.Input{Outcome: timeSeriesOutcome(t)})
	assert.ErrorIs(t, err, report.ErrStoreNotReady)

	_, err = newAssembler(&fakePlotter{}, &fakeRenderer{}, &memStore{}).Assemble(ctx, report.Input{
		Outcome: timeSeriesOutcome(t),
		Name:    "../escape.pdf",
	})
	assert.ErrorIs(t, err, report.ErrInvalidName)

	plotErr := errors.New("no fonts")
	_, err = newAssembler(&fakePlotter{err: plotErr}, &fakeRenderer{}, &memStore{}).Assemble(ctx, report.Input{
		Outcome: timeSeriesOutcome(t),
	})
	assert.ErrorIs(t, err, plotErr)

	storeErr := errors.New("disk full")
	_, err = newAssembler(&fakePlotter{}, &fakeRenderer{}, &memStore{err: storeErr}).Assemble(ctx, report.Input{
		Outcome: timeSeriesOutcome(t),
	})
	assert.ErrorIs(t, err, storeErr)
}

func TestSummary_KeepsSignAndCorrects(t *testing.T) {
	pair := &aep.HeightPair{
		At10m:  &aep.Result{EnergyWh: -2.5e6},
		At100m: &aep.Result{EnergyWh: 4e6},
	}
	rows := report.Summary(pair)

	require.Len(t, rows, 2)
	assert.Equal(t, -2.5, rows[0].Signed)
	assert.Equal(t, 2.5, rows[0].Corrected)
	assert.Equal(t, 4.0, rows[1].Signed)
	assert.Equal(t, 4.0, rows[1].Corrected)
}

func TestPDFRenderer_MissingChart(t *testing.T) {
	_, err := report.NewPDFRenderer("", "").Render(&report.Document{Mode: analysis.ModeTimeSeries})
	assert.ErrorIs(t, err, report.ErrMissingChart)

	_, err = report.NewPDFRenderer("", "").Render(&report.Document{})
	assert.ErrorIs(t, err, analysis.ErrInvalidMode)
}

func TestEndToEnd_RendersPDF(t *testing.T) {
	dir := t.TempDir()
	store, err := report.NewFileStore(dir)
	require.NoError(t, err)

	asm := newAssembler(report.NewChartPlotter(), report.NewPDFRenderer("Wind Energy", ""), store)

	for _, out := range []*analysis.Outcome{timeSeriesOutcome(t), spatialOutcome(t)} {
		rep, err := asm.Assemble(context.Background(), report.Input{Outcome: out, Frequency: era5.FrequencyHourly})
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, rep.Name), rep.Location)
		data, err := os.ReadFile(rep.Location)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
		assert.Equal(t, rep.Size, len(data))
	}
}

func TestChartPlotter_PNG(t *testing.T) {
	p := report.NewChartPlotter()
	out := timeSeriesOutcome(t)

	img, err := p.TimeSeries(out.Cell, "series")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	rose, err := stats.WindRose(out.Cell.WS10, out.Cell.WD10, 8, nil)
	require.NoError(t, err)
	img, err = p.WindRose(rose, "rose")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	_, err = p.SpatialMap([]float64{1}, []float64{1}, [][]float64{{1}}, "tiny")
	assert.Error(t, err)
	_, err = p.TimeSeries(&windfield.Series{}, "empty")
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	_, err := report.NewFileStore("reports")
	assert.Error(t, err)

	dir := filepath.Join(t.TempDir(), "nested")
	store, err := report.NewFileStore(dir)
	require.NoError(t, err)

	loc, err := store.Put(context.Background(), "a.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), loc)

	_, err = store.Put(context.Background(), "sub/a.pdf", []byte("x"), "")
	assert.ErrorIs(t, err, report.ErrInvalidName)
}

type fakeObjects struct {
	mu      sync.Mutex
	buckets map[string]bool
	makes   int
	puts    map[string][]byte
	types   map[string]string
}

func (f *fakeObjects) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket], nil
}

func (f *fakeObjects) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.makes++
	f.buckets[bucket] = true
	return nil
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts[bucket+"/"+object] = data
	f.types[bucket+"/"+object] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestMinIOStore(t *testing.T) {
	objects := &fakeObjects{buckets: map[string]bool{}, puts: map[string][]byte{}, types: map[string]string{}}
	store, err := report.NewMinIOStoreWithClient(objects, report.MinIOConfig{Bucket: "reports", Prefix: "era5/", Logger: zerolog.Nop()})
	require.NoError(t, err)

	ctx := context.Background()
	loc, err := store.Put(ctx, "r1.pdf", []byte("one"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/era5/r1.pdf", loc)

	_, err = store.Put(ctx, "r2.pdf", []byte("two"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, 1, objects.makes)
	assert.Equal(t, []byte("one"), objects.puts["reports/era5/r1.pdf"])
	assert.Equal(t, "application/pdf", objects.types["reports/era5/r2.pdf"])

	_, err = report.NewMinIOStoreWithClient(objects, report.MinIOConfig{})
	assert.Error(t, err)

	_, err = report.NewMinIOStore(report.MinIOConfig{Bucket: "reports"})
	assert.Error(t, err)
}
