package report

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/windfield"
)

const (
	DefaultTitle    = "ERA5 Analysis Report"
	DefaultSubtitle = "Global winds from the ERA5 dataset"
)

// AssemblerConfig holds configuration for the Assembler.
type AssemblerConfig struct {
	Plotter  Plotter
	Renderer Renderer
	Store    Store
	Logger   zerolog.Logger

	// Sectors is the number of wind rose sectors. Default: 16
	Sectors int

	// BinWidth is the histogram bin width in m/s. Default: stats.DefaultBinWidth
	BinWidth float64

	// Now returns the report date. Default: time.Now
	Now func() time.Time
}

// Assembler turns an analysis outcome into a stored report.
type Assembler struct {
	plotter  Plotter
	renderer Renderer
	store    Store
	logger   zerolog.Logger
	sectors  int
	binWidth float64
	now      func() time.Time
}

// NewAssembler creates an Assembler.
func NewAssembler(cfg AssemblerConfig) *Assembler {
	if cfg.Sectors <= 0 {
		cfg.Sectors = 16
	}
	if cfg.BinWidth <= 0 {
		cfg.BinWidth = stats.DefaultBinWidth
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Assembler{
		plotter:  cfg.Plotter,
		renderer: cfg.Renderer,
		store:    cfg.Store,
		logger:   cfg.Logger,
		sectors:  cfg.Sectors,
		binWidth: cfg.BinWidth,
		now:      cfg.Now,
	}
}

// Input is one report request.
type Input struct {
	Outcome   *analysis.Outcome
	Frequency era5.Frequency
	Turbine   string

	// Name is the stored file name. Default: report_<mode>.pdf
	Name string
}

// Report describes a stored report.
type Report struct {
	Name     string
	Location string
	Size     int
	Stats    *stats.Table
	AEP      []AEPRow
	Charts   []Chart
}

// Assemble computes the statistics, draws the charts, renders the document
// and stores it.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*Report, error) {
	out := in.Outcome
	if out == nil || out.Pair == nil || out.Cell == nil {
		return nil, ErrNoOutcome
	}
	if a.store == nil {
		return nil, ErrStoreNotReady
	}
	name := in.Name
	if name == "" {
		name = fmt.Sprintf("report_%s.pdf", out.Mode)
	}
	if name != path.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	start := time.Now()

	cell := out.Cell
	table, err := stats.DescribeColumns(
		[]string{"WS10m", "WS100m", "WD10m", "WD100m"},
		[][]float64{
			cell.Speeds(windfield.Height10m),
			cell.Speeds(windfield.Height100m),
			cell.Directions(windfield.Height10m),
			cell.Directions(windfield.Height100m),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}

	charts, err := a.drawCharts(ctx, out)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Title:     DefaultTitle,
		Subtitle:  DefaultSubtitle,
		Mode:      out.Mode,
		Frequency: in.Frequency,
		Date:      a.now(),
		Latitude:  cell.Latitude,
		Longitude: cell.Longitude,
		Turbine:   in.Turbine,
		VRef:      out.VRef,
		Stats:     table,
		AEP:       Summary(out.Pair),
		Charts:    charts,
	}
	data, err := a.renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	location, err := a.store.Put(ctx, name, data, a.renderer.ContentType())
	if err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	a.logger.Info().
		Str("name", name).
		Str("location", location).
		Str("mode", out.Mode.String()).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("report stored")

	return &Report{
		Name:     name,
		Location: location,
		Size:     len(data),
		Stats:    table,
		AEP:      doc.AEP,
		Charts:   Charts(out.Mode),
	}, nil
}

// drawCharts renders every chart of the outcome's mode concurrently.
func (a *Assembler) drawCharts(ctx context.Context, out *analysis.Outcome) (map[Chart][]byte, error) {
	cell := out.Cell
	draw := map[Chart]func() ([]byte, error){
		ChartTimeSeries: func() ([]byte, error) {
			title := "Wind speed at 10 and 100 meters"
			if out.Mode == analysis.ModeSpatial {
				title = fmt.Sprintf("Wind speed at lat=%g, lon=%g", cell.Latitude, cell.Longitude)
			}
			return a.plotter.TimeSeries(cell, title)
		},
		ChartWindRose10m: func() ([]byte, error) {
			return a.rose(cell, windfield.Height10m)
		},
		ChartWindRose100m: func() ([]byte, error) {
			return a.rose(cell, windfield.Height100m)
		},
		ChartPowerCurve: func() ([]byte, error) {
			return a.plotter.PowerCurve(out.Pair, "Power output per sample speed")
		},
	}
	if out.Mode == analysis.ModeSpatial {
		draw[ChartSpatialMap] = func() ([]byte, error) {
			if out.Field == nil {
				return nil, fmt.Errorf("%w: spatial analysis without field", ErrMissingChart)
			}
			return a.plotter.SpatialMap(out.Field.Latitudes, out.Field.Longitudes,
				out.Field.MeanSpeed(windfield.Height100m), "Mean wind speed at 100m")
		}
	} else {
		draw[ChartHistogram10m] = func() ([]byte, error) {
			return a.histogram(cell, windfield.Height10m)
		}
		draw[ChartHistogram100m] = func() ([]byte, error) {
			return a.histogram(cell, windfield.Height100m)
		}
	}

	var mu sync.Mutex
	charts := make(map[Chart][]byte, len(draw))

	g, ctx := errgroup.WithContext(ctx)
	for chart, fn := range draw {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := fn()
			if err != nil {
				return fmt.Errorf("chart %s: %w", chart, err)
			}
			mu.Lock()
			charts[chart] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return charts, nil
}

func (a *Assembler) rose(cell *windfield.Series, h windfield.Height) ([]byte, error) {
	rose, err := stats.WindRose(cell.Speeds(h), cell.Directions(h), a.sectors, nil)
	if err != nil {
		return nil, err
	}
	return a.plotter.WindRose(rose, fmt.Sprintf("Wind Rose at the height of %dm", int(h)))
}

func (a *Assembler) histogram(cell *windfield.Series, h windfield.Height) ([]byte, error) {
	hist, err := stats.NewHistogram(cell.Speeds(h), a.binWidth)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Wind speed frequency at %dm", int(h))
	if hist.Fit.Valid() {
		title = fmt.Sprintf("%s (k=%.2f, A=%.2f)", title, hist.Fit.K, hist.Fit.A)
	}
	return a.plotter.Histogram(hist, title)
}
