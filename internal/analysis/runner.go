package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/windfield"
)

// ErrNilInput is returned when an analysis carries no data.
var ErrNilInput = errors.New("analysis has no wind data")

// RunnerConfig holds configuration for the Runner.
type RunnerConfig struct {
	// Curve is the turbine power curve (required).
	Curve aep.PowerCurve

	// VRef is the IEC class reference wind speed. Default: aep.ClassI
	VRef float64

	// Strict rejects spatial queries outside the field instead of clamping.
	Strict bool

	// Workers bounds the goroutines used by Sweep. Default: GOMAXPROCS
	Workers int

	Logger zerolog.Logger
}

// Runner runs analyses with one power curve and reference wind speed.
type Runner struct {
	curve   aep.PowerCurve
	vref    float64
	spatial aep.SpatialEstimator
	workers int
	logger  zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Curve == nil {
		return nil, errors.New("analysis: power curve is required")
	}
	if cfg.VRef == 0 {
		cfg.VRef = aep.ClassI
	}
	if !(cfg.VRef > 0) {
		return nil, fmt.Errorf("%w: %g", aep.ErrInvalidReference, cfg.VRef)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Runner{
		curve:   cfg.Curve,
		vref:    cfg.VRef,
		spatial: aep.SpatialEstimator{Strict: cfg.Strict},
		workers: cfg.Workers,
		logger:  cfg.Logger,
	}, nil
}

// VRef returns the reference wind speed in use.
func (r *Runner) VRef() float64 { return r.vref }

// Outcome is the result of one analysis. Both heights are always present.
type Outcome struct {
	Mode  Mode
	VRef  float64
	Pair  *aep.HeightPair
	Cell  *windfield.Series
	Field *windfield.Field

	// Selection is set for spatial analyses.
	Selection *windfield.Selection
}

// Run estimates the 10 m and 100 m AEP for a.
func (r *Runner) Run(ctx context.Context, a Analysis) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var out *Outcome
	switch a := a.(type) {
	case TimeSeries:
		if a.Series == nil {
			return nil, ErrNilInput
		}
		pair, err := aep.EstimateSeries(a.Series, r.curve, r.vref)
		if err != nil {
			return nil, err
		}
		out = &Outcome{Mode: ModeTimeSeries, VRef: r.vref, Pair: pair, Cell: a.Series}

	case Spatial:
		if a.Field == nil {
			return nil, ErrNilInput
		}
		res, err := r.spatial.EstimateAt(a.Field, a.Lat, a.Lon, r.curve, r.vref)
		if err != nil {
			return nil, err
		}
		cell, err := a.Field.Cell(res.Selection.Cell)
		if err != nil {
			return nil, err
		}
		sel := res.Selection
		out = &Outcome{Mode: ModeSpatial, VRef: r.vref, Pair: &res.HeightPair, Cell: cell, Field: a.Field, Selection: &sel}
		if sel.Clamped {
			r.logger.Warn().
				Float64("lat", a.Lat).
				Float64("lon", a.Lon).
				Float64("cell_lat", sel.Latitude).
				Float64("cell_lon", sel.Longitude).
				Msg("query outside wind field, using boundary cell")
		}

	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidMode, a)
	}

	if out.Pair.Negative() {
		r.logger.Error().
			Float64("aep10m_wh", out.Pair.At10m.EnergyWh).
			Float64("aep100m_wh", out.Pair.At100m.EnergyWh).
			Msg("negative AEP estimate")
	}
	r.logger.Debug().
		Str("mode", out.Mode.String()).
		Float64("aep10m_mwh", out.Pair.At10m.MWh()).
		Float64("aep100m_mwh", out.Pair.At100m.MWh()).
		Dur("duration", time.Since(start)).
		Msg("analysis complete")
	return out, nil
}

// SweepResult holds the AEP of every grid cell, indexed [lat][lon], in Wh.
type SweepResult struct {
	Latitudes  []float64
	Longitudes []float64
	At10m      [][]float64
	At100m     [][]float64
}

// Best returns the cell with the highest 100 m AEP.
func (s *SweepResult) Best() (windfield.CellIndex, float64) {
	best, bestWh := windfield.CellIndex{}, s.At100m[0][0]
	for i := range s.At100m {
		for j, wh := range s.At100m[i] {
			if wh > bestWh {
				best, bestWh = windfield.CellIndex{Lat: i, Lon: j}, wh
			}
		}
	}
	return best, bestWh
}

// Sweep estimates every cell of field concurrently. Cells are independent,
// so any failure cancels the rest and is returned.
func (r *Runner) Sweep(ctx context.Context, field *windfield.Field) (*SweepResult, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	_, nlat, nlon := field.Shape()

	res := &SweepResult{
		Latitudes:  append([]float64(nil), field.Latitudes...),
		Longitudes: append([]float64(nil), field.Longitudes...),
		At10m:      make([][]float64, nlat),
		At100m:     make([][]float64, nlat),
	}
	for i := range res.At10m {
		res.At10m[i] = make([]float64, nlon)
		res.At100m[i] = make([]float64, nlon)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := 0; i < nlat; i++ {
		for j := 0; j < nlon; j++ {
			c := windfield.CellIndex{Lat: i, Lon: j}
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				series, err := field.Cell(c)
				if err != nil {
					return err
				}
				pair, err := aep.EstimateSeries(series, r.curve, r.vref)
				if err != nil {
					return fmt.Errorf("cell (%g, %g): %w", series.Latitude, series.Longitude, err)
				}
				res.At10m[c.Lat][c.Lon] = pair.At10m.EnergyWh
				res.At100m[c.Lat][c.Lon] = pair.At100m.EnergyWh
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info().Int("cells", nlat*nlon).Msg("grid sweep complete")
	return res, nil
}
