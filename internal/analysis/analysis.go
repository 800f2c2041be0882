// Package analysis runs AEP estimates for the two analysis modes: a time
// series at one point, or a query into a spatial wind field.
package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/windaep/windaep/internal/windfield"
)

// Analysis errors.
var (
	// ErrInvalidMode is returned by ParseMode.
	ErrInvalidMode = errors.New("invalid analysis mode")

	// ErrNotPoint is returned for a time series over a field with more than one cell.
	ErrNotPoint = errors.New("time series analysis needs a single-cell field")
)

// Mode names the analysis variant.
type Mode int

const (
	ModeTimeSeries Mode = iota + 1
	ModeSpatial
)

func (m Mode) String() string {
	switch m {
	case ModeTimeSeries:
		return "time_series"
	case ModeSpatial:
		return "spatial"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Title returns the human form used in reports, e.g. "Time Series".
func (m Mode) Title() string {
	switch m {
	case ModeTimeSeries:
		return "Time Series"
	case ModeSpatial:
		return "Spatial"
	default:
		return m.String()
	}
}

// ParseMode parses "time_series" or "spatial".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time_series", "timeseries", "time-series":
		return ModeTimeSeries, nil
	case "spatial":
		return ModeSpatial, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Analysis is one of TimeSeries or Spatial.
type Analysis interface {
	Mode() Mode
	sealed()
}

// TimeSeries analyses the wind series observed at a single point.
type TimeSeries struct {
	Series *windfield.Series
}

// Mode implements Analysis.
func (TimeSeries) Mode() Mode { return ModeTimeSeries }
func (TimeSeries) sealed()    {}

// Spatial analyses the grid cell of Field nearest (Lat, Lon).
type Spatial struct {
	Field *windfield.Field
	Lat   float64
	Lon   float64
}

// Mode implements Analysis.
func (Spatial) Mode() Mode { return ModeSpatial }
func (Spatial) sealed()    {}

// FromField builds the analysis for mode over a retrieved field. A time
// series needs a point retrieval; area fields go through Spatial.
func FromField(mode Mode, field *windfield.Field, lat, lon float64) (Analysis, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeTimeSeries:
		if nlat, nlon := len(field.Latitudes), len(field.Longitudes); nlat*nlon != 1 {
			return nil, fmt.Errorf("%w: got %d x %d cells", ErrNotPoint, nlat, nlon)
		}
		series, err := field.Cell(windfield.CellIndex{})
		if err != nil {
			return nil, err
		}
		return TimeSeries{Series: series}, nil
	case ModeSpatial:
		return Spatial{Field: field, Lat: lat, Lon: lon}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}
