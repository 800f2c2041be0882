package aep

import (
	"fmt"

	"github.com/windaep/windaep/internal/windfield"
)

// SpatialResult is the estimate at the grid cell nearest a query point.
type SpatialResult struct {
	HeightPair

	// QueryLat and QueryLon are the requested coordinates.
	QueryLat float64
	QueryLon float64

	// Selection describes the cell the estimate was computed for.
	Selection windfield.Selection
}

// SpatialEstimator runs Estimate on the nearest cell of a wind field.
// The zero value clamps out-of-grid queries to the boundary cell.
type SpatialEstimator struct {
	// Strict rejects out-of-grid queries with windfield.ErrOutOfBounds.
	Strict bool
}

// EstimateAt selects the cell nearest (lat, lon) without interpolating, sorts
// its 10 m and 100 m speed series and estimates each height independently.
// The result matches Estimate on the same cell series.
func (e SpatialEstimator) EstimateAt(field *windfield.Field, lat, lon float64, curve PowerCurve, vref float64) (*SpatialResult, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	sel, err := field.Nearest(lat, lon, windfield.NearestOptions{Strict: e.Strict})
	if err != nil {
		return nil, err
	}
	series, err := field.Cell(sel.Cell)
	if err != nil {
		return nil, err
	}

	pair, err := EstimateSeries(series, curve, vref)
	if err != nil {
		return nil, fmt.Errorf("cell (%g, %g): %w", sel.Latitude, sel.Longitude, err)
	}

	return &SpatialResult{
		HeightPair: *pair,
		QueryLat:   lat,
		QueryLon:   lon,
		Selection:  sel,
	}, nil
}

// EstimateAt is SpatialEstimator{}.EstimateAt.
func EstimateAt(field *windfield.Field, lat, lon float64, curve PowerCurve, vref float64) (*SpatialResult, error) {
	return SpatialEstimator{}.EstimateAt(field, lat, lon, curve, vref)
}

// EstimateSeries sorts the speeds of a time-ordered series and estimates both heights.
func EstimateSeries(series *windfield.Series, curve PowerCurve, vref float64) (*HeightPair, error) {
	return EstimatePair(
		SortedSample(series.Speeds(windfield.Height10m)),
		SortedSample(series.Speeds(windfield.Height100m)),
		curve, vref,
	)
}
