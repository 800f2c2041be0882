// Package windfield holds gridded reanalysis wind data: u/v wind components at
// 10 m and 100 m on a (time, latitude, longitude) grid, and the speed and
// direction series derived from them.
package windfield

import (
	"errors"
	"fmt"
	"time"
)

// Wind field errors.
var (
	ErrEmptyField     = errors.New("wind field has no cells")
	ErrShapeMismatch  = errors.New("wind field component shape mismatch")
	ErrOutOfBounds    = errors.New("coordinates outside the wind field")
	ErrInvalidCoords  = errors.New("invalid coordinates")
	ErrCellOutOfRange = errors.New("cell index out of range")
)

// Height is a measurement height in metres.
type Height int

// Heights carried by every field.
const (
	Height10m  Height = 10
	Height100m Height = 100
)

func (h Height) String() string {
	return fmt.Sprintf("%dm", int(h))
}

// Field is a gridded wind dataset. Components are stored flat in
// [time][latitude][longitude] order; see Index.
type Field struct {
	Times      []time.Time
	Latitudes  []float64
	Longitudes []float64

	U10  []float64
	V10  []float64
	U100 []float64
	V100 []float64
}

// Shape returns the number of times, latitudes and longitudes.
func (f *Field) Shape() (nt, nlat, nlon int) {
	return len(f.Times), len(f.Latitudes), len(f.Longitudes)
}

// Index returns the flat offset of (t, lat, lon).
func (f *Field) Index(t, lat, lon int) int {
	return (t*len(f.Latitudes)+lat)*len(f.Longitudes) + lon
}

// Validate checks that the field is non-empty and every component matches the grid.
func (f *Field) Validate() error {
	nt, nlat, nlon := f.Shape()
	if nt == 0 || nlat == 0 || nlon == 0 {
		return ErrEmptyField
	}
	want := nt * nlat * nlon
	for name, c := range map[string][]float64{"u10": f.U10, "v10": f.V10, "u100": f.U100, "v100": f.V100} {
		if len(c) != want {
			return fmt.Errorf("%w: %s has %d values, grid needs %d", ErrShapeMismatch, name, len(c), want)
		}
	}
	return nil
}

// Bounds returns the coordinate extent of the grid.
func (f *Field) Bounds() BoundingBox {
	b := BoundingBox{
		MinLat: f.Latitudes[0], MaxLat: f.Latitudes[0],
		MinLon: f.Longitudes[0], MaxLon: f.Longitudes[0],
	}
	for _, lat := range f.Latitudes[1:] {
		b.MinLat = min(b.MinLat, lat)
		b.MaxLat = max(b.MaxLat, lat)
	}
	for _, lon := range f.Longitudes[1:] {
		b.MinLon = min(b.MinLon, lon)
		b.MaxLon = max(b.MaxLon, lon)
	}
	return b
}

// components returns the u and v slices for h.
func (f *Field) components(h Height) (u, v []float64) {
	if h == Height10m {
		return f.U10, f.V10
	}
	return f.U100, f.V100
}

// BoundingBox is a latitude/longitude extent.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks if a point is within the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lon >= b.MinLon && lon <= b.MaxLon
}

// Center returns the center point of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Series is the derived wind at one grid cell, in time order.
type Series struct {
	Latitude  float64
	Longitude float64
	Times     []time.Time

	WS10  []float64 // m/s
	WS100 []float64 // m/s
	WD10  []float64 // degrees, meteorological (direction the wind blows from)
	WD100 []float64 // degrees
}

// Speeds returns the wind speed series at h.
func (s *Series) Speeds(h Height) []float64 {
	if h == Height10m {
		return s.WS10
	}
	return s.WS100
}

// Directions returns the wind direction series at h.
func (s *Series) Directions(h Height) []float64 {
	if h == Height10m {
		return s.WD10
	}
	return s.WD100
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.WS10)
}
