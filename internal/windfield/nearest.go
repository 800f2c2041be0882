package windfield

import (
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used for cell distances.
const earthRadiusKm = 6371.0

// CellIndex addresses one grid cell.
type CellIndex struct {
	Lat int
	Lon int
}

// Selection is the outcome of a nearest-cell lookup.
type Selection struct {
	Cell CellIndex

	// Latitude and Longitude of the selected cell.
	Latitude  float64
	Longitude float64

	// Clamped is set when the query fell outside the grid and the boundary cell was used.
	Clamped bool

	// DistanceKm is the great-circle distance from the query to the cell.
	DistanceKm float64
}

// NearestOptions controls Nearest.
type NearestOptions struct {
	// Strict makes queries outside the grid fail with ErrOutOfBounds instead of clamping.
	Strict bool
}

// Nearest selects the grid cell closest to (lat, lon). Each axis is searched
// independently and the first of equally close coordinates wins. The query
// longitude is wrapped into the grid's convention (-180..180 or 0..360). By
// default a query outside the grid silently resolves to the boundary cell and
// the selection is marked Clamped.
func (f *Field) Nearest(lat, lon float64, opts NearestOptions) (Selection, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return Selection{}, err
	}
	if len(f.Latitudes) == 0 || len(f.Longitudes) == 0 {
		return Selection{}, ErrEmptyField
	}
	lon = f.wrapLongitude(lon)

	inside := f.Bounds().Contains(lat, lon)
	if !inside && opts.Strict {
		return Selection{}, fmt.Errorf("%w: (%g, %g)", ErrOutOfBounds, lat, lon)
	}

	c := CellIndex{Lat: nearestIndex(f.Latitudes, lat), Lon: nearestIndex(f.Longitudes, lon)}
	cellLat, cellLon := f.Latitudes[c.Lat], f.Longitudes[c.Lon]
	return Selection{
		Cell:       c,
		Latitude:   cellLat,
		Longitude:  cellLon,
		Clamped:    !inside,
		DistanceKm: haversineKm(lat, lon, cellLat, cellLon),
	}, nil
}

func nearestIndex(axis []float64, x float64) int {
	best, bestDist := 0, math.Abs(axis[0]-x)
	for i := 1; i < len(axis); i++ {
		if d := math.Abs(axis[i] - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// wrapLongitude shifts lon by 360 degrees when the grid uses the other
// longitude convention.
func (f *Field) wrapLongitude(lon float64) float64 {
	b := f.Bounds()
	switch {
	case lon < 0 && b.MaxLon > 180:
		return lon + 360
	case lon > 180 && b.MinLon < 0:
		return lon - 360
	}
	return lon
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 360 {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCoords, lat, lon)
	}
	return nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
