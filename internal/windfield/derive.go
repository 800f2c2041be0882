package windfield

import (
	"fmt"
	"math"
	"time"
)

// Speed returns the wind speed of the (u, v) components.
func Speed(u, v float64) float64 {
	return math.Hypot(u, v)
}

// Direction returns the meteorological wind direction in [0, 360) degrees,
// the direction the wind blows from, for the (u, v) components. Calm
// observations report 0.
func Direction(u, v float64) float64 {
	ws := Speed(u, v)
	if ws == 0 {
		return 0
	}
	deg := math.Atan2(v/ws, u/ws) * 180 / math.Pi
	// atan2 is in (-180, 180], so 270-deg is always positive.
	return math.Mod(270-deg, 360)
}

// Cell extracts the derived wind series at grid cell c.
func (f *Field) Cell(c CellIndex) (*Series, error) {
	nt, nlat, nlon := f.Shape()
	if c.Lat < 0 || c.Lat >= nlat || c.Lon < 0 || c.Lon >= nlon {
		return nil, fmt.Errorf("%w: (%d, %d) in %dx%d grid", ErrCellOutOfRange, c.Lat, c.Lon, nlat, nlon)
	}

	s := &Series{
		Latitude:  f.Latitudes[c.Lat],
		Longitude: f.Longitudes[c.Lon],
		Times:     append([]time.Time(nil), f.Times...),
		WS10:      make([]float64, nt),
		WS100:     make([]float64, nt),
		WD10:      make([]float64, nt),
		WD100:     make([]float64, nt),
	}
	for t := 0; t < nt; t++ {
		i := f.Index(t, c.Lat, c.Lon)
		s.WS10[t] = Speed(f.U10[i], f.V10[i])
		s.WD10[t] = Direction(f.U10[i], f.V10[i])
		s.WS100[t] = Speed(f.U100[i], f.V100[i])
		s.WD100[t] = Direction(f.U100[i], f.V100[i])
	}
	return s, nil
}

// MeanSpeed returns the time-mean wind speed at h for every cell, indexed [lat][lon].
func (f *Field) MeanSpeed(h Height) [][]float64 {
	nt, nlat, nlon := f.Shape()
	u, v := f.components(h)

	out := make([][]float64, nlat)
	for i := range out {
		out[i] = make([]float64, nlon)
		for j := range out[i] {
			var sum float64
			for t := 0; t < nt; t++ {
				k := f.Index(t, i, j)
				sum += Speed(u[k], v[k])
			}
			if nt > 0 {
				out[i][j] = sum / float64(nt)
			}
		}
	}
	return out
}

// Speeds returns every speed at h across the whole grid, in storage order.
func (f *Field) Speeds(h Height) []float64 {
	u, v := f.components(h)
	out := make([]float64, len(u))
	for i := range u {
		out[i] = Speed(u[i], v[i])
	}
	return out
}
