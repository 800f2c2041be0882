package stats

import (
	"fmt"
	"math"
)

// DefaultSpeedEdges are the lower edges of the wind rose speed classes, m/s.
var DefaultSpeedEdges = []float64{0, 2, 4, 6, 8, 10, 12}

// Rose is a wind rose frequency table. Frequency[s][b] is the percentage of
// observations blowing from sector s with a speed in class b.
type Rose struct {
	Sectors    int
	SpeedEdges []float64
	Frequency  [][]float64
	Calm       float64 // percentage of observations below SpeedEdges[0]
}

// SectorWidth returns the angular width of a sector in degrees.
func (r *Rose) SectorWidth() float64 {
	return 360 / float64(r.Sectors)
}

// SectorTotal returns the total percentage for sector s.
func (r *Rose) SectorTotal(s int) float64 {
	var sum float64
	for _, f := range r.Frequency[s] {
		sum += f
	}
	return sum
}

// WindRose bins (speed, direction) pairs into sectors centred on north and
// the speed classes starting at edges. The last class is open-ended.
func WindRose(speeds, directions []float64, sectors int, edges []float64) (*Rose, error) {
	if len(speeds) == 0 {
		return nil, ErrNoData
	}
	if len(speeds) != len(directions) {
		return nil, fmt.Errorf("stats: %d speeds but %d directions", len(speeds), len(directions))
	}
	if sectors <= 0 {
		sectors = 16
	}
	if len(edges) == 0 {
		edges = DefaultSpeedEdges
	}

	r := &Rose{
		Sectors:    sectors,
		SpeedEdges: append([]float64(nil), edges...),
		Frequency:  make([][]float64, sectors),
	}
	for s := range r.Frequency {
		r.Frequency[s] = make([]float64, len(edges))
	}

	width := r.SectorWidth()
	share := 100 / float64(len(speeds))
	for i, ws := range speeds {
		if ws < edges[0] {
			r.Calm += share
			continue
		}
		sector := int(math.Floor(math.Mod(directions[i]+width/2, 360)/width)) % sectors
		b := len(edges) - 1
		for b > 0 && ws < edges[b] {
			b--
		}
		r.Frequency[sector][b] += share
	}
	return r, nil
}
