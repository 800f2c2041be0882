package aep

import (
	"fmt"

	"github.com/windaep/windaep/internal/windfield"
)

// HeightPair holds the independent estimates at 10 m and 100 m.
type HeightPair struct {
	At10m  *Result
	At100m *Result
}

// At returns the result for h, or nil for an unknown height.
func (p *HeightPair) At(h windfield.Height) *Result {
	switch h {
	case windfield.Height10m:
		return p.At10m
	case windfield.Height100m:
		return p.At100m
	default:
		return nil
	}
}

// EstimatePair runs Estimate on the 10 m and 100 m samples separately.
func EstimatePair(ws10, ws100 []float64, curve PowerCurve, vref float64) (*HeightPair, error) {
	r10, err := Estimate(ws10, curve, vref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", windfield.Height10m, err)
	}
	r100, err := Estimate(ws100, curve, vref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", windfield.Height100m, err)
	}
	return &HeightPair{At10m: r10, At100m: r100}, nil
}

// Negative reports whether either height produced a negative energy, which
// only happens when a sample with a negative bin width slipped through.
func (p *HeightPair) Negative() bool {
	return p.At10m.EnergyWh < 0 || p.At100m.EnergyWh < 0
}
