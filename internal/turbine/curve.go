// Package turbine models wind turbine performance: tabulated power and thrust
// coefficient curves, their YAML description, and a catalog of known turbines.
package turbine

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Turbine errors.
var (
	ErrNotFound     = errors.New("turbine not found")
	ErrInvalidCurve = errors.New("invalid turbine curve")
)

// Model maps wind speeds to power and thrust coefficient, one value per speed.
type Model interface {
	Power(speeds []float64) []float64
	ThrustCoefficient(speeds []float64) []float64
}

// Curve is a tabulated turbine performance curve. Between table speeds values
// are interpolated linearly; outside [cut-in, cut-out] the turbine is parked
// and both power and Ct are zero.
type Curve struct {
	ID             string
	Name           string
	Manufacturer   string
	RatedPowerW    float64
	HubHeightM     float64
	RotorDiameterM float64

	Speeds []float64 // m/s, strictly ascending
	PowerW []float64 // W
	Ct     []float64 // thrust coefficient

	UpdatedAt time.Time
}

// Validate checks the table is usable for interpolation.
func (c *Curve) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCurve)
	}
	if len(c.Speeds) < 2 {
		return fmt.Errorf("%w: %s needs at least two points", ErrInvalidCurve, c.ID)
	}
	if len(c.PowerW) != len(c.Speeds) || len(c.Ct) != len(c.Speeds) {
		return fmt.Errorf("%w: %s has %d speeds, %d power and %d ct values",
			ErrInvalidCurve, c.ID, len(c.Speeds), len(c.PowerW), len(c.Ct))
	}
	for i := 1; i < len(c.Speeds); i++ {
		if c.Speeds[i] <= c.Speeds[i-1] {
			return fmt.Errorf("%w: %s speeds not strictly ascending at %d", ErrInvalidCurve, c.ID, i)
		}
	}
	for i := range c.PowerW {
		if c.PowerW[i] < 0 || c.Ct[i] < 0 {
			return fmt.Errorf("%w: %s has a negative value at %g m/s", ErrInvalidCurve, c.ID, c.Speeds[i])
		}
	}
	return nil
}

// CutIn returns the lowest tabulated speed.
func (c *Curve) CutIn() float64 { return c.Speeds[0] }

// CutOut returns the highest tabulated speed.
func (c *Curve) CutOut() float64 { return c.Speeds[len(c.Speeds)-1] }

// Power returns the electrical power in W at each speed.
func (c *Curve) Power(speeds []float64) []float64 {
	return c.interpolate(c.PowerW, speeds)
}

// ThrustCoefficient returns Ct at each speed.
func (c *Curve) ThrustCoefficient(speeds []float64) []float64 {
	return c.interpolate(c.Ct, speeds)
}

func (c *Curve) interpolate(table, speeds []float64) []float64 {
	out := make([]float64, len(speeds))
	last := len(c.Speeds) - 1
	for k, v := range speeds {
		if !(v >= c.Speeds[0] && v <= c.Speeds[last]) {
			continue
		}
		i := sort.SearchFloat64s(c.Speeds, v)
		if c.Speeds[i] == v {
			out[k] = table[i]
			continue
		}
		x0, x1 := c.Speeds[i-1], c.Speeds[i]
		out[k] = table[i-1] + (table[i]-table[i-1])*(v-x0)/(x1-x0)
	}
	return out
}

// Sample evaluates the curve at integer speeds from..to inclusive.
func (c *Curve) Sample(from, to int) (speeds, power, ct []float64) {
	for v := from; v <= to; v++ {
		speeds = append(speeds, float64(v))
	}
	return speeds, c.Power(speeds), c.ThrustCoefficient(speeds)
}

// Clone returns a deep copy of c.
func (c *Curve) Clone() *Curve {
	out := *c
	out.Speeds = append([]float64(nil), c.Speeds...)
	out.PowerW = append([]float64(nil), c.PowerW...)
	out.Ct = append([]float64(nil), c.Ct...)
	return &out
}
