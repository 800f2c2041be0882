// Package aep estimates the annual energy production of a wind turbine from a
// sample of wind speeds.
//
// The sample is turned into per-speed bin probabilities under a Rayleigh wind
// speed distribution whose mean is fixed by the IEC reference wind speed, the
// turbine power at each speed is weighted by that probability, and the sum is
// scaled to one year. Every call is pure: the sample and power curve are only
// read, and the returned Result holds no reference to either.
package aep

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// HoursPerYear is the number of hours the estimate is scaled to (no leap years).
const HoursPerYear = 365 * 24

// Reference wind speeds (vref) of the IEC turbine classes, in m/s.
const (
	ClassI   = 50.0
	ClassII  = 42.5
	ClassIII = 37.5
)

// meanSpeedFactor gives the annual mean wind speed assumed for a class: v_ave = 0.2 * vref.
const meanSpeedFactor = 0.2

var (
	// ErrInsufficientData is returned for samples with fewer than two speeds.
	ErrInsufficientData = errors.New("aep: sample needs at least two wind speeds")

	// ErrUnsortedSample is wrapped by UnsortedSampleError.
	ErrUnsortedSample = errors.New("aep: sample is not sorted ascending")

	// ErrInvalidReference is returned when vref is not a positive finite number.
	ErrInvalidReference = errors.New("aep: reference wind speed must be positive")

	// ErrPowerMismatch is returned when the power curve returns a different
	// number of values than it was given.
	ErrPowerMismatch = errors.New("aep: power curve returned wrong number of values")
)

// UnsortedSampleError reports the first position where the sample decreases.
type UnsortedSampleError struct {
	Index int
	Prev  float64
	Value float64
}

func (e *UnsortedSampleError) Error() string {
	return fmt.Sprintf("aep: sample is not sorted ascending: sample[%d]=%g < sample[%d]=%g",
		e.Index, e.Value, e.Index-1, e.Prev)
}

func (e *UnsortedSampleError) Unwrap() error {
	return ErrUnsortedSample
}

// PowerCurve maps wind speeds (m/s) to electrical power (W), one value per speed.
type PowerCurve interface {
	Power(speeds []float64) []float64
}

// PowerFunc adapts a scalar function to PowerCurve.
type PowerFunc func(speed float64) float64

// Power implements PowerCurve.
func (f PowerFunc) Power(speeds []float64) []float64 {
	out := make([]float64, len(speeds))
	for i, v := range speeds {
		out[i] = f(v)
	}
	return out
}

// Result is the estimate for one sample.
type Result struct {
	// EnergyWh is the signed annual energy in Wh. It is never sign-corrected.
	EnergyWh float64

	// MeanSpeed is v_ave, the Rayleigh mean speed derived from vref.
	MeanSpeed float64

	// BinWidth is dvj, the spacing of the first two sample speeds.
	BinWidth float64

	// Speeds, Power and Probabilities are aligned per sample point and are the
	// (speed, power) pairs used for diagnostic plots.
	Speeds        []float64
	Power         []float64
	Probabilities []float64
}

// MWh returns EnergyWh in MWh.
func (r *Result) MWh() float64 {
	return r.EnergyWh / 1e6
}

// Corrected returns |EnergyWh|. Older reports printed this value for grid
// queries; callers should prefer EnergyWh, a negative value means the sample
// was mishandled upstream.
func (r *Result) Corrected() float64 {
	return math.Abs(r.EnergyWh)
}

// Estimate computes the annual energy production for sample with the given
// power curve and reference wind speed.
//
// The sample must hold at least two speeds sorted ascending; sorting is the
// caller's job (see SortedSample). The bin width is taken from the first two
// speeds, so the sample is assumed to be evenly spaced.
func Estimate(sample []float64, curve PowerCurve, vref float64) (*Result, error) {
	if err := CheckSample(sample); err != nil {
		return nil, err
	}
	if err := checkReference(vref); err != nil {
		return nil, err
	}
	probs := binProbabilities(sample, vref)

	speeds := make([]float64, len(sample))
	copy(speeds, sample)

	power := curve.Power(speeds)
	if len(power) != len(speeds) {
		return nil, fmt.Errorf("%w: got %d for %d speeds", ErrPowerMismatch, len(power), len(speeds))
	}

	var weighted float64
	for i := range speeds {
		weighted += probs[i] * power[i]
	}

	return &Result{
		EnergyWh:      HoursPerYear * weighted,
		MeanSpeed:     meanSpeedFactor * vref,
		BinWidth:      speeds[1] - speeds[0],
		Speeds:        speeds,
		Power:         power,
		Probabilities: probs,
	}, nil
}

// BinProbabilities returns, for every speed in sample, the probability that the
// wind falls in the bin of width sample[1]-sample[0] centred on it.
func BinProbabilities(sample []float64, vref float64) ([]float64, error) {
	if err := CheckSample(sample); err != nil {
		return nil, err
	}
	if err := checkReference(vref); err != nil {
		return nil, err
	}
	return binProbabilities(sample, vref), nil
}

func binProbabilities(sample []float64, vref float64) []float64 {
	vAve := meanSpeedFactor * vref
	dvj := sample[1] - sample[0]

	probs := make([]float64, len(sample))
	for i, v := range sample {
		probs[i] = BinProbability(v, dvj, vAve)
	}
	return probs
}

func checkReference(vref float64) error {
	if !(vref > 0) || math.IsInf(vref, 1) {
		return fmt.Errorf("%w: %g", ErrInvalidReference, vref)
	}
	return nil
}

// BinProbability is the Rayleigh probability mass in [v-dvj/2, v+dvj/2) for a
// distribution with mean vAve:
//
//	exp(-π((v-dvj/2)/(2·vAve))²) - exp(-π((v+dvj/2)/(2·vAve))²)
//
// The result is non-negative for v >= 0 and dvj >= 0. A negative dvj flips its sign.
func BinProbability(v, dvj, vAve float64) float64 {
	lo := (v - dvj/2) / (2 * vAve)
	hi := (v + dvj/2) / (2 * vAve)
	return math.Exp(-math.Pi*lo*lo) - math.Exp(-math.Pi*hi*hi)
}

// CheckSample verifies the length and ordering preconditions of Estimate.
func CheckSample(sample []float64) error {
	if len(sample) < 2 {
		return fmt.Errorf("%w: got %d", ErrInsufficientData, len(sample))
	}
	for i := 1; i < len(sample); i++ {
		if sample[i] < sample[i-1] {
			return &UnsortedSampleError{Index: i, Prev: sample[i-1], Value: sample[i]}
		}
	}
	return nil
}

// SortedSample returns an ascending copy of values.
func SortedSample(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// ValidClass reports whether vref is one of the IEC class reference speeds.
func ValidClass(vref float64) bool {
	return vref == ClassI || vref == ClassII || vref == ClassIII
}
