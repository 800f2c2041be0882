package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultBinWidth is the histogram bin width in m/s.
const DefaultBinWidth = 0.5

// ErrFitFailed is returned when the Weibull fit does not converge.
var ErrFitFailed = errors.New("stats: weibull fit did not converge")

// Histogram is a probability density histogram with a fitted Weibull curve.
type Histogram struct {
	Edges   []float64 // len(Density)+1 bin edges
	Density []float64 // per bin, integrates to 1
	Fit     Weibull
}

// Centers returns the bin centres.
func (h *Histogram) Centers() []float64 {
	out := make([]float64, len(h.Density))
	for i := range out {
		out[i] = (h.Edges[i] + h.Edges[i+1]) / 2
	}
	return out
}

// FitDensity evaluates the fitted Weibull density at the bin centres.
func (h *Histogram) FitDensity() []float64 {
	centers := h.Centers()
	out := make([]float64, len(centers))
	for i, x := range centers {
		out[i] = h.Fit.Prob(x)
	}
	return out
}

// NewHistogram bins non-negative speeds into bins of width starting at zero
// and fits a Weibull distribution to the positive speeds.
func NewHistogram(speeds []float64, width float64) (*Histogram, error) {
	if len(speeds) == 0 {
		return nil, ErrNoData
	}
	if width <= 0 {
		width = DefaultBinWidth
	}
	sorted := append([]float64(nil), speeds...)
	sort.Float64s(sorted)
	if sorted[0] < 0 {
		return nil, fmt.Errorf("stats: negative speed %g", sorted[0])
	}

	nbins := int(math.Floor(floats.Max(sorted)/width)) + 1
	edges := make([]float64, nbins+1)
	floats.Span(edges, 0, float64(nbins)*width)

	counts := stat.Histogram(nil, edges, sorted, nil)
	density := make([]float64, len(counts))
	n := float64(len(sorted))
	for i, c := range counts {
		density[i] = c / (n * width)
	}

	h := &Histogram{Edges: edges, Density: density}
	fit, err := FitWeibull(sorted)
	switch {
	case err == nil:
		h.Fit = fit
	case errors.Is(err, ErrNoData), errors.Is(err, ErrFitFailed):
		// Calm or constant series have no Weibull shape; the histogram is still valid.
	default:
		return nil, err
	}
	return h, nil
}

// Weibull is a two-parameter Weibull distribution, shape K and scale A.
type Weibull struct {
	K float64
	A float64
}

// Valid reports whether the parameters describe a distribution.
func (w Weibull) Valid() bool {
	return w.K > 0 && w.A > 0
}

// Prob returns the density at x, or 0 for an invalid fit.
func (w Weibull) Prob(x float64) float64 {
	if !w.Valid() {
		return 0
	}
	return distuv.Weibull{K: w.K, Lambda: w.A}.Prob(x)
}

// Mean returns the distribution mean A·Γ(1+1/K).
func (w Weibull) Mean() float64 {
	return distuv.Weibull{K: w.K, Lambda: w.A}.Mean()
}

// FitWeibull fits K and A by maximum likelihood. Zero speeds are ignored.
func FitWeibull(values []float64) (Weibull, error) {
	var x []float64
	for _, v := range values {
		if v > 0 {
			x = append(x, v)
		}
	}
	if len(x) < 2 {
		return Weibull{}, ErrNoData
	}

	n := float64(len(x))
	logs := make([]float64, len(x))
	for i, v := range x {
		logs[i] = math.Log(v)
	}
	meanLog := floats.Sum(logs) / n

	// Start from the moment estimate k ≈ (σ/μ)^-1.086.
	mean, std := stat.MeanStdDev(x, nil)
	if std == 0 {
		return Weibull{}, ErrFitFailed
	}
	k := math.Pow(std/mean, -1.086)

	// Newton iterations on g(k) = Σx^k·ln x / Σx^k - 1/k - mean(ln x).
	for iter := 0; iter < 100; iter++ {
		var s0, s1, s2 float64
		for i, v := range x {
			xk := math.Pow(v, k)
			s0 += xk
			s1 += xk * logs[i]
			s2 += xk * logs[i] * logs[i]
		}
		g := s1/s0 - 1/k - meanLog
		dg := (s2*s0-s1*s1)/(s0*s0) + 1/(k*k)
		step := g / dg
		next := k - step
		if next <= 0 {
			next = k / 2
		}
		if math.Abs(next-k) < 1e-10*k {
			k = next
			var sk float64
			for _, v := range x {
				sk += math.Pow(v, k)
			}
			return Weibull{K: k, A: math.Pow(sk/n, 1/k)}, nil
		}
		k = next
	}
	return Weibull{}, ErrFitFailed
}
