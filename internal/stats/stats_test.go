package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/windaep/windaep/internal/stats"
)

func TestDescribe(t *testing.T) {
	s, err := stats.Describe([]float64{5, 1, 4, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 2.0, s.P25)
	assert.Equal(t, 3.0, s.P50)
	assert.Equal(t, 4.0, s.P75)
	assert.Equal(t, 5.0, s.Max)
}

func TestDescribe_SingleValue(t *testing.T) {
	s, err := stats.Describe([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Mean)
	assert.Equal(t, 0.0, s.Std)
}

func TestDescribe_Empty(t *testing.T) {
	_, err := stats.Describe(nil)
	assert.ErrorIs(t, err, stats.ErrNoData)
}

func TestDescribeColumns(t *testing.T) {
	table, err := stats.DescribeColumns([]string{"WS10m", "WS100m"}, [][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	assert.Equal(t, []string{"WS10m", "WS100m"}, table.Columns)
	assert.InDelta(t, 5.0, table.Rows["WS100m"].Mean, 1e-12)

	_, err = stats.DescribeColumns([]string{"WS10m"}, [][]float64{{}})
	assert.ErrorIs(t, err, stats.ErrNoData)
}

func TestWindRose(t *testing.T) {
	rose, err := stats.WindRose(
		[]float64{1, 3, 13, 0.5, 6},
		[]float64{0, 90, 180, 10, 359},
		4,
		[]float64{1, 5, 10},
	)
	require.NoError(t, err)

	assert.Equal(t, 90.0, rose.SectorWidth())
	assert.InDelta(t, 20.0, rose.Calm, 1e-12)
	assert.InDeltaSlice(t, []float64{20, 20, 0}, rose.Frequency[0], 1e-12)
	assert.InDeltaSlice(t, []float64{20, 0, 0}, rose.Frequency[1], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 20}, rose.Frequency[2], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, rose.Frequency[3], 1e-12)
	assert.InDelta(t, 40.0, rose.SectorTotal(0), 1e-12)

	var total float64
	for s := 0; s < rose.Sectors; s++ {
		total += rose.SectorTotal(s)
	}
	assert.InDelta(t, 100.0, total+rose.Calm, 1e-9)
}

func TestWindRose_Defaults(t *testing.T) {
	rose, err := stats.WindRose([]float64{3}, []float64{270}, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 16, rose.Sectors)
	assert.Equal(t, stats.DefaultSpeedEdges, rose.SpeedEdges)
	assert.InDelta(t, 100.0, rose.Frequency[12][1], 1e-12)
}

func TestWindRose_Errors(t *testing.T) {
	_, err := stats.WindRose(nil, nil, 8, nil)
	assert.ErrorIs(t, err, stats.ErrNoData)

	_, err = stats.WindRose([]float64{1, 2}, []float64{0}, 8, nil)
	assert.Error(t, err)
}

func TestNewHistogram(t *testing.T) {
	h, err := stats.NewHistogram([]float64{0.2, 0.7, 0.8, 1.6}, 0.5)
	require.NoError(t, err)

	require.Len(t, h.Edges, 5)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2}, h.Edges, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 1, 0, 0.5}, h.Density, 1e-12)
	assert.InDeltaSlice(t, []float64{0.25, 0.75, 1.25, 1.75}, h.Centers(), 1e-12)
	assert.True(t, h.Fit.Valid())
	assert.Len(t, h.FitDensity(), 4)
}

func TestNewHistogram_ConstantSpeeds(t *testing.T) {
	h, err := stats.NewHistogram([]float64{4, 4, 4}, 0)
	require.NoError(t, err)

	assert.False(t, h.Fit.Valid())
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0}, h.FitDensity())
	assert.InDelta(t, 1/stats.DefaultBinWidth, h.Density[8], 1e-12)
}

func TestNewHistogram_Errors(t *testing.T) {
	_, err := stats.NewHistogram(nil, 0.5)
	assert.ErrorIs(t, err, stats.ErrNoData)

	_, err = stats.NewHistogram([]float64{-1, 2}, 0.5)
	assert.Error(t, err)
}

func TestFitWeibull_RecoversParameters(t *testing.T) {
	dist := distuv.Weibull{K: 2, Lambda: 8}
	n := 2000
	x := make([]float64, n)
	for i := range x {
		x[i] = dist.Quantile((float64(i) + 0.5) / float64(n))
	}

	fit, err := stats.FitWeibull(x)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, fit.K, 0.05)
	assert.InDelta(t, 8.0, fit.A, 0.1)
	assert.InDelta(t, dist.Mean(), fit.Mean(), 0.1)
	assert.InDelta(t, dist.Prob(6), fit.Prob(6), 1e-3)
}

func TestFitWeibull_Degenerate(t *testing.T) {
	_, err := stats.FitWeibull([]float64{0, 0, 3})
	assert.ErrorIs(t, err, stats.ErrNoData)

	_, err = stats.FitWeibull([]float64{5, 5, 5})
	assert.ErrorIs(t, err, stats.ErrFitFailed)
}
