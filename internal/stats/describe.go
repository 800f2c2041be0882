// Package stats summarises wind series for reports: descriptive statistics,
// wind rose frequency tables and speed histograms with a Weibull fit.
package stats

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoData is returned for empty inputs.
var ErrNoData = errors.New("stats: no data")

// Summary is a descriptive summary of one variable.
type Summary struct {
	Count int
	Mean  float64
	Std   float64 // sample standard deviation
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Describe summarises values. Quantiles are empirical: the smallest value
// whose cumulative share reaches p.
func Describe(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrNoData
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		P25:   stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P75:   stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	} else {
		s.Mean = sorted[0]
	}
	return s, nil
}

// Table is the summary of each named column.
type Table struct {
	Columns []string
	Rows    map[string]Summary
}

// DescribeColumns summarises several equally important columns, keeping the
// given column order.
func DescribeColumns(columns []string, values [][]float64) (*Table, error) {
	t := &Table{Columns: columns, Rows: make(map[string]Summary, len(columns))}
	for i, name := range columns {
		s, err := Describe(values[i])
		if err != nil {
			return nil, err
		}
		t.Rows[name] = s
	}
	return t, nil
}
