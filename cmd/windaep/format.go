package main

import (
	"fmt"
	"io"

	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/turbine"
	"github.com/windaep/windaep/internal/windfield"
)

func printOutcome(w io.Writer, curve *turbine.Curve, out *analysis.Outcome) {
	fmt.Fprintf(w, "%s analysis, turbine %s, vref %.1f m/s\n", out.Mode.Title(), curve.Name, out.VRef)
	if sel := out.Selection; sel != nil {
		fmt.Fprintf(w, "cell (%d, %d) at %.4f, %.4f, %.1f km from the query",
			sel.Cell.Lat, sel.Cell.Lon, sel.Latitude, sel.Longitude, sel.DistanceKm)
		if sel.Clamped {
			fmt.Fprint(w, " (clamped to the grid edge)")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d observations\n\n", out.Cell.Len())

	fmt.Fprintf(w, "  %-6s %12s %12s %10s\n", "height", "AEP MWh", "|AEP| MWh", "mean m/s")
	for _, h := range []windfield.Height{windfield.Height10m, windfield.Height100m} {
		r := out.Pair.At(h)
		fmt.Fprintf(w, "  %-6s %12.3f %12.3f %10.2f\n", h, r.MWh(), r.Corrected()/1e6, r.MeanSpeed)
	}
	if out.Pair.Negative() {
		fmt.Fprintln(w, "\nWARNING: negative estimate, the speed sample was not in ascending order")
	}
}

func printSweep(w io.Writer, res *analysis.SweepResult) {
	fmt.Fprintln(w, "100 m AEP per cell, MWh")
	fmt.Fprintf(w, "%9s", "lat\\lon")
	for _, lon := range res.Longitudes {
		fmt.Fprintf(w, " %9.3f", lon)
	}
	fmt.Fprintln(w)
	for i, lat := range res.Latitudes {
		fmt.Fprintf(w, "%9.3f", lat)
		for _, wh := range res.At100m[i] {
			fmt.Fprintf(w, " %9.1f", wh/1e6)
		}
		fmt.Fprintln(w)
	}

	best, wh := res.Best()
	fmt.Fprintf(w, "\nbest cell %.3f, %.3f: %.1f MWh at 100 m, %.1f MWh at 10 m\n",
		res.Latitudes[best.Lat], res.Longitudes[best.Lon], wh/1e6, res.At10m[best.Lat][best.Lon]/1e6)
}

func printStats(w io.Writer, cell *windfield.Series, table *stats.Table, fits map[string]stats.Weibull) {
	fmt.Fprintf(w, "cell %.4f, %.4f\n\n", cell.Latitude, cell.Longitude)
	fmt.Fprintf(w, "  %-6s", "")
	for _, c := range table.Columns {
		fmt.Fprintf(w, " %10s", c)
	}
	fmt.Fprintln(w)

	rows := []struct {
		label string
		value func(stats.Summary) float64
	}{
		{"count", func(s stats.Summary) float64 { return float64(s.Count) }},
		{"mean", func(s stats.Summary) float64 { return s.Mean }},
		{"std", func(s stats.Summary) float64 { return s.Std }},
		{"min", func(s stats.Summary) float64 { return s.Min }},
		{"25%", func(s stats.Summary) float64 { return s.P25 }},
		{"50%", func(s stats.Summary) float64 { return s.P50 }},
		{"75%", func(s stats.Summary) float64 { return s.P75 }},
		{"max", func(s stats.Summary) float64 { return s.Max }},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-6s", r.label)
		for _, c := range table.Columns {
			fmt.Fprintf(w, " %10.3f", r.value(table.Rows[c]))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nWeibull fit")
	for _, c := range table.Columns {
		fit := fits[c]
		if !fit.Valid() {
			fmt.Fprintf(w, "  %-6s no fit\n", c)
			continue
		}
		fmt.Fprintf(w, "  %-6s k=%.3f A=%.3f m/s\n", c, fit.K, fit.A)
	}
}

func printReport(w io.Writer, rep *report.Report) {
	fmt.Fprintf(w, "%s (%d bytes)\n", rep.Location, rep.Size)
	for _, row := range rep.AEP {
		fmt.Fprintf(w, "  %-6s %12.3f MWh\n", row.Height, row.Signed)
	}
}

func printCurve(w io.Writer, curve *turbine.Curve, from, to int) {
	speeds, power, ct := curve.Sample(from, to)
	fmt.Fprintf(w, "%s (%s), rated %.0f kW, cut-in %.1f m/s, cut-out %.1f m/s\n",
		curve.Name, curve.ID, curve.RatedPowerW/1e3, curve.CutIn(), curve.CutOut())
	fmt.Fprintf(w, "  %6s %10s %6s\n", "m/s", "kW", "ct")
	for i := range speeds {
		fmt.Fprintf(w, "  %6.1f %10.1f %6.2f\n", speeds[i], power[i]/1e3, ct[i])
	}
}
