package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/windfield"
)

var (
	color10m  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	color100m = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// ChartPlotter draws charts with gonum/plot.
type ChartPlotter struct {
	// Width and Height of the wide charts (time series, maps).
	Width, Height vg.Length

	// Square is the side of square charts (roses, histograms).
	Square vg.Length

	// DPI of the PNG output. Default: 96
	DPI int
}

// NewChartPlotter returns a plotter with the default chart sizes.
func NewChartPlotter() *ChartPlotter {
	return &ChartPlotter{Width: 20 * vg.Centimeter, Height: 6 * vg.Centimeter, Square: 10 * vg.Centimeter, DPI: 96}
}

// TimeSeries plots the 10 m and 100 m speeds over time.
func (c *ChartPlotter) TimeSeries(series *windfield.Series, title string) ([]byte, error) {
	if series == nil || series.Len() == 0 {
		return nil, errors.New("empty series")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Wind speed [m/s]"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	for _, h := range []struct {
		height windfield.Height
		color  color.Color
	}{{windfield.Height10m, color10m}, {windfield.Height100m, color100m}} {
		speeds := series.Speeds(h.height)
		xys := make(plotter.XYs, len(speeds))
		for i, ws := range speeds {
			xys[i].X = float64(series.Times[i].Unix())
			xys[i].Y = ws
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.Color = h.color
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("WS%dm", int(h.height)), line)
	}
	p.Legend.Top = true
	return c.png(p, c.Width, c.Height)
}

// WindRose draws a stacked polar bar chart: one wedge per sector, one ring
// per speed class, radius in percent of observations.
func (c *ChartPlotter) WindRose(rose *stats.Rose, title string) ([]byte, error) {
	if rose == nil || rose.Sectors == 0 {
		return nil, errors.New("empty wind rose")
	}
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	width := rose.SectorWidth() * math.Pi / 180
	var rmax float64
	for s := 0; s < rose.Sectors; s++ {
		rmax = math.Max(rmax, rose.SectorTotal(s))
	}
	if rmax == 0 {
		rmax = 1
	}

	for b := range rose.SpeedEdges {
		var wedges []plotter.XYer
		for s := 0; s < rose.Sectors; s++ {
			var inner float64
			for k := 0; k < b; k++ {
				inner += rose.Frequency[s][k]
			}
			outer := inner + rose.Frequency[s][b]
			if outer == inner {
				continue
			}
			// Sector s is centred on s·width clockwise from north.
			centre := float64(s) * width
			wedges = append(wedges, wedge(inner, outer, centre-width/2, centre+width/2))
		}
		if len(wedges) == 0 {
			continue
		}
		poly, err := plotter.NewPolygon(wedges...)
		if err != nil {
			return nil, err
		}
		poly.Color = plotutil.Color(b)
		poly.LineStyle.Color = color.White
		poly.LineStyle.Width = vg.Points(0.5)
		p.Add(poly)
		p.Legend.Add(speedClassLabel(rose.SpeedEdges, b), poly)
	}

	for _, frac := range []float64{0.25, 0.5, 0.75, 1} {
		ring, err := plotter.NewLine(circle(rmax * frac))
		if err != nil {
			return nil, err
		}
		ring.Color = color.Gray{Y: 180}
		ring.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(ring)
	}
	p.X.Min, p.X.Max = -rmax*1.1, rmax*1.1
	p.Y.Min, p.Y.Max = -rmax*1.1, rmax*1.1
	p.Legend.Top = true
	p.Legend.Left = false
	return c.png(p, c.Square, c.Square)
}

// Histogram draws the speed density bars with the fitted Weibull curve.
func (c *ChartPlotter) Histogram(hist *stats.Histogram, title string) ([]byte, error) {
	if hist == nil || len(hist.Density) == 0 {
		return nil, errors.New("empty histogram")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Wind speed [m/s]"
	p.Y.Label.Text = "Probability density"

	bins := make([]plotter.HistogramBin, len(hist.Density))
	for i, d := range hist.Density {
		bins[i] = plotter.HistogramBin{Min: hist.Edges[i], Max: hist.Edges[i+1], Weight: d}
	}
	bars := &plotter.Histogram{
		Bins:      bins,
		Width:     hist.Edges[len(hist.Edges)-1] - hist.Edges[0],
		FillColor: color10m,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(bars)

	if hist.Fit.Valid() {
		fit := hist.Fit
		curve := plotter.NewFunction(fit.Prob)
		curve.XMin = hist.Edges[0]
		curve.XMax = hist.Edges[len(hist.Edges)-1]
		curve.Samples = 200
		curve.Color = color100m
		curve.Width = vg.Points(2)
		p.Add(curve)
		p.Legend.Add(fmt.Sprintf("Weibull k=%.2f A=%.2f", fit.K, fit.A), curve)
	}
	p.Legend.Top = true
	return c.png(p, c.Square, c.Square)
}

// SpatialMap draws a heat map of mean[lat][lon].
func (c *ChartPlotter) SpatialMap(latitudes, longitudes []float64, mean [][]float64, title string) ([]byte, error) {
	if len(latitudes) < 2 || len(longitudes) < 2 {
		return nil, fmt.Errorf("spatial map needs at least a 2x2 grid, got %dx%d", len(latitudes), len(longitudes))
	}
	if len(mean) != len(latitudes) {
		return nil, fmt.Errorf("%d rows for %d latitudes", len(mean), len(latitudes))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	heat := plotter.NewHeatMap(newGrid(latitudes, longitudes, mean), palette.Heat(12, 1))
	if heat.Max <= heat.Min {
		heat.Max = heat.Min + 1
	}
	p.Add(heat)
	return c.png(p, c.Width, c.Height*1.2)
}

// PowerCurve plots the (speed, power) pairs used by both estimates.
func (c *ChartPlotter) PowerCurve(pair *aep.HeightPair, title string) ([]byte, error) {
	if pair == nil {
		return nil, errors.New("no estimate")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Wind speed [m/s]"
	p.Y.Label.Text = "Power [kW]"
	p.Add(plotter.NewGrid())

	for _, h := range []struct {
		height windfield.Height
		color  color.Color
		shape  draw.GlyphDrawer
	}{{windfield.Height10m, color10m, draw.CircleGlyph{}}, {windfield.Height100m, color100m, draw.TriangleGlyph{}}} {
		r := pair.At(h.height)
		if r == nil {
			continue
		}
		xys := make(plotter.XYs, len(r.Speeds))
		for i := range r.Speeds {
			xys[i].X = r.Speeds[i]
			xys[i].Y = r.Power[i] / 1e3
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = h.color
		sc.GlyphStyle.Shape = h.shape
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%.1f MWh)", h.height, r.MWh()), sc)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return c.png(p, c.Width, c.Height)
}

func (c *ChartPlotter) png(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	dpi := c.DPI
	if dpi <= 0 {
		dpi = 96
	}
	canvas := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	p.Draw(draw.New(canvas))

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func speedClassLabel(edges []float64, b int) string {
	if b == len(edges)-1 {
		return fmt.Sprintf(">=%g m/s", edges[b])
	}
	return fmt.Sprintf("%g-%g m/s", edges[b], edges[b+1])
}

// wedge returns an annular sector between radii r0 and r1 and compass
// bearings a0 and a1 (radians, clockwise from north).
func wedge(r0, r1, a0, a1 float64) plotter.XYs {
	const steps = 8
	xys := make(plotter.XYs, 0, 2*(steps+1))
	for i := 0; i <= steps; i++ {
		a := a0 + (a1-a0)*float64(i)/steps
		xys = append(xys, plotter.XY{X: r1 * math.Sin(a), Y: r1 * math.Cos(a)})
	}
	for i := steps; i >= 0; i-- {
		a := a0 + (a1-a0)*float64(i)/steps
		xys = append(xys, plotter.XY{X: r0 * math.Sin(a), Y: r0 * math.Cos(a)})
	}
	return xys
}

func circle(r float64) plotter.XYs {
	const steps = 72
	xys := make(plotter.XYs, steps+1)
	for i := range xys {
		a := 2 * math.Pi * float64(i) / steps
		xys[i] = plotter.XY{X: r * math.Sin(a), Y: r * math.Cos(a)}
	}
	return xys
}

// grid adapts a [lat][lon] matrix to plotter.GridXYZ with rows ordered by
// increasing latitude.
type grid struct {
	lats, lons []float64
	z          [][]float64
	flip       bool
}

func newGrid(lats, lons []float64, z [][]float64) grid {
	return grid{lats: lats, lons: lons, z: z, flip: lats[0] > lats[len(lats)-1]}
}

func (g grid) Dims() (c, r int) { return len(g.lons), len(g.lats) }

func (g grid) row(r int) int {
	if g.flip {
		return len(g.lats) - 1 - r
	}
	return r
}

func (g grid) Z(c, r int) float64 { return g.z[g.row(r)][c] }
func (g grid) X(c int) float64    { return g.lons[c] }
func (g grid) Y(r int) float64    { return g.lats[g.row(r)] }
