// Package report assembles the PDF report of an analysis: statistics and
// charts of the analysed wind series, the AEP summary, and storage of the
// rendered document.
package report

import (
	"context"
	"errors"
	"time"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/windfield"
)

var (
	ErrNoOutcome     = errors.New("report: analysis outcome is required")
	ErrMissingChart  = errors.New("report: chart missing")
	ErrInvalidName   = errors.New("report: invalid report name")
	ErrStoreNotReady = errors.New("report: store not configured")
)

// Chart identifies one figure of the report.
type Chart string

const (
	ChartTimeSeries    Chart = "time_series"
	ChartWindRose10m   Chart = "windrose_10m"
	ChartWindRose100m  Chart = "windrose_100m"
	ChartHistogram10m  Chart = "pdf_10m"
	ChartHistogram100m Chart = "pdf_100m"
	ChartSpatialMap    Chart = "spatial_map"
	ChartPowerCurve    Chart = "aep_power"
)

// Plotter draws the report charts as PNG images.
type Plotter interface {
	TimeSeries(series *windfield.Series, title string) ([]byte, error)
	WindRose(rose *stats.Rose, title string) ([]byte, error)
	Histogram(hist *stats.Histogram, title string) ([]byte, error)
	SpatialMap(latitudes, longitudes []float64, mean [][]float64, title string) ([]byte, error)
	PowerCurve(pair *aep.HeightPair, title string) ([]byte, error)
}

// Renderer lays a Document out as a file.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	ContentType() string
}

// Store persists rendered reports and returns where they were written.
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// AEPRow is one line of the AEP summary table, in MWh.
type AEPRow struct {
	Height    windfield.Height
	Signed    float64
	Corrected float64
}

// Document is everything a Renderer needs.
type Document struct {
	Title     string
	Subtitle  string
	Mode      analysis.Mode
	Frequency era5.Frequency
	Date      time.Time

	// Latitude and Longitude of the analysed cell.
	Latitude  float64
	Longitude float64

	Turbine string
	VRef    float64

	Stats  *stats.Table
	AEP    []AEPRow
	Charts map[Chart][]byte
}

// Chart returns the image for c.
func (d *Document) Chart(c Chart) ([]byte, bool) {
	img, ok := d.Charts[c]
	return img, ok && len(img) > 0
}

// Charts returns the charts drawn for a mode, in layout order.
func Charts(mode analysis.Mode) []Chart {
	if mode == analysis.ModeSpatial {
		return []Chart{ChartTimeSeries, ChartWindRose10m, ChartWindRose100m, ChartSpatialMap, ChartPowerCurve}
	}
	return []Chart{ChartTimeSeries, ChartWindRose10m, ChartWindRose100m, ChartHistogram10m, ChartHistogram100m, ChartPowerCurve}
}

// Summary builds the AEP table rows of a height pair.
func Summary(pair *aep.HeightPair) []AEPRow {
	rows := make([]AEPRow, 0, 2)
	for _, h := range []windfield.Height{windfield.Height10m, windfield.Height100m} {
		r := pair.At(h)
		if r == nil {
			continue
		}
		rows = append(rows, AEPRow{Height: h, Signed: r.MWh(), Corrected: r.Corrected() / 1e6})
	}
	return rows
}
