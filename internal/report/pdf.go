package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/windaep/windaep/internal/analysis"
)

// PDFRenderer lays a Document out on US Letter pages with fpdf.
type PDFRenderer struct {
	// Organisation is printed on the cover page when set.
	Organisation string

	// Logo is an absolute path to an image for the cover page. Optional.
	Logo string
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(organisation, logo string) *PDFRenderer {
	return &PDFRenderer{Organisation: organisation, Logo: logo}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// placement of a chart on the analysis page, in mm.
type placement struct {
	chart      Chart
	x, y, w, h float64
}

var layouts = map[analysis.Mode][]placement{
	analysis.ModeTimeSeries: {
		{ChartTimeSeries, 5, 50, 200, 60},
		{ChartWindRose10m, 5, 125, 80, 80},
		{ChartWindRose100m, 120, 125, 80, 80},
		{ChartHistogram10m, 5, 200, 80, 80},
		{ChartHistogram100m, 120, 200, 80, 80},
	},
	analysis.ModeSpatial: {
		{ChartTimeSeries, 5, 50, 200, 60},
		{ChartWindRose10m, 5, 125, 80, 80},
		{ChartWindRose100m, 120, 125, 80, 80},
		{ChartSpatialMap, 5, 200, 190, 70},
	},
}

// Render returns the PDF bytes of doc.
func (r *PDFRenderer) Render(doc *Document) ([]byte, error) {
	layout, ok := layouts[doc.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", analysis.ErrInvalidMode, doc.Mode)
	}
	for _, pl := range layout {
		if _, ok := doc.Chart(pl.chart); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingChart, pl.chart)
		}
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("windaep", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-20)
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 10, fmt.Sprintf("- %d -", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	r.cover(pdf, doc)
	r.analysisPage(pdf, doc, layout)
	r.summaryPage(pdf, doc)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) cover(pdf *fpdf.Fpdf, doc *Document) {
	pdf.AddPage()
	if r.Logo != "" {
		pdf.ImageOptions(r.Logo, 160, 10, 40, 0, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	}
	text := func(x, y float64, style string, size float64, s string) {
		pdf.SetXY(x, y)
		pdf.SetFont("Arial", style, size)
		pdf.CellFormat(150, 10, s, "", 1, "L", false, 0, "")
	}
	text(10, 100, "B", 30, doc.Title)
	text(10, 110, "", 23, doc.Subtitle)
	text(10, 150, "", 26, "Analysis:  "+doc.Mode.Title())
	text(10, 165, "", 22, "Frequency: "+titleCase(string(doc.Frequency)))
	text(12, 195, "", 18, "Date: "+doc.Date.Format("02, Jan 2006"))
	if r.Organisation != "" {
		text(12, 210, "I", 18, r.Organisation)
	}
}

func (r *PDFRenderer) analysisPage(pdf *fpdf.Fpdf, doc *Document, layout []placement) {
	pdf.AddPage()
	pdf.SetXY(10, 35)
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(100, 10, doc.Mode.Title()+" Analysis", "", 2, "L", false, 0, "")

	heading := "Wind speed time series at 10 and 100 meters:"
	below := "Wind rose and wind speed frequency:"
	if doc.Mode == analysis.ModeSpatial {
		heading = fmt.Sprintf("Wind speed time series of 10 and 100 meters, at location lat=%g, lon=%g:", doc.Latitude, doc.Longitude)
		below = "Wind rose and wind maps of the study area:"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.SetXY(10, 45)
	pdf.CellFormat(100, 10, heading, "", 1, "L", false, 0, "")
	pdf.SetXY(10, 115)
	pdf.CellFormat(100, 10, below, "", 1, "L", false, 0, "")

	for _, pl := range layout {
		r.image(pdf, doc, pl)
	}
}

func (r *PDFRenderer) summaryPage(pdf *fpdf.Fpdf, doc *Document) {
	pdf.AddPage()
	pdf.SetXY(10, 35)
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(100, 10, "Annual Energy Production", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	pdf.SetX(10)
	info := fmt.Sprintf("Reference wind speed: %g m/s", doc.VRef)
	if doc.Turbine != "" {
		info = fmt.Sprintf("Turbine: %s    %s", doc.Turbine, info)
	}
	pdf.CellFormat(0, 8, info, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := []string{"Height", "AEP [MWh]"}
	if doc.Mode == analysis.ModeSpatial {
		header = append(header, "Corrected [MWh]")
	}
	widths := []float64{40, 50, 50}
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.SetX(10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	for _, row := range doc.AEP {
		pdf.SetX(10)
		pdf.CellFormat(widths[0], 8, row.Height.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 8, fmt.Sprintf("%.3f", row.Signed), "1", 0, "R", false, 0, "")
		if doc.Mode == analysis.ModeSpatial {
			pdf.CellFormat(widths[2], 8, fmt.Sprintf("%.3f", row.Corrected), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if doc.Stats != nil {
		pdf.Ln(8)
		pdf.SetX(10)
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, "Statistics", "", 1, "L", false, 0, "")
		r.statsTable(pdf, doc)
	}

	if _, ok := doc.Chart(ChartPowerCurve); ok {
		pdf.Ln(6)
		r.image(pdf, doc, placement{ChartPowerCurve, 5, pdf.GetY(), 200, 60})
	}
}

func (r *PDFRenderer) statsTable(pdf *fpdf.Fpdf, doc *Document) {
	cols := doc.Stats.Columns
	w := 30.0
	pdf.SetFont("Arial", "B", 11)
	pdf.SetX(10)
	pdf.CellFormat(w, 7, "", "1", 0, "C", true, 0, "")
	for _, c := range cols {
		pdf.CellFormat(w, 7, c, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 11)
	rows := []struct {
		label string
		value func(i int) string
	}{
		{"count", func(i int) string { return fmt.Sprintf("%d", doc.Stats.Rows[cols[i]].Count) }},
		{"mean", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].Mean) }},
		{"std", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].Std) }},
		{"min", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].Min) }},
		{"25%", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].P25) }},
		{"50%", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].P50) }},
		{"75%", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].P75) }},
		{"max", func(i int) string { return fmt.Sprintf("%.3f", doc.Stats.Rows[cols[i]].Max) }},
	}
	for _, row := range rows {
		pdf.SetX(10)
		pdf.CellFormat(w, 7, row.label, "1", 0, "L", false, 0, "")
		for i := range cols {
			pdf.CellFormat(w, 7, row.value(i), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (r *PDFRenderer) image(pdf *fpdf.Fpdf, doc *Document, pl placement) {
	img, _ := doc.Chart(pl.chart)
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(string(pl.chart), opts, bytes.NewReader(img))
	pdf.ImageOptions(string(pl.chart), pl.x, pl.y, pl.w, pl.h, false, opts, 0, "")
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
