package windfield

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Media types understood by Decode.
const (
	MediaTypeJSON = "application/json"
	MediaTypeCSV  = "text/csv"
)

// ErrUnsupportedFormat is returned by Decode for unknown media types.
var ErrUnsupportedFormat = errors.New("unsupported wind field format")

// Document is the JSON form of a Field. Components are nested [time][lat][lon].
type Document struct {
	Time      []time.Time   `json:"time"`
	Latitude  []float64     `json:"latitude"`
	Longitude []float64     `json:"longitude"`
	U10       [][][]float64 `json:"u10"`
	V10       [][][]float64 `json:"v10"`
	U100      [][][]float64 `json:"u100"`
	V100      [][][]float64 `json:"v100"`
}

// Field flattens the document into a validated Field.
func (d *Document) Field() (*Field, error) {
	f := &Field{
		Times:      d.Time,
		Latitudes:  d.Latitude,
		Longitudes: d.Longitude,
	}
	var err error
	if f.U10, err = flatten("u10", d.U10, f); err != nil {
		return nil, err
	}
	if f.V10, err = flatten("v10", d.V10, f); err != nil {
		return nil, err
	}
	if f.U100, err = flatten("u100", d.U100, f); err != nil {
		return nil, err
	}
	if f.V100, err = flatten("v100", d.V100, f); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewDocument converts f to its JSON form.
func NewDocument(f *Field) *Document {
	return &Document{
		Time:      f.Times,
		Latitude:  f.Latitudes,
		Longitude: f.Longitudes,
		U10:       nest(f.U10, f),
		V10:       nest(f.V10, f),
		U100:      nest(f.U100, f),
		V100:      nest(f.V100, f),
	}
}

func flatten(name string, c [][][]float64, f *Field) ([]float64, error) {
	nt, nlat, nlon := f.Shape()
	if len(c) != nt {
		return nil, fmt.Errorf("%w: %s has %d time steps, want %d", ErrShapeMismatch, name, len(c), nt)
	}
	out := make([]float64, 0, nt*nlat*nlon)
	for t := range c {
		if len(c[t]) != nlat {
			return nil, fmt.Errorf("%w: %s[%d] has %d latitudes, want %d", ErrShapeMismatch, name, t, len(c[t]), nlat)
		}
		for i := range c[t] {
			if len(c[t][i]) != nlon {
				return nil, fmt.Errorf("%w: %s[%d][%d] has %d longitudes, want %d",
					ErrShapeMismatch, name, t, i, len(c[t][i]), nlon)
			}
			out = append(out, c[t][i]...)
		}
	}
	return out, nil
}

func nest(flat []float64, f *Field) [][][]float64 {
	nt, nlat, nlon := f.Shape()
	out := make([][][]float64, nt)
	for t := range out {
		out[t] = make([][]float64, nlat)
		for i := range out[t] {
			start := f.Index(t, i, 0)
			out[t][i] = flat[start : start+nlon]
		}
	}
	return out
}

// Decode reads a field in the given media type. Parameters after ';' are ignored.
func Decode(r io.Reader, mediaType string) (*Field, error) {
	mt, _, _ := strings.Cut(mediaType, ";")
	switch strings.TrimSpace(strings.ToLower(mt)) {
	case MediaTypeJSON:
		return DecodeJSON(r)
	case MediaTypeCSV:
		return DecodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mediaType)
	}
}

// DecodeJSON reads a Document.
func DecodeJSON(r io.Reader) (*Field, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode wind field: %w", err)
	}
	return doc.Field()
}

// EncodeJSON writes f as a Document.
func EncodeJSON(w io.Writer, f *Field) error {
	return json.NewEncoder(w).Encode(NewDocument(f))
}

var csvColumns = []string{"time", "latitude", "longitude", "u10", "v10", "u100", "v100"}

// DecodeCSV reads a long-format table with one row per (time, latitude,
// longitude) and the columns time, latitude, longitude, u10, v10, u100, v100
// in any order. Latitudes are ordered north to south and longitudes west to
// east, as in the reanalysis grids. Every grid point must be present.
func DecodeCSV(r io.Reader) (*Field, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv missing column %q", name)
		}
	}

	type row struct {
		t          time.Time
		lat, lon   float64
		components [4]float64
	}
	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		var rw row
		if rw.t, err = time.Parse(time.RFC3339, rec[col["time"]]); err != nil {
			return nil, fmt.Errorf("csv line %d: time: %w", line, err)
		}
		values := make([]float64, 6)
		for k, name := range csvColumns[1:] {
			if values[k], err = strconv.ParseFloat(strings.TrimSpace(rec[col[name]]), 64); err != nil {
				return nil, fmt.Errorf("csv line %d: %s: %w", line, name, err)
			}
		}
		rw.lat, rw.lon = values[0], values[1]
		copy(rw.components[:], values[2:])
		rows = append(rows, rw)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyField
	}

	times := uniqueTimes(rows, func(r row) time.Time { return r.t })
	lats := uniqueFloats(rows, func(r row) float64 { return r.lat })
	lons := uniqueFloats(rows, func(r row) float64 { return r.lon })
	sort.Sort(sort.Reverse(sort.Float64Slice(lats)))

	f := &Field{Times: times, Latitudes: lats, Longitudes: lons}
	n := len(times) * len(lats) * len(lons)
	if len(rows) != n {
		return nil, fmt.Errorf("%w: %d rows for a %dx%dx%d grid", ErrShapeMismatch, len(rows), len(times), len(lats), len(lons))
	}
	f.U10, f.V10, f.U100, f.V100 = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)

	ti, lai, loi := indexOfTimes(times), indexOf(lats), indexOf(lons)
	seen := make([]bool, n)
	for _, rw := range rows {
		k := f.Index(ti[rw.t.UnixNano()], lai[rw.lat], loi[rw.lon])
		if seen[k] {
			return nil, fmt.Errorf("%w: duplicate row at %s (%g, %g)", ErrShapeMismatch, rw.t.Format(time.RFC3339), rw.lat, rw.lon)
		}
		seen[k] = true
		f.U10[k], f.V10[k], f.U100[k], f.V100[k] = rw.components[0], rw.components[1], rw.components[2], rw.components[3]
	}
	return f, nil
}

func uniqueTimes[T any](rows []T, key func(T) time.Time) []time.Time {
	seen := make(map[int64]bool)
	var out []time.Time
	for _, r := range rows {
		t := key(r)
		if !seen[t.UnixNano()] {
			seen[t.UnixNano()] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func uniqueFloats[T any](rows []T, key func(T) float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, r := range rows {
		if v := key(r); !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func indexOf(values []float64) map[float64]int {
	m := make(map[float64]int, len(values))
	for i, v := range values {
		m[v] = i
	}
	return m
}

func indexOfTimes(times []time.Time) map[int64]int {
	m := make(map[int64]int, len(times))
	for i, t := range times {
		m[t.UnixNano()] = i
	}
	return m
}
