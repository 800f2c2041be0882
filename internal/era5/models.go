// Package era5 retrieves ERA5 reanalysis wind fields from the Copernicus
// Climate Data Store and caches them for the estimators.
package era5

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/windaep/windaep/internal/windfield"
)

// Retrieval errors.
var (
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidArea         = errors.New("invalid area")
	ErrInvalidDateRange    = errors.New("invalid date range")
	ErrRetrievalFailed     = errors.New("retrieval job failed")
	ErrJobTimeout          = errors.New("retrieval job did not finish in time")
	ErrProviderUnavailable = errors.New("retrieval provider unavailable")
)

// DateLayout is the date format used on the command line and in file names.
const DateLayout = "2006-01-02"

// LongHourlySpan is the hourly request span above which a warning is logged.
const LongHourlySpan = 365 * 24 * time.Hour

// Frequency is the sampling frequency of the requested data.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency parses "hourly" or "monthly".
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case FrequencyHourly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

// Product returns the CDS dataset holding data at this frequency.
func (f Frequency) Product() string {
	if f == FrequencyMonthly {
		return "reanalysis-era5-single-levels-monthly-means"
	}
	return "reanalysis-era5-single-levels"
}

// Variables are the wind components every request asks for.
var Variables = []string{
	"100m_u_component_of_wind",
	"100m_v_component_of_wind",
	"10m_u_component_of_wind",
	"10m_v_component_of_wind",
}

// Area is a retrieval extent in CDS order [north, west, south, east].
type Area struct {
	North float64
	West  float64
	South float64
	East  float64
}

// PointArea expands a single point into the degenerate area CDS expects for
// a time series: [lat, lon, lat, lon].
func PointArea(lat, lon float64) Area {
	return Area{North: lat, West: lon, South: lat, East: lon}
}

// Values returns the area as [north, west, south, east].
func (a Area) Values() []float64 {
	return []float64{a.North, a.West, a.South, a.East}
}

// IsPoint reports whether the area is a single point.
func (a Area) IsPoint() bool {
	return a.North == a.South && a.West == a.East
}

// Bounds converts the area to a bounding box.
func (a Area) Bounds() windfield.BoundingBox {
	return windfield.BoundingBox{MinLat: a.South, MaxLat: a.North, MinLon: a.West, MaxLon: a.East}
}

// Validate checks latitude and longitude ranges and ordering.
func (a Area) Validate() error {
	for _, lat := range []float64{a.North, a.South} {
		if lat < -90 || lat > 90 {
			return fmt.Errorf("%w: latitude %g", ErrInvalidArea, lat)
		}
	}
	for _, lon := range []float64{a.West, a.East} {
		if lon < -180 || lon > 360 {
			return fmt.Errorf("%w: longitude %g", ErrInvalidArea, lon)
		}
	}
	if a.North < a.South {
		return fmt.Errorf("%w: north %g below south %g", ErrInvalidArea, a.North, a.South)
	}
	return nil
}

// Request describes one retrieval.
type Request struct {
	Start     time.Time
	End       time.Time
	Area      Area
	Frequency Frequency
}

// Validate checks the request.
func (r Request) Validate() error {
	if _, err := ParseFrequency(string(r.Frequency)); err != nil {
		return err
	}
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidDateRange, r.Start.Format(DateLayout), r.End.Format(DateLayout))
	}
	return r.Area.Validate()
}

// Span returns the covered duration.
func (r Request) Span() time.Duration {
	return r.End.Sub(r.Start)
}

// LongHourly reports whether this is an hourly request over more than a year.
func (r Request) LongHourly() bool {
	return r.Frequency == FrequencyHourly && r.Span() > LongHourlySpan
}

// Key identifies the request for caching.
func (r Request) Key() string {
	return fmt.Sprintf("%s|%s|%s|%g,%g,%g,%g", r.Frequency,
		r.Start.Format(DateLayout), r.End.Format(DateLayout),
		r.Area.North, r.Area.West, r.Area.South, r.Area.East)
}

// FileName returns the conventional file name for the downloaded data:
// <product>-<start>-<end>-<n>_<w>_<s>_<e>.<ext>.
func (r Request) FileName(ext string) string {
	coords := make([]string, 0, 4)
	for _, v := range r.Area.Values() {
		coords = append(coords, fmt.Sprintf("%g", v))
	}
	return fmt.Sprintf("%s-%s-%s-%s.%s",
		r.Frequency.Product(),
		r.Start.Format("20060102"),
		r.End.Format("20060102"),
		strings.Join(coords, "_"),
		strings.TrimPrefix(ext, "."))
}

// Retrieval is a downloaded and decoded wind field.
type Retrieval struct {
	Request   Request
	Field     *windfield.Field
	Raw       []byte
	MediaType string
	FetchedAt time.Time
}

// Extension returns the file extension matching the media type.
func (r *Retrieval) Extension() string {
	if strings.HasPrefix(r.MediaType, windfield.MediaTypeCSV) {
		return "csv"
	}
	return "json"
}
