// Package worker runs report jobs: it receives job messages from Pub/Sub,
// retrieves the wind field, runs the analysis and stores the report.
package worker

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/era5"
)

// ErrInvalidJob is returned for job messages that can never succeed.
var ErrInvalidJob = errors.New("invalid report job")

// DefaultSpatialMargin is the half-width in degrees of the area retrieved
// around the query point when a spatial job does not set one.
const DefaultSpatialMargin = 1.0

// ReportJob is the Pub/Sub message that requests one report.
type ReportJob struct {
	JobID     string  `json:"job_id" yaml:"job_id"`
	Analysis  string  `json:"analysis" yaml:"analysis"`
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`

	// Area is [north, west, south, east] for spatial jobs.
	Area []float64 `json:"area,omitempty" yaml:"area,omitempty"`

	Start     string `json:"start" yaml:"start"`
	End       string `json:"end" yaml:"end"`
	Frequency string `json:"frequency" yaml:"frequency"`

	TurbineID string  `json:"turbine_id,omitempty" yaml:"turbine_id,omitempty"`
	VRef      float64 `json:"vref,omitempty" yaml:"vref,omitempty"`

	// ReportName overrides the stored file name.
	ReportName string `json:"report_name,omitempty" yaml:"report_name,omitempty"`
}

// Plan is a validated job.
type Plan struct {
	Job     ReportJob
	Mode    analysis.Mode
	Request era5.Request
	VRef    float64
	Name    string
}

// Plan validates the job and derives the retrieval request. Errors wrap
// ErrInvalidJob.
func (j ReportJob) Plan(defaultVRef float64) (*Plan, error) {
	if j.JobID == "" {
		j.JobID = uuid.NewString()
	}
	mode, err := analysis.ParseMode(j.Analysis)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	freq, err := era5.ParseFrequency(j.Frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	start, err := time.Parse(era5.DateLayout, j.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %w", ErrInvalidJob, err)
	}
	end, err := time.Parse(era5.DateLayout, j.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %w", ErrInvalidJob, err)
	}

	var area era5.Area
	switch {
	case mode == analysis.ModeTimeSeries:
		area = era5.PointArea(j.Latitude, j.Longitude)
	case len(j.Area) == 4:
		area = era5.Area{North: j.Area[0], West: j.Area[1], South: j.Area[2], East: j.Area[3]}
	case len(j.Area) == 0:
		area = era5.Area{
			North: min(j.Latitude+DefaultSpatialMargin, 90),
			West:  j.Longitude - DefaultSpatialMargin,
			South: max(j.Latitude-DefaultSpatialMargin, -90),
			East:  j.Longitude + DefaultSpatialMargin,
		}
	default:
		return nil, fmt.Errorf("%w: area needs 4 values, got %d", ErrInvalidJob, len(j.Area))
	}

	req := era5.Request{Start: start, End: end, Area: area, Frequency: freq}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	vref := j.VRef
	if vref == 0 {
		vref = defaultVRef
	}
	if vref == 0 {
		vref = aep.ClassI
	}
	if !(vref > 0) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, aep.ErrInvalidReference)
	}

	name := j.ReportName
	if name == "" {
		name = fmt.Sprintf("report_%s_%s.pdf", mode, j.JobID)
	}
	return &Plan{Job: j, Mode: mode, Request: req, VRef: vref, Name: name}, nil
}

// jobFile is the YAML batch format: a top-level "jobs" list.
type jobFile struct {
	Jobs []ReportJob `yaml:"jobs"`
}

// LoadJobs reads a YAML batch of report jobs. Jobs without an id are
// numbered by position.
func LoadJobs(r io.Reader) ([]ReportJob, error) {
	var f jobFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty job file", ErrInvalidJob)
		}
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	for i := range f.Jobs {
		if f.Jobs[i].JobID == "" {
			f.Jobs[i].JobID = fmt.Sprintf("job-%03d", i+1)
		}
	}
	return f.Jobs, nil
}
