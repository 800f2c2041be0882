package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/turbine"
	"github.com/windaep/windaep/internal/windfield"
)

// Job outcomes recorded in metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeRetry   = "retry"
)

// Fetcher retrieves wind fields. *era5.Service implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req era5.Request) (*era5.Retrieval, error)
}

// CurveResolver resolves turbine ids. *turbine.Catalog implements it.
type CurveResolver interface {
	Resolve(ctx context.Context, id string) (*turbine.Curve, error)
}

// Assembler builds and stores reports. *report.Assembler implements it.
type Assembler interface {
	Assemble(ctx context.Context, in report.Input) (*report.Report, error)
}

// JobRecorder records finished jobs. *telemetry.JobMetrics implements it.
type JobRecorder interface {
	RecordJob(ctx context.Context, analysis, outcome string, duration time.Duration)
}

// ProcessorConfig holds configuration for the Processor.
type ProcessorConfig struct {
	Fetcher   Fetcher
	Curves    CurveResolver
	Assembler Assembler
	Metrics   JobRecorder
	Logger    zerolog.Logger

	// VRef is used for jobs that do not set one. Default: aep.ClassI
	VRef float64

	// Strict rejects query points outside the retrieved field.
	Strict bool

	// DataDir keeps a copy of every retrieved field when set. Must be absolute.
	DataDir string

	// JobTimeout bounds one job. Default: 3 hours, CDS queues can be slow.
	JobTimeout time.Duration
}

// Processor runs report jobs end to end.
type Processor struct {
	fetcher   Fetcher
	curves    CurveResolver
	assembler Assembler
	metrics   JobRecorder
	logger    zerolog.Logger
	vref      float64
	strict    bool
	dataDir   string
	timeout   time.Duration
}

// NewProcessor creates a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.VRef == 0 {
		cfg.VRef = aep.ClassI
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 3 * time.Hour
	}
	return &Processor{
		fetcher:   cfg.Fetcher,
		curves:    cfg.Curves,
		assembler: cfg.Assembler,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		vref:      cfg.VRef,
		strict:    cfg.Strict,
		dataDir:   cfg.DataDir,
		timeout:   cfg.JobTimeout,
	}
}

// Process runs one job: retrieve, analyse, assemble and store.
func (p *Processor) Process(ctx context.Context, job ReportJob) (*report.Report, error) {
	start := time.Now()
	mode := job.Analysis

	rep, err := p.process(ctx, job)

	outcome := OutcomeSuccess
	switch {
	case err == nil:
	case Permanent(err):
		outcome = OutcomeFailed
	default:
		outcome = OutcomeRetry
	}
	if p.metrics != nil {
		p.metrics.RecordJob(ctx, mode, outcome, time.Since(start))
	}
	return rep, err
}

func (p *Processor) process(ctx context.Context, job ReportJob) (*report.Report, error) {
	plan, err := job.Plan(p.vref)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	logger := p.logger.With().
		Str("job_id", plan.Job.JobID).
		Str("analysis", plan.Mode.String()).
		Str("frequency", string(plan.Request.Frequency)).
		Logger()
	logger.Info().Msg("report job started")

	curve, err := p.curves.Resolve(ctx, plan.Job.TurbineID)
	if err != nil {
		return nil, fmt.Errorf("turbine: %w", err)
	}

	ret, err := p.fetcher.Fetch(ctx, plan.Request)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if p.dataDir != "" && len(ret.Raw) > 0 {
		path, err := era5.Save(p.dataDir, ret)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to keep retrieved field")
		} else {
			logger.Debug().Str("path", path).Msg("retrieved field saved")
		}
	}

	a, err := analysis.FromField(plan.Mode, ret.Field, plan.Job.Latitude, plan.Job.Longitude)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	runner, err := analysis.NewRunner(analysis.RunnerConfig{
		Curve:  curve,
		VRef:   plan.VRef,
		Strict: p.strict,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	out, err := runner.Run(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}

	rep, err := p.assembler.Assemble(ctx, report.Input{
		Outcome:   out,
		Frequency: plan.Request.Frequency,
		Turbine:   curve.Name,
		Name:      plan.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	logger.Info().
		Str("location", rep.Location).
		Float64("aep10m_mwh", out.Pair.At10m.MWh()).
		Float64("aep100m_mwh", out.Pair.At100m.MWh()).
		Msg("report job finished")
	return rep, nil
}

// permanentErrors can never succeed on redelivery.
var permanentErrors = []error{
	ErrInvalidJob,
	era5.ErrRetrievalFailed,
	turbine.ErrNotFound,
	turbine.ErrInvalidCurve,
	aep.ErrInsufficientData,
	aep.ErrUnsortedSample,
	aep.ErrInvalidReference,
	aep.ErrPowerMismatch,
	analysis.ErrInvalidMode,
	analysis.ErrNotPoint,
	windfield.ErrOutOfBounds,
	windfield.ErrEmptyField,
	windfield.ErrShapeMismatch,
	windfield.ErrUnsupportedFormat,
	report.ErrNoOutcome,
	report.ErrInvalidName,
	report.ErrMissingChart,
}

// Permanent reports whether err means the job should be dropped rather than
// redelivered.
func Permanent(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
