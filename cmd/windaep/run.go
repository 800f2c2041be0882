package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/app"
	"github.com/windaep/windaep/internal/auth"
	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/report"
	"github.com/windaep/windaep/internal/stats"
	"github.com/windaep/windaep/internal/turbine"
	"github.com/windaep/windaep/internal/windfield"
	"github.com/windaep/windaep/internal/worker"
)

// loadField reads a wind field file, choosing the decoder by extension.
func loadField(path string) (*windfield.Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening field: %w", err)
	}
	defer f.Close()

	mediaType := windfield.MediaTypeJSON
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		mediaType = windfield.MediaTypeCSV
	}
	field, err := windfield.Decode(f, mediaType)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return field, nil
}

func resolveCurve(ctx context.Context, cfg config.Config, log zerolog.Logger, id string) (*turbine.Curve, error) {
	catalog, err := app.Catalog(cfg, nil, log)
	if err != nil {
		return nil, err
	}
	return catalog.Resolve(ctx, id)
}

func newRunner(curve *turbine.Curve, cfg config.Config, log zerolog.Logger, strict bool, workers int) (*analysis.Runner, error) {
	return analysis.NewRunner(analysis.RunnerConfig{
		Curve:   curve,
		VRef:    cfg.Analysis.VRef,
		Strict:  strict || cfg.Analysis.Strict,
		Workers: workers,
		Logger:  log,
	})
}

func runFetch(cmd *cobra.Command, opts *globalOptions, j *jobOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	plan, err := j.job(opts.vref).Plan(cfg.Analysis.VRef)
	if err != nil {
		return err
	}

	svc := app.Retrieval(cfg, resilience.NewRegistry(), nil, log)
	ret, err := svc.Fetch(cmd.Context(), plan.Request)
	if err != nil {
		return err
	}
	path, err := era5.Save(cfg.Paths.DataDir, ret)
	if err != nil {
		return err
	}

	nt, nlat, nlon := ret.Field.Shape()
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %d times, %d x %d cells\n", path, nt, nlat, nlon)
	return nil
}

func runEstimate(cmd *cobra.Command, opts *globalOptions, path string) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	field, err := loadField(path)
	if err != nil {
		return err
	}
	a, err := analysis.FromField(analysis.ModeTimeSeries, field, 0, 0)
	if err != nil {
		return err
	}
	return analyse(cmd, cfg, log, a, false)
}

func runSpatial(cmd *cobra.Command, opts *globalOptions, q *pointOptions, path string) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	field, err := loadField(path)
	if err != nil {
		return err
	}
	return analyse(cmd, cfg, log, analysis.Spatial{Field: field, Lat: q.lat, Lon: q.lon}, q.strict)
}

func analyse(cmd *cobra.Command, cfg config.Config, log zerolog.Logger, a analysis.Analysis, strict bool) error {
	curve, err := resolveCurve(cmd.Context(), cfg, log, "")
	if err != nil {
		return err
	}
	runner, err := newRunner(curve, cfg, log, strict, 0)
	if err != nil {
		return err
	}
	out, err := runner.Run(cmd.Context(), a)
	if err != nil {
		return err
	}
	printOutcome(cmd.OutOrStdout(), curve, out)
	return nil
}

func runSweep(cmd *cobra.Command, opts *globalOptions, path string, workers int) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	field, err := loadField(path)
	if err != nil {
		return err
	}
	curve, err := resolveCurve(cmd.Context(), cfg, log, "")
	if err != nil {
		return err
	}
	runner, err := newRunner(curve, cfg, log, false, workers)
	if err != nil {
		return err
	}
	res, err := runner.Sweep(cmd.Context(), field)
	if err != nil {
		return err
	}
	printSweep(cmd.OutOrStdout(), res)
	return nil
}

func runStats(cmd *cobra.Command, opts *globalOptions, q *pointOptions, path string) error {
	if _, _, err := opts.load(); err != nil {
		return err
	}
	field, err := loadField(path)
	if err != nil {
		return err
	}

	idx := windfield.CellIndex{}
	if q.set(cmd) {
		sel, err := field.Nearest(q.lat, q.lon, windfield.NearestOptions{})
		if err != nil {
			return err
		}
		idx = sel.Cell
	}
	cell, err := field.Cell(idx)
	if err != nil {
		return err
	}

	table, err := stats.DescribeColumns(
		[]string{"ws10", "ws100"},
		[][]float64{cell.WS10, cell.WS100},
	)
	if err != nil {
		return err
	}
	fits := make(map[string]stats.Weibull, 2)
	for name, speeds := range map[string][]float64{"ws10": cell.WS10, "ws100": cell.WS100} {
		h, err := stats.NewHistogram(speeds, stats.DefaultBinWidth)
		if err != nil {
			return err
		}
		fits[name] = h.Fit
	}
	printStats(cmd.OutOrStdout(), cell, table, fits)
	return nil
}

func runReport(cmd *cobra.Command, opts *globalOptions, j *jobOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	assembler, err := app.Assembler(cfg, log)
	if err != nil {
		return err
	}
	catalog, err := app.Catalog(cfg, nil, log)
	if err != nil {
		return err
	}

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Fetcher:    app.Retrieval(cfg, resilience.NewRegistry(), nil, log),
		Curves:     catalog,
		Assembler:  assembler,
		Logger:     log,
		VRef:       cfg.Analysis.VRef,
		Strict:     cfg.Analysis.Strict,
		DataDir:    cfg.Paths.DataDir,
		JobTimeout: cfg.Worker.JobTimeout,
	})
	rep, err := processor.Process(cmd.Context(), j.job(opts.vref))
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func runLocalReport(cmd *cobra.Command, opts *globalOptions, j *jobOptions, path string) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	mode, err := analysis.ParseMode(j.analysis)
	if err != nil {
		return err
	}
	freq, err := era5.ParseFrequency(j.frequency)
	if err != nil {
		return err
	}
	field, err := loadField(path)
	if err != nil {
		return err
	}
	a, err := analysis.FromField(mode, field, j.lat, j.lon)
	if err != nil {
		return err
	}

	curve, err := resolveCurve(cmd.Context(), cfg, log, j.turbineID)
	if err != nil {
		return err
	}
	runner, err := newRunner(curve, cfg, log, false, 0)
	if err != nil {
		return err
	}
	out, err := runner.Run(cmd.Context(), a)
	if err != nil {
		return err
	}

	assembler, err := app.Assembler(cfg, log)
	if err != nil {
		return err
	}
	rep, err := assembler.Assemble(cmd.Context(), report.Input{
		Outcome:   out,
		Frequency: freq,
		Turbine:   curve.Name,
		Name:      j.name,
	})
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func runEnqueue(cmd *cobra.Command, opts *globalOptions, j *jobOptions, topic string) error {
	cfg, _, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Worker.ProjectID == "" {
		return errors.New("PUBSUB_PROJECT_ID is required to enqueue jobs")
	}
	plan, err := j.job(opts.vref).Plan(cfg.Analysis.VRef)
	if err != nil {
		return err
	}

	pub, err := worker.NewPublisher(cmd.Context(), cfg.Worker.ProjectID, topic)
	if err != nil {
		return err
	}
	defer pub.Close()

	id, err := pub.Enqueue(cmd.Context(), plan.Job)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "enqueued job %s as message %s on %s\n", plan.Job.JobID, id, topic)
	return nil
}

func runTurbineCurve(cmd *cobra.Command, opts *globalOptions, from, to int) error {
	if from < 0 || to < from {
		return fmt.Errorf("invalid speed range %d..%d", from, to)
	}
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	curve, err := resolveCurve(cmd.Context(), cfg, log, "")
	if err != nil {
		return err
	}
	printCurve(cmd.OutOrStdout(), curve, from, to)
	return nil
}

func runToken(cmd *cobra.Command, opts *globalOptions, subject, role string) error {
	cfg, _, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.JWT.Secret == "" {
		return auth.ErrMissingKey
	}
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})
	token, expires, err := svc.Issue(subject, role)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format("2006-01-02 15:04 MST"))
	return nil
}
