package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/windaep/windaep/internal/config"
	"github.com/windaep/windaep/internal/worker"
)

type globalOptions struct {
	configPath  string
	turbineFile string
	vref        float64
}

// load reads the configuration and applies the global flags. Logs go to
// stderr so stdout only carries results.
func (o *globalOptions) load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	if o.turbineFile != "" {
		abs, err := filepath.Abs(o.turbineFile)
		if err != nil {
			return config.Config{}, zerolog.Nop(), err
		}
		cfg.Paths.TurbineFile = abs
	}
	if o.vref != 0 {
		cfg.Analysis.VRef = o.vref
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, cfg.LoggerTo(os.Stderr), nil
}

// jobOptions are the flags describing one retrieval.
type jobOptions struct {
	analysis  string
	lat       float64
	lon       float64
	area      []float64
	start     string
	end       string
	frequency string
	turbineID string
	name      string
}

func (j *jobOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&j.analysis, "analysis", "a", "time_series", "time_series or spatial")
	f.Float64Var(&j.lat, "lat", 0, "latitude in degrees")
	f.Float64Var(&j.lon, "lon", 0, "longitude in degrees")
	f.Float64SliceVar(&j.area, "area", nil, "spatial area as north,west,south,east (default: 1 degree around the point)")
	f.StringVar(&j.start, "start", "", "first day, YYYY-MM-DD")
	f.StringVar(&j.end, "end", "", "last day, YYYY-MM-DD")
	f.StringVarP(&j.frequency, "frequency", "f", "hourly", "hourly or monthly")
	f.StringVar(&j.turbineID, "turbine-id", "", "catalog turbine id (default: the configured turbine)")
}

func (j *jobOptions) job(vref float64) worker.ReportJob {
	return worker.ReportJob{
		Analysis:   j.analysis,
		Latitude:   j.lat,
		Longitude:  j.lon,
		Area:       j.area,
		Start:      j.start,
		End:        j.end,
		Frequency:  j.frequency,
		TurbineID:  j.turbineID,
		VRef:       vref,
		ReportName: j.name,
	}
}

// pointOptions select a cell of a field.
type pointOptions struct {
	lat    float64
	lon    float64
	strict bool
}

func (q *pointOptions) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&q.lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&q.lon, "lon", 0, "longitude in degrees")
}

// set reports whether a point was given on the command line.
func (q *pointOptions) set(cmd *cobra.Command) bool {
	return cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
}

func (q *pointOptions) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", q.lat, q.lon)
}
