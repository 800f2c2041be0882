// Package config loads the service and CLI configuration from an optional
// YAML file and the environment. Every path in a loaded Config is absolute,
// so nothing downstream depends on the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/database"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Report store kinds.
const (
	StoreFile  = "file"
	StoreMinIO = "minio"
)

// Config is the complete runtime configuration.
type Config struct {
	Env      string `yaml:"env"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
	CDS       CDSConfig       `yaml:"cds"`
	Paths     Paths           `yaml:"paths"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Database  database.Config `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Report    ReportConfig    `yaml:"report"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// CDSConfig configures the Climate Data Store client.
type CDSConfig struct {
	URL          string        `yaml:"url"`
	Key          string        `yaml:"key"`
	Format       string        `yaml:"format"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxWait      time.Duration `yaml:"max_wait"`
}

// Paths are resolved to absolute paths by Load.
type Paths struct {
	// DataDir receives downloaded wind data.
	DataDir string `yaml:"data_dir"`

	// OutputDir receives reports when the file store is used.
	OutputDir string `yaml:"output_dir"`

	// AssetsDir optionally holds logo.png for the report cover.
	AssetsDir string `yaml:"assets_dir"`

	// TurbineFile optionally replaces the embedded default turbine.
	TurbineFile string `yaml:"turbine_file"`
}

// Logo returns the cover logo path, or "" when there is none.
func (p Paths) Logo() string {
	if p.AssetsDir == "" {
		return ""
	}
	logo := filepath.Join(p.AssetsDir, "logo.png")
	if _, err := os.Stat(logo); err != nil {
		return ""
	}
	return logo
}

type AnalysisConfig struct {
	VRef   float64 `yaml:"vref"`
	Strict bool    `yaml:"strict"`
}

type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

type ReportConfig struct {
	Store        string      `yaml:"store"`
	Organisation string      `yaml:"organisation"`
	MinIO        MinIOConfig `yaml:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type WorkerConfig struct {
	ProjectID    string        `yaml:"project_id"`
	Subscription string        `yaml:"subscription"`
	Count        int           `yaml:"count"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
}

// Default returns the configuration used when nothing is set. Paths are
// relative to base.
func Default(base string) Config {
	return Config{
		Env:      "development",
		Port:     "8080",
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4317",
		},
		CDS: CDSConfig{
			URL:          "https://cds.climate.copernicus.eu/api",
			Format:       "json",
			PollInterval: 5 * time.Second,
			MaxWait:      2 * time.Hour,
		},
		Paths: Paths{
			DataDir:   filepath.Join(base, "data"),
			OutputDir: filepath.Join(base, "reports"),
		},
		Analysis: AnalysisConfig{VRef: aep.ClassI},
		Database: database.DefaultConfig(),
		JWT: JWTConfig{
			Issuer:   "windaep",
			Audience: "windaep-admin",
		},
		Report: ReportConfig{
			Store: StoreFile,
			MinIO: MinIOConfig{Bucket: "windaep-reports"},
		},
		Worker: WorkerConfig{
			Subscription: "windaep-reports",
			Count:        2,
			JobTimeout:   3 * time.Hour,
		},
	}
}

// Load reads path (optional, "" to skip) and then applies environment
// overrides. Relative paths in the file are resolved against the file's
// directory; relative paths from the environment against the working
// directory.
func Load(path string) (Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(wd)

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return Config{}, err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", abs, err)
		}
		cfg.Paths = cfg.Paths.resolve(filepath.Dir(abs))
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Paths = cfg.Paths.resolve(wd)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p Paths) resolve(base string) Paths {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(base, s)
	}
	return Paths{
		DataDir:     abs(p.DataDir),
		OutputDir:   abs(p.OutputDir),
		AssetsDir:   abs(p.AssetsDir),
		TurbineFile: abs(p.TurbineFile),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	for name, p := range map[string]string{
		"data_dir":     c.Paths.DataDir,
		"output_dir":   c.Paths.OutputDir,
		"assets_dir":   c.Paths.AssetsDir,
		"turbine_file": c.Paths.TurbineFile,
	} {
		if p != "" && !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("%s must be absolute: %q", name, p))
		}
	}
	if c.Paths.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if !aep.ValidClass(c.Analysis.VRef) {
		errs = append(errs, fmt.Errorf("vref %g is not an IEC class (50, 42.5, 37.5)", c.Analysis.VRef))
	}
	switch c.Report.Store {
	case StoreFile:
		if c.Paths.OutputDir == "" {
			errs = append(errs, errors.New("output_dir is required for the file report store"))
		}
	case StoreMinIO:
		if c.Report.MinIO.Endpoint == "" || c.Report.MinIO.Bucket == "" {
			errs = append(errs, errors.New("minio endpoint and bucket are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown report store %q", c.Report.Store))
	}
	if c.Worker.Count < 0 {
		errs = append(errs, errors.New("worker count must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether Env is development.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "APP_PORT")
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.CDS.URL, "CDS_API_URL")
	setString(&cfg.CDS.Key, "CDS_API_KEY")
	setString(&cfg.CDS.Format, "CDS_FORMAT")
	setString(&cfg.Paths.DataDir, "WINDAEP_DATA_DIR")
	setString(&cfg.Paths.OutputDir, "WINDAEP_OUTPUT_DIR")
	setString(&cfg.Paths.AssetsDir, "WINDAEP_ASSETS_DIR")
	setString(&cfg.Paths.TurbineFile, "WINDAEP_TURBINE_FILE")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	setString(&cfg.JWT.Audience, "JWT_AUDIENCE")
	setString(&cfg.Report.Store, "REPORT_STORE")
	setString(&cfg.Report.Organisation, "REPORT_ORGANISATION")
	setString(&cfg.Report.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Report.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Report.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Report.MinIO.Bucket, "MINIO_BUCKET")
	setString(&cfg.Report.MinIO.Region, "MINIO_REGION")
	setString(&cfg.Report.MinIO.Prefix, "MINIO_PREFIX")
	setString(&cfg.Worker.ProjectID, "PUBSUB_PROJECT_ID")
	setString(&cfg.Worker.Subscription, "PUBSUB_SUBSCRIPTION")

	if err := database.ApplyEnv(&cfg.Database); err != nil {
		return err
	}

	var errs []error
	errs = append(errs,
		setBool(&cfg.Telemetry.Enabled, "OTEL_ENABLED"),
		setBool(&cfg.Analysis.Strict, "WINDAEP_STRICT"),
		setBool(&cfg.Report.MinIO.UseSSL, "MINIO_USE_SSL"),
		setFloat(&cfg.Analysis.VRef, "WINDAEP_VREF"),
		setFloat(&cfg.Telemetry.SampleRatio, "OTEL_TRACES_SAMPLER_ARG"),
		setInt(&cfg.Worker.Count, "WORKER_COUNT"),
		setDuration(&cfg.CDS.PollInterval, "CDS_POLL_INTERVAL"),
		setDuration(&cfg.CDS.MaxWait, "CDS_MAX_WAIT"),
		setDuration(&cfg.Worker.JobTimeout, "WORKER_JOB_TIMEOUT"),
	)
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
