package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds the root logger for a binary. Development mode writes
// human readable lines to stderr; otherwise JSON goes to stdout.
func (c Config) Logger(service, version string) zerolog.Logger {
	var w io.Writer = os.Stdout
	if c.IsDevelopment() {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return c.LoggerTo(w).
		With().
		Str("service", service).
		Str("version", version).
		Logger()
}

// LoggerTo builds a timestamped JSON logger on w at the configured level.
func (c Config) LoggerTo(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
