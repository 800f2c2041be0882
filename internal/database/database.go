// Package database opens the PostgreSQL pool backing the turbine catalog.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration. A disabled database
// means the in-memory turbine catalog is used.
type Config struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns settings for a local development database.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "windaep",
		Password:        "localdev",
		Database:        "windaep",
		SSLMode:         "disable",
		MaxConns:        10,
		MinConns:        2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ApplyEnv overrides cfg from DATABASE_* environment variables.
func ApplyEnv(cfg *Config) error {
	var errs []error
	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("DATABASE_ENABLED", err))
		cfg.Enabled = b
	}
	cfg.Host = getEnvOrDefault("DATABASE_HOST", cfg.Host)
	cfg.User = getEnvOrDefault("DATABASE_USER", cfg.User)
	cfg.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.Password)
	cfg.Database = getEnvOrDefault("DATABASE_NAME", cfg.Database)
	cfg.SSLMode = getEnvOrDefault("DATABASE_SSL_MODE", cfg.SSLMode)

	if v := os.Getenv("DATABASE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		errs = append(errs, envErr("DATABASE_PORT", err))
		cfg.Port = port
	}
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("DATABASE_MAX_CONNS", err))
		cfg.MaxConns = n
	}
	if v := os.Getenv("DATABASE_CONN_MAX_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		errs = append(errs, envErr("DATABASE_CONN_MAX_LIFETIME", err))
		cfg.ConnMaxLifetime = d
	}
	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", key, err)
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates a new database connection pool.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // bounded by config
	poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // bounded by config
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
