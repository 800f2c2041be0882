package turbine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// CatalogConfig holds configuration for the turbine catalog.
type CatalogConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// Fallback is served for an empty id. Default: Default()
	Fallback *Curve
}

// Catalog resolves turbine ids to power models.
type Catalog struct {
	repo     Repository
	fallback *Curve
	logger   zerolog.Logger
}

// NewCatalog creates a catalog. A nil repository means an in-memory one.
func NewCatalog(cfg CatalogConfig) *Catalog {
	if cfg.Repository == nil {
		cfg.Repository = NewMemoryRepository()
	}
	if cfg.Fallback == nil {
		cfg.Fallback = Default()
	}
	return &Catalog{
		repo:     cfg.Repository,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
	}
}

// Resolve returns the curve for id, or the fallback when id is empty.
func (c *Catalog) Resolve(ctx context.Context, id string) (*Curve, error) {
	if id == "" {
		return c.fallback.Clone(), nil
	}
	curve, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve turbine %q: %w", id, err)
	}
	return curve, nil
}

// List returns every curve in the repository.
func (c *Catalog) List(ctx context.Context) ([]*Curve, error) {
	return c.repo.List(ctx)
}

// Save validates and stores a curve.
func (c *Catalog) Save(ctx context.Context, curve *Curve) error {
	if err := c.repo.Save(ctx, curve); err != nil {
		return err
	}
	c.logger.Info().Str("turbine_id", curve.ID).Int("points", len(curve.Speeds)).Msg("turbine curve saved")
	return nil
}

// Delete removes a curve.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.logger.Info().Str("turbine_id", id).Msg("turbine curve deleted")
	return nil
}
