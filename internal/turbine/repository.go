package turbine

import "context"

// Repository stores turbine curves.
type Repository interface {
	// List returns every curve ordered by ID.
	List(ctx context.Context) ([]*Curve, error)

	// Get returns the curve with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Curve, error)

	// Save creates or replaces a curve.
	Save(ctx context.Context, c *Curve) error

	// Delete removes a curve. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
