package turbine

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the turbines table used by PostgresRepository.
const Schema = `
	CREATE TABLE IF NOT EXISTS turbines (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL DEFAULT '',
		manufacturer     TEXT NOT NULL DEFAULT '',
		rated_power_w    DOUBLE PRECISION NOT NULL DEFAULT 0,
		hub_height_m     DOUBLE PRECISION NOT NULL DEFAULT 0,
		rotor_diameter_m DOUBLE PRECISION NOT NULL DEFAULT 0,
		speeds           DOUBLE PRECISION[] NOT NULL,
		power_w          DOUBLE PRECISION[] NOT NULL,
		ct               DOUBLE PRECISION[] NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL turbine repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the turbines table if needed.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

const selectCurve = `
	SELECT
		id, name, manufacturer,
		rated_power_w, hub_height_m, rotor_diameter_m,
		speeds, power_w, ct, updated_at
	FROM turbines
`

// List returns every curve ordered by ID.
func (r *PostgresRepository) List(ctx context.Context) ([]*Curve, error) {
	rows, err := r.pool.Query(ctx, selectCurve+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var curves []*Curve
	for rows.Next() {
		c, err := scanCurve(rows)
		if err != nil {
			return nil, err
		}
		curves = append(curves, c)
	}
	return curves, rows.Err()
}

// Get returns the curve with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Curve, error) {
	c, err := scanCurve(r.pool.QueryRow(ctx, selectCurve+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Save upserts c.
func (r *PostgresRepository) Save(ctx context.Context, c *Curve) error {
	if err := c.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO turbines (
			id, name, manufacturer,
			rated_power_w, hub_height_m, rotor_diameter_m,
			speeds, power_w, ct, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			manufacturer = EXCLUDED.manufacturer,
			rated_power_w = EXCLUDED.rated_power_w,
			hub_height_m = EXCLUDED.hub_height_m,
			rotor_diameter_m = EXCLUDED.rotor_diameter_m,
			speeds = EXCLUDED.speeds,
			power_w = EXCLUDED.power_w,
			ct = EXCLUDED.ct,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Manufacturer,
		c.RatedPowerW, c.HubHeightM, c.RotorDiameterM,
		c.Speeds, c.PowerW, c.Ct,
	)
	return err
}

// Delete removes the curve with id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM turbines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCurve(row pgx.Row) (*Curve, error) {
	var c Curve
	err := row.Scan(
		&c.ID, &c.Name, &c.Manufacturer,
		&c.RatedPowerW, &c.HubHeightM, &c.RotorDiameterM,
		&c.Speeds, &c.PowerW, &c.Ct, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
