package turbine

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository, seeded with the default turbine.
type MemoryRepository struct {
	mu     sync.RWMutex
	curves map[string]*Curve
}

// NewMemoryRepository creates a repository holding Default() and any extra curves.
func NewMemoryRepository(extra ...*Curve) *MemoryRepository {
	r := &MemoryRepository{curves: make(map[string]*Curve)}
	d := Default()
	r.curves[d.ID] = d
	for _, c := range extra {
		r.curves[c.ID] = c.Clone()
	}
	return r
}

// List returns every curve ordered by ID.
func (r *MemoryRepository) List(_ context.Context) ([]*Curve, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Curve, 0, len(r.curves))
	for _, c := range r.curves {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get returns a copy of the curve with id.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Curve, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.curves[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// Save validates and stores a copy of c.
func (r *MemoryRepository) Save(_ context.Context, c *Curve) error {
	if err := c.Validate(); err != nil {
		return err
	}
	stored := c.Clone()
	stored.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.curves[c.ID] = stored
	return nil
}

// Delete removes the curve with id.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.curves[id]; !ok {
		return ErrNotFound
	}
	delete(r.curves, id)
	return nil
}
