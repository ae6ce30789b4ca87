package optimistic

import (
	"context"
	"sync"

	"bizdash/internal/core"
	"bizdash/internal/normalize"
)

// Drag tracks a continuous edit of one percentage field, such as a progress slider.
// Intermediate values only touch local state; Release sends the final value once.
type Drag struct {
	c     *Controller
	scope core.Scope
	id    string
	field string
	build func(value int) Mutation

	mu       sync.Mutex
	baseline core.Entity
	last     int
	moved    bool
}

// NewDrag starts a drag on field of entity id. build turns the final clamped value
// into the mutation to send.
func (c *Controller) NewDrag(scope core.Scope, id, field string, build func(value int) Mutation) *Drag {
	return &Drag{c: c, scope: scope, id: id, field: field, build: build}
}

// Move shows v (clamped to [0,100] and rounded) locally. Nothing is sent.
func (d *Drag) Move(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	value := normalize.ClampPercent(v)
	before, err := d.c.state.Apply(d.scope, d.id, map[string]any{d.field: float64(value)})
	if err != nil {
		return err
	}
	if !d.moved {
		d.baseline = before
		d.moved = true
	}
	d.last = value
	return nil
}

// Release commits the last moved value. Releasing an unmoved drag sends nothing.
// A drag can be released once; later calls are no-ops.
func (d *Drag) Release(ctx context.Context) (Outcome, error) {
	d.mu.Lock()
	if !d.moved {
		d.mu.Unlock()
		return Skipped, nil
	}
	m := d.build(d.last)
	m.Scope, m.ID = d.scope, d.id
	if m.Patch == nil {
		m.Patch = map[string]any{}
	}
	m.Patch[d.field] = float64(d.last)
	m.Baseline = d.baseline
	d.moved = false
	d.baseline = nil
	d.mu.Unlock()

	return d.c.Run(ctx, m)
}

// Value is the last value shown locally.
func (d *Drag) Value() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
