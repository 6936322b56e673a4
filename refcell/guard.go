package refcell

import "github.com/kolkov/ownrt/internal/diag"

// Ref is a live shared borrow of a TrackedCell. It grants read access to
// the contained value; writing through a shared guard is a caller
// discipline violation the runtime cannot observe, same as sharing the
// guard across goroutines.
type Ref[T any] struct {
	cell     *TrackedCell[T]
	site     uint64
	released bool
}

// Value returns a pointer to the contained value, valid until Release.
// Fatal after Release.
func (r *Ref[T]) Value() *T {
	if r.released {
		diag.UseAfterConsume("refcell.Ref.Value")
	}
	return &r.cell.value
}

// Release returns the shared borrow. The first call releases exactly the
// borrow this guard acquired; further calls are no-ops, so a deferred
// Release composes with an early explicit one.
func (r *Ref[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.cell.dropSharedSite(r.site)
	r.cell.tracker.ReleaseShared()
}

// RefMut is the live exclusive borrow of a TrackedCell, granting
// read-write access to the contained value.
type RefMut[T any] struct {
	cell     *TrackedCell[T]
	released bool
}

// Value returns a pointer to the contained value, valid until Release.
// Fatal after Release.
func (g *RefMut[T]) Value() *T {
	if g.released {
		diag.UseAfterConsume("refcell.RefMut.Value")
	}
	return &g.cell.value
}

// Set replaces the contained value. Fatal after Release.
func (g *RefMut[T]) Set(v T) {
	if g.released {
		diag.UseAfterConsume("refcell.RefMut.Set")
	}
	g.cell.value = v
}

// Release returns the exclusive borrow, transitioning the cell back to
// unshared. Idempotent, like Ref.Release.
func (g *RefMut[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.cell.exclusiveSite = 0
	g.cell.tracker.ReleaseExclusive()
}
