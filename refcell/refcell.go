// Package refcell provides runtime-checked interior mutability.
//
// A TrackedCell pairs a storage slot with a borrow tracker: at any instant
// the cell is either unshared, read-borrowed by any number of Ref guards,
// or write-borrowed by exactly one RefMut guard. The plain Borrow/BorrowMut
// operations treat a conflict as a fatal contract violation; the Try
// variants return a *ConflictError instead so callers can retry or fall
// back.
//
// Guards release their borrow through Release, which is idempotent and
// must be the only release mechanism; the usual shape is
//
//	g, err := c.TryBorrowMut()
//	if err != nil {
//		return err
//	}
//	defer g.Release()
//
// so the borrow is returned on every exit path.
//
// TrackedCells and their guards are single-goroutine, like the cells they
// wrap. For sharing values across goroutines see the arc package.
package refcell

import (
	uberatomic "go.uber.org/atomic"

	"github.com/kolkov/ownrt/internal/borrow"
	"github.com/kolkov/ownrt/internal/diag"
	"github.com/kolkov/ownrt/internal/stackdepot"
	"github.com/kolkov/ownrt/metrics"
)

// siteCapture gates recording of borrow acquisition stacks. Off by
// default: capture costs one runtime.Callers per borrow, which hot loops
// should not pay unless someone is debugging a conflict.
var siteCapture uberatomic.Bool

// EnableSiteCapture toggles recording of borrow acquisition stacks.
// When enabled, ConflictError.HeldAt names the site of the blocking
// borrow. Takes effect for borrows acquired after the call.
func EnableSiteCapture(on bool) {
	siteCapture.Store(on)
}

// TrackedCell is a storage slot guarded by a dynamic borrow tracker.
type TrackedCell[T any] struct {
	tracker  borrow.Tracker
	value    T
	consumed bool

	// Acquisition sites of live borrows, oldest first. Populated only
	// while site capture is enabled.
	sharedSites   []uint64
	exclusiveSite uint64
}

// New creates a TrackedCell owning v, in the unshared state.
func New[T any](v T) *TrackedCell[T] {
	return &TrackedCell[T]{value: v}
}

// TryBorrow requests a shared read-only borrow. It fails with a
// *ConflictError while a RefMut guard is live.
func (c *TrackedCell[T]) TryBorrow() (*Ref[T], error) {
	c.ensureLive("refcell.TryBorrow")
	if err := c.tracker.AcquireShared(); err != nil {
		return nil, c.conflict("refcell.TryBorrow")
	}
	site := c.captureSite()
	if site != 0 {
		c.sharedSites = append(c.sharedSites, site)
	}
	return &Ref[T]{cell: c, site: site}, nil
}

// TryBorrowMut requests the exclusive read-write borrow. It fails with a
// *ConflictError while any other guard is live, including a second
// exclusive request from the same call stack: re-entrant acquisition is
// indistinguishable from a genuine conflict and is rejected the same way.
func (c *TrackedCell[T]) TryBorrowMut() (*RefMut[T], error) {
	c.ensureLive("refcell.TryBorrowMut")
	if err := c.tracker.AcquireExclusive(); err != nil {
		return nil, c.conflict("refcell.TryBorrowMut")
	}
	c.exclusiveSite = c.captureSite()
	return &RefMut[T]{cell: c}, nil
}

// Borrow is TryBorrow with a fatal failure policy: a conflict terminates
// the offending unit of work instead of returning an error.
func (c *TrackedCell[T]) Borrow() *Ref[T] {
	g, err := c.TryBorrow()
	if err != nil {
		diag.Fatal(err)
	}
	return g
}

// BorrowMut is TryBorrowMut with a fatal failure policy.
func (c *TrackedCell[T]) BorrowMut() *RefMut[T] {
	g, err := c.TryBorrowMut()
	if err != nil {
		diag.Fatal(err)
	}
	return g
}

// Replace takes a transient exclusive borrow, swaps v into the slot and
// returns the previous value. Fatal while any guard is live.
func (c *TrackedCell[T]) Replace(v T) T {
	g, err := c.TryBorrowMut()
	if err != nil {
		diag.Fatal(err)
	}
	defer g.Release()
	old := *g.Value()
	g.Set(v)
	return old
}

// Take replaces the contained value with the zero value of T and returns
// the previous one. Fatal while any guard is live.
func (c *TrackedCell[T]) Take() T {
	var zero T
	return c.Replace(zero)
}

// IntoInner consumes the cell and returns the contained value. Fatal if
// any guard is live or the cell was already consumed.
func (c *TrackedCell[T]) IntoInner() T {
	c.ensureLive("refcell.IntoInner")
	if c.tracker.State() != borrow.Unshared {
		diag.Fatal(c.conflict("refcell.IntoInner"))
	}
	c.consumed = true
	var zero T
	old := c.value
	c.value = zero
	return old
}

// State describes the current borrow state: "unshared", "shared(n)" or
// "exclusive". Observer for tests and diagnostics.
func (c *TrackedCell[T]) State() string {
	return c.tracker.Describe()
}

// SharedCount returns the number of live Ref guards.
func (c *TrackedCell[T]) SharedCount() int {
	return c.tracker.SharedCount()
}

// conflict builds the ConflictError for op from the tracker state and the
// blocking borrow's recorded site, and counts the rejection.
func (c *TrackedCell[T]) conflict(op string) *ConflictError {
	metrics.BorrowConflict()
	e := &ConflictError{Op: op, State: c.tracker.Describe()}
	if h := c.blockingSite(); h != 0 {
		e.HeldAt = stackdepot.Lookup(h).Format()
	}
	return e
}

// blockingSite picks the recorded acquisition site of the borrow that
// blocks new acquisitions: the exclusive site, or the oldest live shared
// site. Zero when capture was off.
func (c *TrackedCell[T]) blockingSite() uint64 {
	if c.tracker.State() == borrow.Exclusive {
		return c.exclusiveSite
	}
	if len(c.sharedSites) > 0 {
		return c.sharedSites[0]
	}
	return 0
}

func (c *TrackedCell[T]) captureSite() uint64 {
	if !siteCapture.Load() {
		return 0
	}
	// Skip the TryBorrow/TryBorrowMut frame itself.
	return stackdepot.Capture(1)
}

func (c *TrackedCell[T]) dropSharedSite(site uint64) {
	if site == 0 {
		return
	}
	for i, s := range c.sharedSites {
		if s == site {
			c.sharedSites = append(c.sharedSites[:i], c.sharedSites[i+1:]...)
			return
		}
	}
}

func (c *TrackedCell[T]) ensureLive(op string) {
	if c.consumed {
		diag.UseAfterConsume(op)
	}
}
