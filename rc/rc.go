// Package rc provides single-goroutine reference-counted shared ownership.
//
// A Counted handle points at a control block holding the payload and a
// strong/weak counter pair. Clone adds a strong handle; Drop removes one,
// and the drop that takes the strong count to zero finalizes the payload
// exactly once. Weak handles keep only the control block reachable, never
// the payload: Upgrade yields a strong handle only while the payload is
// still alive.
//
// Counters are plain integers on purpose: this package is single-goroutine
// only and its decrement semantics are strictly sequential. The arc
// package is the atomic twin for cross-goroutine sharing.
//
// Shared handles grant read access by default. For shared mutation, store
// a *refcell.TrackedCell as the payload, so mutation stays dynamically
// borrow-checked:
//
//	h := rc.New(refcell.New(0))
//	g := h.Value().BorrowMut()
//	*g.Value()++
//	g.Release()
//
// Cycles built entirely from strong handles leak; break them by holding
// Weak back-references (child points at parent weakly).
package rc

import (
	"github.com/kolkov/ownrt/internal/diag"
	"github.com/kolkov/ownrt/metrics"
)

// control is the shared allocation behind every handle to one payload.
// It stays allocated while either counter is nonzero; the payload lives
// only while strong > 0.
type control[T any] struct {
	strong int
	weak   int
	value  T
	fin    func(T)
	alive  bool
}

// finalize destroys the payload in place: runs the finalizer once and
// zeroes the slot. Only the drop observing the 1->0 strong transition
// calls this.
func (cb *control[T]) finalize() {
	cb.alive = false
	old := cb.value
	var zero T
	cb.value = zero
	metrics.PayloadFinalized()
	if cb.fin != nil {
		cb.fin(old)
	}
}

// released records the control block itself becoming unreachable, once
// both counters are zero.
func (cb *control[T]) released() {
	if cb.strong == 0 && cb.weak == 0 {
		metrics.AllocationReleased()
	}
}

// Counted is a strong, owning handle. Handles are not interchangeable:
// each one must be dropped separately, and a dropped handle grants no
// access even while other live handles exist.
type Counted[T any] struct {
	ctrl *control[T]
}

// New allocates a control block owning v and returns its first strong
// handle.
func New[T any](v T) *Counted[T] {
	return NewWithFinalizer(v, nil)
}

// NewWithFinalizer is New with a destruction hook: fin runs exactly once,
// with the payload, when the last strong handle drops.
func NewWithFinalizer[T any](v T, fin func(T)) *Counted[T] {
	metrics.AllocationCreated()
	return &Counted[T]{ctrl: &control[T]{strong: 1, value: v, fin: fin, alive: true}}
}

// Clone returns a new strong handle sharing the control block. The strong
// count grows by exactly one.
func (c *Counted[T]) Clone() *Counted[T] {
	c.ensureLive("rc.Clone")
	c.ctrl.strong++
	return &Counted[T]{ctrl: c.ctrl}
}

// Downgrade returns a non-owning weak handle to the same control block.
func (c *Counted[T]) Downgrade() *Weak[T] {
	c.ensureLive("rc.Downgrade")
	c.ctrl.weak++
	return &Weak[T]{ctrl: c.ctrl}
}

// Value returns a pointer to the payload, valid while this handle is live.
func (c *Counted[T]) Value() *T {
	c.ensureLive("rc.Value")
	return &c.ctrl.value
}

// StrongCount returns the number of live strong handles.
func (c *Counted[T]) StrongCount() int {
	c.ensureLive("rc.StrongCount")
	return c.ctrl.strong
}

// WeakCount returns the number of live weak handles.
func (c *Counted[T]) WeakCount() int {
	c.ensureLive("rc.WeakCount")
	return c.ctrl.weak
}

// Drop releases this handle. The drop observing the strong count reach
// zero finalizes the payload; the control block survives until the weak
// count is also zero.
//
// Drop is idempotent per handle (a second call is a no-op), so it
// composes with defer. Every other operation on a dropped handle is
// fatal.
func (c *Counted[T]) Drop() {
	if c == nil || c.ctrl == nil {
		return
	}
	cb := c.ctrl
	c.ctrl = nil

	cb.strong--
	if cb.strong > 0 {
		return
	}
	if cb.strong < 0 {
		panic("rc: strong count underflow")
	}
	cb.finalize()
	cb.released()
}

func (c *Counted[T]) ensureLive(op string) {
	if c == nil || c.ctrl == nil {
		diag.UseAfterConsume(op)
	}
}

// Weak is a non-owning handle: it keeps the control block reachable but
// does not extend the payload's lifetime.
type Weak[T any] struct {
	ctrl *control[T]
}

// Upgrade attempts to obtain a strong handle. It returns (nil, false)
// once the strong count has reached zero: a destroyed payload is never
// resurrected.
func (w *Weak[T]) Upgrade() (*Counted[T], bool) {
	if w == nil || w.ctrl == nil {
		return nil, false
	}
	if w.ctrl.strong == 0 {
		metrics.UpgradeFailed()
		return nil, false
	}
	w.ctrl.strong++
	return &Counted[T]{ctrl: w.ctrl}, true
}

// StrongCount returns the number of live strong handles, zero after the
// payload is gone.
func (w *Weak[T]) StrongCount() int {
	if w == nil || w.ctrl == nil {
		return 0
	}
	return w.ctrl.strong
}

// WeakCount returns the number of live weak handles.
func (w *Weak[T]) WeakCount() int {
	if w == nil || w.ctrl == nil {
		return 0
	}
	return w.ctrl.weak
}

// Drop releases this weak handle. Idempotent, like Counted.Drop.
func (w *Weak[T]) Drop() {
	if w == nil || w.ctrl == nil {
		return
	}
	cb := w.ctrl
	w.ctrl = nil

	cb.weak--
	if cb.weak < 0 {
		panic("rc: weak count underflow")
	}
	cb.released()
}
