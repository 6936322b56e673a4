// Package arc provides thread-safe reference-counted shared ownership.
//
// The external contract matches package rc, but the strong/weak counters
// are atomic: handles may be cloned, dropped, downgraded and upgraded
// from any number of goroutines. Counter updates are lock-free and
// linearizable; the payload itself is not protected — it is read-only
// through shared handles, and mutation requires a caller-supplied
// sync.Locker around every access:
//
//	type hits struct {
//		mu sync.Mutex
//		n  int
//	}
//	h := arc.New(&hits{})
//	v := *h.Value()
//	v.mu.Lock()
//	v.n++
//	v.mu.Unlock()
//
// Two races the counter protocol closes:
//
//   - Upgrade vs final drop: Weak.Upgrade never load-then-increments; it
//     retries a compare-and-swap that only succeeds against a still
//     positive strong count, so a destroyed payload is never resurrected.
//   - Finalization ordering: only the drop observing the 1->0 strong
//     transition finalizes, and the atomic decrement orders that
//     finalization after every earlier decrement.
//
// Clone through a handle the caller no longer holds is a discipline
// violation the runtime surfaces loudly: the post-increment sanity check
// panics instead of corrupting the count.
package arc

import (
	uberatomic "go.uber.org/atomic"

	"github.com/kolkov/ownrt/internal/diag"
	"github.com/kolkov/ownrt/metrics"
)

// control is the shared allocation behind every handle to one payload.
type control[T any] struct {
	strong   uberatomic.Int64
	weak     uberatomic.Int64
	value    T
	fin      func(T)
	reported uberatomic.Bool
}

// finalize runs on the single goroutine whose decrement took strong to
// zero; no strong handle is live and no upgrade can succeed, so the
// payload is exclusively ours to destroy.
func (cb *control[T]) finalize() {
	old := cb.value
	var zero T
	cb.value = zero
	metrics.PayloadFinalized()
	if cb.fin != nil {
		cb.fin(old)
	}
}

// released reports the control block becoming unreachable. The last
// strong and last weak drop can race here, so the gauge update is gated
// to fire exactly once.
func (cb *control[T]) released() {
	if cb.strong.Load() == 0 && cb.weak.Load() == 0 &&
		cb.reported.CompareAndSwap(false, true) {
		metrics.AllocationReleased()
	}
}

// Counted is a strong, owning handle, safe to hand across goroutines.
// The handle value itself still belongs to one goroutine at a time; to
// share, Clone and give away the clone.
type Counted[T any] struct {
	ctrl *control[T]
}

// New allocates a control block owning v and returns its first strong
// handle.
func New[T any](v T) *Counted[T] {
	return NewWithFinalizer(v, nil)
}

// NewWithFinalizer is New with a destruction hook: fin runs exactly once,
// on the goroutine that drops the last strong handle.
func NewWithFinalizer[T any](v T, fin func(T)) *Counted[T] {
	metrics.AllocationCreated()
	cb := &control[T]{value: v, fin: fin}
	cb.strong.Store(1)
	return &Counted[T]{ctrl: cb}
}

// Clone returns a new strong handle sharing the control block. Safe to
// race against concurrent drops of other handles: the caller still holds
// this handle, so the count is at least 1 throughout.
func (c *Counted[T]) Clone() *Counted[T] {
	c.ensureLive("arc.Clone")
	if n := c.ctrl.strong.Inc(); n < 2 {
		panic("arc: Clone observed strong count < 2; cloned through a dead handle")
	}
	return &Counted[T]{ctrl: c.ctrl}
}

// Downgrade returns a non-owning weak handle to the same control block.
func (c *Counted[T]) Downgrade() *Weak[T] {
	c.ensureLive("arc.Downgrade")
	c.ctrl.weak.Inc()
	return &Weak[T]{ctrl: c.ctrl}
}

// Value returns a pointer to the payload, valid while this handle is
// live. Reads through it are safe from any goroutine; writes require the
// caller's lock as described in the package documentation.
func (c *Counted[T]) Value() *T {
	c.ensureLive("arc.Value")
	return &c.ctrl.value
}

// StrongCount returns the strong count at the instant of the load.
// It can be stale by the time the caller looks at it.
func (c *Counted[T]) StrongCount() int64 {
	c.ensureLive("arc.StrongCount")
	return c.ctrl.strong.Load()
}

// WeakCount returns the weak count at the instant of the load.
func (c *Counted[T]) WeakCount() int64 {
	c.ensureLive("arc.WeakCount")
	return c.ctrl.weak.Load()
}

// Drop releases this handle. The goroutine whose decrement observes the
// 1->0 transition — and only that one — finalizes the payload.
// Idempotent per handle, like rc.Counted.Drop.
func (c *Counted[T]) Drop() {
	if c == nil || c.ctrl == nil {
		return
	}
	cb := c.ctrl
	c.ctrl = nil

	n := cb.strong.Dec()
	if n > 0 {
		return
	}
	if n < 0 {
		panic("arc: strong count underflow")
	}
	cb.finalize()
	cb.released()
}

func (c *Counted[T]) ensureLive(op string) {
	if c == nil || c.ctrl == nil {
		diag.UseAfterConsume(op)
	}
}

// Weak is a non-owning handle, safe to hand across goroutines.
type Weak[T any] struct {
	ctrl *control[T]
}

// Upgrade attempts to obtain a strong handle. It returns (nil, false)
// once the strong count has reached zero.
//
// The loop is the safety-critical part: between a plain load and a plain
// increment the last strong handle could drop and finalize the payload.
// The compare-and-swap only applies the increment if the count is still
// the positive value that was read, retrying when another thread moved
// it in between.
func (w *Weak[T]) Upgrade() (*Counted[T], bool) {
	if w == nil || w.ctrl == nil {
		return nil, false
	}
	for {
		old := w.ctrl.strong.Load()
		if old == 0 {
			metrics.UpgradeFailed()
			return nil, false
		}
		if w.ctrl.strong.CompareAndSwap(old, old+1) {
			return &Counted[T]{ctrl: w.ctrl}, true
		}
	}
}

// StrongCount returns the strong count at the instant of the load.
func (w *Weak[T]) StrongCount() int64 {
	if w == nil || w.ctrl == nil {
		return 0
	}
	return w.ctrl.strong.Load()
}

// WeakCount returns the weak count at the instant of the load.
func (w *Weak[T]) WeakCount() int64 {
	if w == nil || w.ctrl == nil {
		return 0
	}
	return w.ctrl.weak.Load()
}

// Drop releases this weak handle. Idempotent per handle.
func (w *Weak[T]) Drop() {
	if w == nil || w.ctrl == nil {
		return
	}
	cb := w.ctrl
	w.ctrl = nil

	if cb.weak.Dec() < 0 {
		panic("arc: weak count underflow")
	}
	cb.released()
}
