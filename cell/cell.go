// Package cell provides unchecked interior mutability for a single
// logical owner.
//
// A Cell moves values in and out of its slot by copy and replace; it never
// hands out a pointer into the slot, so aliasing cannot be observed through
// it. It performs no tracking at all: correctness relies on exactly one
// exclusive handle to the Cell existing at a time in the surrounding
// ownership graph, which is the caller's responsibility. For dynamically
// checked aliasing see the refcell package.
//
// Cells are single-goroutine. No operation blocks or errors; the only
// fatal condition is touching a Cell after IntoInner consumed it.
package cell

import "github.com/kolkov/ownrt/internal/diag"

// Cell is a single storage slot owning exactly one T.
type Cell[T any] struct {
	value    T
	consumed bool
}

// New creates a Cell owning v.
func New[T any](v T) *Cell[T] {
	return &Cell[T]{value: v}
}

// Get returns a copy of the contained value.
//
// The copy is shallow: a T holding pointers duplicates the pointers, not
// what they point at. Callers needing deep duplication must do it
// themselves before sharing the result.
func (c *Cell[T]) Get() T {
	c.ensureLive("cell.Get")
	return c.value
}

// Set replaces the contained value, discarding the previous one.
func (c *Cell[T]) Set(v T) {
	c.ensureLive("cell.Set")
	c.value = v
}

// Replace swaps v into the slot and returns the previous value.
func (c *Cell[T]) Replace(v T) T {
	c.ensureLive("cell.Replace")
	old := c.value
	c.value = v
	return old
}

// Take moves the contained value out, leaving the zero value of T behind.
func (c *Cell[T]) Take() T {
	c.ensureLive("cell.Take")
	var zero T
	old := c.value
	c.value = zero
	return old
}

// IntoInner consumes the Cell and returns the contained value. Valid only
// when no other handle to the Cell exists; any operation on the Cell
// afterwards is a fatal use-after-consume.
func (c *Cell[T]) IntoInner() T {
	c.ensureLive("cell.IntoInner")
	c.consumed = true
	var zero T
	old := c.value
	c.value = zero
	return old
}

func (c *Cell[T]) ensureLive(op string) {
	if c.consumed {
		diag.UseAfterConsume(op)
	}
}
