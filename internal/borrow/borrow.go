// Package borrow implements the dynamic borrow-tracking state machine.
//
// A Tracker is a tagged state over a single storage slot:
//
//	Unshared  — no borrow outstanding
//	Shared    — n >= 1 read-only borrows outstanding
//	Exclusive — exactly one read-write borrow outstanding
//
// Invariant: a live exclusive borrow and any live shared borrow never
// coexist, and at most one exclusive borrow is live at a time. The tracker
// enforces this at acquire time; guaranteed release on every exit path is
// the wrapping guard's job (see the refcell package).
//
// The tracker is single-goroutine, like the cell it guards. It has no
// internal synchronization; cross-goroutine use is outside the contract.
package borrow

import (
	"errors"
	"strconv"
)

// ErrConflict is returned when an acquisition would violate the aliasing
// invariant. Wrapping error types in the public API match it via errors.Is.
var ErrConflict = errors.New("borrow conflict")

// State is the tag of the tracker's current aliasing state.
type State uint8

const (
	// Unshared means no borrow is outstanding.
	Unshared State = iota
	// Shared means one or more read-only borrows are outstanding.
	Shared
	// Exclusive means a single read-write borrow is outstanding.
	Exclusive
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Unshared:
		return "unshared"
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "invalid(" + strconv.Itoa(int(s)) + ")"
	}
}

// Tracker is the borrow state machine. The zero value is a valid tracker
// in the Unshared state.
type Tracker struct {
	state  State
	shared uint32
}

// AcquireShared attempts to take one more read-only borrow.
//
// Unshared and Shared(n) transition to Shared(n+1); Exclusive fails with
// ErrConflict. A second shared acquisition from the same call stack while
// an exclusive borrow is held is indistinguishable from a genuine conflict
// and fails the same way.
func (t *Tracker) AcquireShared() error {
	switch t.state {
	case Unshared:
		t.state = Shared
		t.shared = 1
		return nil
	case Shared:
		t.shared++
		return nil
	default:
		return ErrConflict
	}
}

// AcquireExclusive attempts to take the single read-write borrow.
// Only Unshared transitions to Exclusive; anything else fails with
// ErrConflict.
func (t *Tracker) AcquireExclusive() error {
	if t.state != Unshared {
		return ErrConflict
	}
	t.state = Exclusive
	return nil
}

// ReleaseShared returns one read-only borrow. Shared(1) transitions to
// Unshared, Shared(n>1) to Shared(n-1).
//
// Calling it in any other state means a guard released a borrow it never
// held; the tracker is corrupted and this panics.
func (t *Tracker) ReleaseShared() {
	if t.state != Shared || t.shared == 0 {
		panic("borrow: ReleaseShared on " + t.Describe() + " tracker")
	}
	t.shared--
	if t.shared == 0 {
		t.state = Unshared
	}
}

// ReleaseExclusive returns the read-write borrow, transitioning Exclusive
// to Unshared. Panics in any other state (corrupted tracker).
func (t *Tracker) ReleaseExclusive() {
	if t.state != Exclusive {
		panic("borrow: ReleaseExclusive on " + t.Describe() + " tracker")
	}
	t.state = Unshared
}

// State returns the current state tag.
func (t *Tracker) State() State {
	return t.state
}

// SharedCount returns the number of outstanding read-only borrows
// (zero unless the state is Shared).
func (t *Tracker) SharedCount() int {
	if t.state != Shared {
		return 0
	}
	return int(t.shared)
}

// Describe returns the state with the shared count folded in, for error
// messages: "unshared", "shared(2)", "exclusive".
func (t *Tracker) Describe() string {
	if t.state == Shared {
		return "shared(" + strconv.FormatUint(uint64(t.shared), 10) + ")"
	}
	return t.state.String()
}
