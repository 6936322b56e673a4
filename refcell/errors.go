package refcell

import (
	"github.com/kolkov/ownrt/internal/borrow"
)

// ErrConflict matches every borrow conflict produced by this package:
//
//	if _, err := c.TryBorrowMut(); errors.Is(err, refcell.ErrConflict) { ... }
var ErrConflict = borrow.ErrConflict

// ConflictError reports a rejected borrow: which operation was attempted,
// the borrow state that rejected it and, when site capture is enabled,
// where the still-live blocking borrow was acquired.
type ConflictError struct {
	// Op is the rejected operation, e.g. "refcell.TryBorrowMut".
	Op string

	// State describes the cell's borrow state at the time of the
	// rejection, e.g. "shared(2)" or "exclusive".
	State string

	// HeldAt is the formatted acquisition stack of the borrow blocking
	// this one. Empty when site capture is disabled.
	HeldAt string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	msg := "refcell: " + e.Op + ": borrow conflict: cell is " + e.State
	if e.HeldAt != "" {
		msg += "\nblocking borrow acquired at:\n" + e.HeldAt
	}
	return msg
}

// Is reports whether target is ErrConflict, hooking this type into
// errors.Is chains.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
