// Package stackdepot stores deduplicated acquisition stacks for borrow
// diagnostics.
//
// When site capture is enabled, every successful borrow records the stack
// it was taken from. A later conflicting borrow can then report not just
// "the cell is shared(2)" but where the still-live borrow that blocks it
// was acquired. Identical stacks are stored once, referenced by a 64-bit
// FNV-1a hash, so long-lived hot loops cost one capture each.
package stackdepot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
)

// MaxFrames bounds a captured site to its top frames. Borrow bugs are
// almost always visible within the top eight frames.
const MaxFrames = 8

// Site is a fixed-size captured acquisition stack.
type Site struct {
	pc [MaxFrames]uintptr
}

// depot deduplicates sites globally. Key: uint64 hash, value: *Site.
// sync.Map because reads (re-capturing a known site) dominate writes.
var depot sync.Map

// Capture records the caller's stack and returns a handle for it.
// skip is the number of frames to drop on top of Capture itself, so a
// wrapper can hide its own plumbing. Returns 0 when no stack is available.
func Capture(skip int) uint64 {
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(2+skip, pcs[:])
	if n == 0 {
		return 0
	}

	h := hashFrames(pcs[:n])
	if _, ok := depot.Load(h); ok {
		return h
	}
	depot.Store(h, &Site{pc: pcs})
	return h
}

// Lookup resolves a handle returned by Capture. Returns nil for the zero
// handle or an unknown one.
func Lookup(handle uint64) *Site {
	if handle == 0 {
		return nil
	}
	v, ok := depot.Load(handle)
	if !ok {
		return nil
	}
	return v.(*Site)
}

// Format renders the site for a conflict report, one "func / file:line"
// pair per frame, runtime internals filtered out.
func (s *Site) Format() string {
	if s == nil {
		return "  <unknown>\n"
	}

	frames := runtime.CallersFrames(s.pc[:])

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}
		fmt.Fprintf(&buf, "  %s()\n      %s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

// hashFrames computes the FNV-1a hash of the program counters.
func hashFrames(pcs []uintptr) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for _, pc := range pcs {
		for i := 0; i < 8; i++ {
			b[i] = byte(pc >> (8 * i))
		}
		_, _ = h.Write(b[:])
	}
	return h.Sum64()
}

// Reset clears the depot. Test helper, not safe for concurrent use.
func Reset() {
	depot = sync.Map{}
}

// Count returns the number of unique sites stored. O(n), diagnostics only.
func Count() int {
	n := 0
	depot.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
