// Package ownrt is a pure-Go ownership and aliasing runtime.
//
// Go's type system does not track ownership or aliasing; this module
// provides the runtime pieces to enforce both dynamically, without
// compiler support. It is built bottom-up from four components:
//
//   - [github.com/kolkov/ownrt/cell] — unchecked copy/replace interior
//     mutability for a single logical owner.
//   - [github.com/kolkov/ownrt/refcell] — runtime-checked borrowing: many
//     shared read-only guards or exactly one exclusive guard, verified at
//     acquire time.
//   - [github.com/kolkov/ownrt/rc] — single-goroutine reference counting
//     with strong/weak handles and exactly-once payload finalization.
//   - [github.com/kolkov/ownrt/arc] — the thread-safe twin of rc, with
//     lock-free atomic counters and a compare-and-swap weak upgrade.
//
// Data flows strictly upward: application code allocates a value inside
// rc or arc, hands out shared handles, and wraps the payload in a
// refcell.TrackedCell when shared handles must also mutate it.
//
// # Error model
//
// Borrow conflicts are the one dual-surface condition: the Try variants
// return a *refcell.ConflictError, the plain variants treat the conflict
// as fatal. Use of a consumed cell or dropped handle is always fatal.
// Fatal conditions are logged (go.uber.org/zap, level via OWNRT_LOG) and
// terminate the offending goroutine with a typed panic; they never
// silently corrupt state. Weak upgrades after the payload is gone are not
// errors at all, just an empty result.
//
// # Non-goals
//
// No garbage collection and no cycle detection: a cycle of strong handles
// leaks, by design. Break cycles by holding weak back-references. No
// cross-process sharing.
//
// The runtime exports Prometheus metrics under the "ownrt" namespace; see
// [github.com/kolkov/ownrt/metrics].
package ownrt

// Info provides runtime information about the ownership runtime.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Components lists the primitives this build provides.
	Components []string
}

// GetInfo returns information about the ownership runtime.
func GetInfo() Info {
	return Info{
		Version:    Version,
		Components: []string{"cell", "refcell", "rc", "arc"},
	}
}
