// Package metrics exposes Prometheus collectors for the ownership runtime.
//
// All collectors are registered with the default registry during init().
// Core packages report through the helper functions below; serving the
// metrics (promhttp) is the embedding application's concern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics used in monitoring the runtime.
var (
	borrowConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of shared/exclusive borrow requests rejected with a conflict",
			Name:      "borrow_conflicts_total",
			Namespace: "ownrt",
		},
	)

	fatalViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of fatal contract violations (double exclusive borrow, use after consume)",
			Name:      "fatal_violations_total",
			Namespace: "ownrt",
		},
	)

	liveAllocations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of reference-counted control blocks currently alive",
			Name:      "live_allocations",
			Namespace: "ownrt",
		},
	)

	payloadFinalizations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of payloads finalized by the last strong handle dropping",
			Name:      "payload_finalizations_total",
			Namespace: "ownrt",
		},
	)

	failedUpgrades = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of weak-to-strong upgrades that found the payload already gone",
			Name:      "failed_upgrades_total",
			Namespace: "ownrt",
		},
	)
)

func init() {
	prometheus.MustRegister(
		borrowConflicts,
		fatalViolations,
		liveAllocations,
		payloadFinalizations,
		failedUpgrades,
	)
}

// BorrowConflict records a rejected borrow request.
func BorrowConflict() { borrowConflicts.Inc() }

// FatalViolation records a fatal contract violation.
func FatalViolation() { fatalViolations.Inc() }

// AllocationCreated records a new control block.
func AllocationCreated() { liveAllocations.Inc() }

// AllocationReleased records a control block becoming unreachable.
func AllocationReleased() { liveAllocations.Dec() }

// PayloadFinalized records an exactly-once payload finalization.
func PayloadFinalized() { payloadFinalizations.Inc() }

// UpgradeFailed records a weak upgrade that returned empty.
func UpgradeFailed() { failedUpgrades.Inc() }
