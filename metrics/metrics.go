// Package metrics exposes the Prometheus counters/histograms this
// module's ambient stack carries even though observability UIs are out
// of scope (spec §1). The promauto init mirrors
// _examples/bsv-blockchain-teranode/services/validator/metrics.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MempoolSize            prometheus.Gauge
	MempoolAdmitted        prometheus.Counter
	MempoolRejected        prometheus.Counter
	MempoolAdmitDuration   prometheus.Histogram
	ForestNormalizeDuration prometheus.Histogram
	BlocksApplied          prometheus.Counter
)

var initialised = false

func init() {
	Init()
}

// Init registers every metric exactly once. The package's init function
// calls it at load time, so the package-level vars are set before any
// importer (package tests included) records a metric; later calls are
// no-ops.
func Init() {
	if initialised {
		return
	}
	initialised = true

	MempoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "zkvmnode",
		Subsystem: "mempool",
		Name:      "size",
		Help:      "Number of entries currently admitted to the mempool",
	})
	MempoolAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zkvmnode",
		Subsystem: "mempool",
		Name:      "admitted_total",
		Help:      "Number of transactions successfully admitted to the mempool",
	})
	MempoolRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zkvmnode",
		Subsystem: "mempool",
		Name:      "rejected_total",
		Help:      "Number of transactions rejected during admission or rebase",
	})
	MempoolAdmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zkvmnode",
		Subsystem: "mempool",
		Name:      "admit_duration_seconds",
		Help:      "Duration of a single mempool admission attempt",
		Buckets:   prometheus.DefBuckets,
	})
	ForestNormalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "zkvmnode",
		Subsystem: "utreexo",
		Name:      "normalize_duration_seconds",
		Help:      "Duration of a WorkForest.Normalize call",
		Buckets:   prometheus.DefBuckets,
	})
	BlocksApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "zkvmnode",
		Subsystem: "state",
		Name:      "blocks_applied_total",
		Help:      "Number of blocks successfully applied to the blockchain state",
	})
}
