package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storedex"

// Engine Prometheus metrics.
var (
	IndexUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_upserts_total",
			Help:      "Entry index upserts by outcome",
		},
		[]string{"status"}, // "ok" / "invalid" / "unavailable"
	)

	IndexRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_retries_total",
			Help:      "Index staging attempts that failed and were retried",
		},
	)

	IndexedEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_entries",
			Help:      "Entries currently visible in each index",
		},
		[]string{"index"}, // "text" / "geo"
	)

	IndexRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_rebuild_duration_seconds",
			Help:      "Full index rebuild duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Engine query duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"}, // "search" / "near" / "top"
	)

	SlugCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slug_collisions_total",
			Help:      "Slug candidates already claimed at commit time",
		},
	)
)

var registerOnce sync.Once

// Register registers the HTTP and engine metrics with the default registry.
// Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			DegradedWritesTotal,
			IndexUpsertsTotal,
			IndexRetriesTotal,
			IndexedEntries,
			IndexRebuildDuration,
			QueryDuration,
			SlugCollisionsTotal,
		)
	})
}
