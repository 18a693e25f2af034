// Package obs holds the engine's prometheus instrumentation. Adapted from
// xDarkicex-libravdb/internal/obs/metrics.go: same promauto construction
// style, narrowed to this engine's own operations and given an explicit
// prometheus.Registerer argument (the teacher registers against the global
// default registry, which panics on double-registration the moment a test
// or an embedding application opens more than one index; that doesn't
// compose for a library, so every Metrics instance gets its own registry
// unless the caller supplies one).
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram/gauge the engine updates. A nil
// *Metrics is valid everywhere it's used; every method is a no-op in that
// case, so instrumentation stays opt-in the way the teacher's NewMetrics
// call is.
type Metrics struct {
	VectorInserts   prometheus.Counter
	VectorDeletes   prometheus.Counter
	SearchQueries   prometheus.Counter
	SearchErrors    prometheus.Counter
	SearchLatency   prometheus.Histogram
	CheckpointTotal prometheus.Counter
	CheckpointTime  prometheus.Histogram
	ModeTransitions *prometheus.CounterVec
	TombstoneCount  prometheus.Gauge
}

// New registers and returns a fresh Metrics set against reg. Pass
// prometheus.NewRegistry() for an isolated registry (the common case for an
// embedded index), or prometheus.DefaultRegisterer to publish alongside the
// rest of a host application's metrics.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		VectorInserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "annex_vector_inserts_total",
			Help: "Total vectors inserted.",
		}),
		VectorDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "annex_vector_deletes_total",
			Help: "Total vectors tombstoned.",
		}),
		SearchQueries: factory.NewCounter(prometheus.CounterOpts{
			Name: "annex_search_queries_total",
			Help: "Total search queries served.",
		}),
		SearchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "annex_search_errors_total",
			Help: "Total search queries that returned an error.",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "annex_search_latency_seconds",
			Help:    "Search call latency.",
			Buckets: prometheus.DefBuckets,
		}),
		CheckpointTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "annex_checkpoint_total",
			Help: "Total checkpoint calls.",
		}),
		CheckpointTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "annex_checkpoint_seconds",
			Help:    "Checkpoint call latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ModeTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "annex_mode_transitions_total",
			Help: "Dispatcher mode migrations, labeled by the transition direction.",
		}, []string{"transition"}),
		TombstoneCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "annex_tombstone_count",
			Help: "Current number of tombstoned (deleted, unreclaimed) ids.",
		}),
	}
}

// ObserveInsert records a single vector insertion. Safe to call on a nil
// Metrics.
func (m *Metrics) ObserveInsert() {
	if m == nil {
		return
	}
	m.VectorInserts.Inc()
}

// ObserveDelete records a tombstoning delete. Safe to call on a nil Metrics.
func (m *Metrics) ObserveDelete() {
	if m == nil {
		return
	}
	m.VectorDeletes.Inc()
	m.TombstoneCount.Inc()
}

// ObserveSearch records one search call's latency and outcome. Safe to call
// on a nil Metrics.
func (m *Metrics) ObserveSearch(seconds float64, err error) {
	if m == nil {
		return
	}
	m.SearchQueries.Inc()
	m.SearchLatency.Observe(seconds)
	if err != nil {
		m.SearchErrors.Inc()
	}
}

// ObserveCheckpoint records one checkpoint call's latency. Safe to call on a
// nil Metrics.
func (m *Metrics) ObserveCheckpoint(seconds float64) {
	if m == nil {
		return
	}
	m.CheckpointTotal.Inc()
	m.CheckpointTime.Observe(seconds)
}

// ObserveModeTransition records a dispatcher migration, e.g. "flat"->"graph".
// Safe to call on a nil Metrics.
func (m *Metrics) ObserveModeTransition(from, to string) {
	if m == nil {
		return
	}
	m.ModeTransitions.WithLabelValues(from + "->" + to).Inc()
}

// SetTombstoneCount overwrites the current tombstone gauge. Safe to call on
// a nil Metrics.
func (m *Metrics) SetTombstoneCount(n float64) {
	if m == nil {
		return
	}
	m.TombstoneCount.Set(n)
}
