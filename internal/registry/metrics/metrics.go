// Package metrics provides Prometheus metrics for the lookup layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the lookup-layer metrics: cache effectiveness, authority
// call volume and latency, and single-flight coalescing.
type Metrics struct {
	CacheHitsTotal   *prometheus.CounterVec // cache hits by lookup kind
	CacheMissesTotal *prometheus.CounterVec // cache misses by lookup kind

	AuthorityCallsTotal          *prometheus.CounterVec   // external calls by authority and outcome
	AuthorityCallDurationSeconds *prometheus.HistogramVec // external call latency by authority
	LookupDurationSeconds        *prometheus.HistogramVec // end-to-end lookup latency by kind
	FlightCoalescedTotal         *prometheus.CounterVec   // lookups answered by a flight already in progress
}

// New creates a Metrics instance registered on the given registerer. Passing
// nil registers on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		CacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registra_cache_hits_total",
			Help: "Total number of lookup cache hits by kind",
		}, []string{"kind"}),

		CacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registra_cache_misses_total",
			Help: "Total number of lookup cache misses by kind",
		}, []string{"kind"}),

		AuthorityCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registra_authority_calls_total",
			Help: "Total number of external authority calls by authority and outcome",
		}, []string{"authority", "outcome"}),

		AuthorityCallDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registra_authority_call_duration_seconds",
			Help:    "Duration of external authority calls by authority",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"authority"}),

		LookupDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registra_lookup_duration_seconds",
			Help:    "End-to-end lookup duration by kind, cache hits included",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.25, 1, 2.5, 10},
		}, []string{"kind"}),

		FlightCoalescedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "registra_flight_coalesced_total",
			Help: "Total number of lookups answered by an in-progress flight for the same key",
		}, []string{"kind"}),
	}
}

// RecordCacheHit records a cache hit for the given lookup kind.
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a cache miss for the given lookup kind.
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordAuthorityCall records one external call and its latency.
// Outcome is one of "found", "not_found" or "error".
func (m *Metrics) RecordAuthorityCall(authorityName, outcome string, elapsed time.Duration) {
	m.AuthorityCallsTotal.WithLabelValues(authorityName, outcome).Inc()
	m.AuthorityCallDurationSeconds.WithLabelValues(authorityName).Observe(elapsed.Seconds())
}

// ObserveLookupDuration records the end-to-end duration of one lookup.
func (m *Metrics) ObserveLookupDuration(kind string, elapsed time.Duration) {
	m.LookupDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordCoalesced records a lookup that joined an in-progress flight.
func (m *Metrics) RecordCoalesced(kind string) {
	m.FlightCoalescedTotal.WithLabelValues(kind).Inc()
}
