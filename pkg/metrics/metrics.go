// Package metrics provides Prometheus metrics for the search server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codesnippets"

var (
	// SearchTotal counts search requests by kind and cache outcome
	// (hit, miss, error).
	SearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_total",
			Help:      "Total number of search requests",
		},
		[]string{"kind", "outcome"},
	)

	// SearchDuration measures search latency including the cache lookup.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "outcome"},
	)

	// CacheErrorsTotal counts swallowed cache backend failures.
	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache backend errors",
		},
		[]string{"backend", "operation"},
	)

	// CacheEvictionsTotal counts entries removed to honour the size bound.
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of cache entries evicted by the size bound",
		},
		[]string{"backend"},
	)

	// ExportTotal counts export requests by kind and HTTP status.
	ExportTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_total",
			Help:      "Total number of export requests",
		},
		[]string{"kind", "status"},
	)
)

// RecordSearch records a search request.
func RecordSearch(kind, outcome string, seconds float64) {
	SearchTotal.WithLabelValues(kind, outcome).Inc()
	SearchDuration.WithLabelValues(kind, outcome).Observe(seconds)
}

// RecordCacheError records a cache backend failure.
func RecordCacheError(backend, operation string) {
	CacheErrorsTotal.WithLabelValues(backend, operation).Inc()
}

// RecordEvictions records entries evicted from a cache backend.
func RecordEvictions(backend string, n int) {
	if n <= 0 {
		return
	}
	CacheEvictionsTotal.WithLabelValues(backend).Add(float64(n))
}

// RecordExport records an export request.
func RecordExport(kind, status string) {
	ExportTotal.WithLabelValues(kind, status).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
