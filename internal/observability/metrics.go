// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostViewIncrements counts successful view-counter bumps on post reads.
	PostViewIncrements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_post_view_increments_total",
		Help: "Number of post view counter increments.",
	})

	// VisitLogsOpened counts visit log rows created for authenticated readers.
	VisitLogsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_visit_logs_opened_total",
		Help: "Number of visit logs opened on post reads.",
	})

	// VisitLogsClosed counts visit logs closed via the read signal.
	VisitLogsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chronicle_visit_logs_closed_total",
		Help: "Number of visit logs closed via the read signal.",
	})

	// CacheHits tracks cache-aside hits and misses by cache key class.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_cache_hits_total",
		Help: "Cache hits by key class.",
	}, []string{"key"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_cache_misses_total",
		Help: "Cache misses by key class.",
	}, []string{"key"})

	// RedisErrors counts Redis failures that were degraded around rather than surfaced.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_redis_errors_total",
		Help: "Redis errors tolerated by cache and rate limiting, by command.",
	}, []string{"command"})

	// BlobOperations tracks media store operations by kind and outcome.
	BlobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_blob_operations_total",
		Help: "Media store operations by operation and status.",
	}, []string{"operation", "status"})

	// AuthFailures counts rejected credential and token attempts.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_auth_failures_total",
		Help: "Authentication failures by reason.",
	}, []string{"reason"})
)
