package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// View recorder metrics
	ViewsConfirmedTotal    prometheus.CounterVec
	ViewFlushesTotal       prometheus.CounterVec
	ViewFlushFailuresTotal prometheus.CounterVec
	ViewFlushBatchSize     prometheus.HistogramVec
	ViewSeedDuration       prometheus.HistogramVec
	ViewSeedFailuresTotal  prometheus.CounterVec
	ActiveRecorders        prometheus.GaugeVec

	// Viewed-set cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			ViewsConfirmedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "views_confirmed_total",
					Help: "Views that completed the dwell period and entered the pending buffer",
				},
				[]string{"trigger"}, // "dwell", "manual"
			),
			ViewFlushesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "view_flushes_total",
					Help: "Batched view upserts issued to the store",
				},
				[]string{},
			),
			ViewFlushFailuresTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "view_flush_failures_total",
					Help: "Batched view upserts that failed and were dropped",
				},
				[]string{},
			),
			ViewFlushBatchSize: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "view_flush_batch_size",
					Help:    "Number of post IDs per flushed batch",
					Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
				},
				[]string{},
			),
			ViewSeedDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "view_seed_duration_seconds",
					Help:    "Time to seed a recorder's viewed-set from storage",
					Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"source"}, // "database", "cache"
			),
			ViewSeedFailuresTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "view_seed_failures_total",
					Help: "Seed reads that failed (recorder started with an empty viewed-set)",
				},
				[]string{},
			),
			ActiveRecorders: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "active_view_recorders",
					Help: "Live per-user view recorder sessions",
				},
				[]string{},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
		}
	})
	return instance
}

// Get returns the metrics singleton, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
