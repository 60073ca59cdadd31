// Package observability registers and exposes the service's prometheus
// metrics.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	coveringCells = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "covering_cells",
			Help:    "Number of cells returned per covering search.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"engine"},
	)

	coveringRings = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "covering_rings",
			Help:    "Number of expansion rings walked per covering search.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"engine"},
	)

	coveringDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "covering_duration_seconds",
			Help:    "Covering search duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"engine"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Covering cache results by outcome.",
		},
		[]string{"outcome"},
	)

	storeOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Redis store operation duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "status"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveCovering(engine string, cells, rings int, durationSeconds float64) {
	coveringCells.WithLabelValues(engine).Observe(float64(cells))
	coveringRings.WithLabelValues(engine).Observe(float64(rings))
	coveringDurationSeconds.WithLabelValues(engine).Observe(durationSeconds)
}

func IncCacheHit()  { cacheResults.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheResults.WithLabelValues("miss").Inc() }

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOpSeconds.WithLabelValues(op, status).Observe(durationSeconds)
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
