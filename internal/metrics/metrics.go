// Package metrics holds the Prometheus collectors. All are registered on the
// default registry via promauto and served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts finished requests by route, not raw path,
	// so parameterized routes stay one series.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lectern_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lectern_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lectern_http_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lectern_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"class"},
	)

	StreamedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lectern_streamed_bytes_total",
			Help: "Audio bytes proxied through the stream endpoint",
		},
	)

	PresignCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lectern_presign_cache_hits_total",
			Help: "Presigned URL lookups served from cache",
		},
	)

	PresignCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lectern_presign_cache_misses_total",
			Help: "Presigned URL lookups that required signing",
		},
	)
)
