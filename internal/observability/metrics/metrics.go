package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "energy_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	readingsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_readings_ingested_total",
		Help: "Count of stored readings by device type",
	}, []string{"device_type"})

	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "energy_aggregation_duration_seconds",
		Help:    "Duration of statistics aggregation by kind",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	statsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_stats_cache_lookups_total",
		Help: "Stats cache lookups by outcome",
	}, []string{"outcome"})

	recommendationsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_recommendations_served_total",
		Help: "Recommendation responses by source (ai or fallback)",
	}, []string{"source"})

	aiBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "energy_ai_circuit_breaker_state",
		Help: "AI circuit breaker state (1 for the active state)",
	}, []string{"state"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveReadingIngested counts one stored reading
func ObserveReadingIngested(deviceType string) {
	readingsIngested.WithLabelValues(deviceType).Inc()
}

// ObserveAggregation records how long one aggregation took
func ObserveAggregation(kind string, duration time.Duration) {
	aggregationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveStatsCache counts a cache lookup with outcome "hit" or "miss"
func ObserveStatsCache(outcome string) {
	statsCacheLookups.WithLabelValues(outcome).Inc()
}

// ObserveRecommendation counts a served recommendation by source
func ObserveRecommendation(source string) {
	recommendationsServed.WithLabelValues(source).Inc()
}

// SetAIBreakerState marks the given breaker state as active
func SetAIBreakerState(state string) {
	for _, s := range []string{"CLOSED", "OPEN", "HALF_OPEN"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		aiBreakerState.WithLabelValues(s).Set(v)
	}
}
