// Package metrics provides Prometheus metrics for the Wikibase API server.
// It tracks tool calls, MediaWiki API round trips, sessions and the
// property-id cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "wikibase_api"
)

var (
	// RequestsTotal counts MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures tool call latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Tool call latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing tool calls
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of tool calls currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// OperationsTotal counts entity operations by operation and status
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "entity_operations_total",
		Help:      "Entity operations by operation and status",
	}, []string{"operation", "status"})

	// WikiAPIRequestsTotal counts MediaWiki action API requests
	WikiAPIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_requests_total",
		Help:      "MediaWiki API requests by action and status",
	}, []string{"action", "status"})

	// WikiAPILatency measures MediaWiki API latency
	WikiAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "wiki_api_latency_seconds",
		Help:      "MediaWiki API latency by action",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// WikiAPIErrors counts API error objects by MediaWiki error code
	WikiAPIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "wiki_api_errors_total",
		Help:      "MediaWiki API errors by action and error code",
	}, []string{"action", "error_code"})

	// SessionsInitialized counts bot sessions by how they were started
	SessionsInitialized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sessions_initialized_total",
		Help:      "Bot sessions initialized, explicit or implicit",
	}, []string{"mode"})

	// AuthFailures counts login and token failures
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "auth_failures_total",
		Help:      "Authentication failure count by reason",
	}, []string{"reason"})

	// PropertyCacheHits counts property ids served from the store
	PropertyCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "property_cache_hits_total",
		Help:      "Property lookups answered from the property store",
	})

	// PropertyCacheMisses counts property lookups that created a property
	PropertyCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "property_cache_misses_total",
		Help:      "Property lookups that required creating a property",
	})
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordRequest records a completed tool call with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	RequestsTotal.WithLabelValues(tool, status(success)).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}

// RecordOperation records a completed entity operation
func RecordOperation(operation string, success bool) {
	OperationsTotal.WithLabelValues(operation, status(success)).Inc()
}

// RecordAPICall records a MediaWiki API round trip
func RecordAPICall(action string, duration float64, success bool, errorCode string) {
	WikiAPIRequestsTotal.WithLabelValues(action, status(success)).Inc()
	WikiAPILatency.WithLabelValues(action).Observe(duration)
	if errorCode != "" {
		WikiAPIErrors.WithLabelValues(action, errorCode).Inc()
	}
}

// RecordSessionInit records a bot session initialization
func RecordSessionInit(implicit bool) {
	mode := "explicit"
	if implicit {
		mode = "implicit"
	}
	SessionsInitialized.WithLabelValues(mode).Inc()
}

// RecordPropertyCacheAccess records a property store hit or miss
func RecordPropertyCacheAccess(hit bool) {
	if hit {
		PropertyCacheHits.Inc()
	} else {
		PropertyCacheMisses.Inc()
	}
}
