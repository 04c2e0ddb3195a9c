// Package metrics holds the process-wide Prometheus collectors served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkyway_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milkyway_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	schemaCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkyway_schema_cache_lookups_total",
			Help: "Schema lookups served from cache (hit) or the warehouse (miss).",
		},
		[]string{"result"},
	)

	schemaLookupFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkyway_schema_lookup_failures_total",
			Help: "Failed schema lookups by failure kind.",
		},
		[]string{"kind"},
	)

	dbtInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkyway_dbt_invocations_total",
			Help: "dbt invocations by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	dbtDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "milkyway_dbt_duration_seconds",
			Help:    "Wall time of dbt invocations.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"mode"},
	)

	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milkyway_llm_requests_total",
			Help: "LLM requests by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	agentFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "milkyway_agent_fallbacks_total",
			Help: "Chat messages answered by the rule-based pipeline instead of the LLM.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		schemaCacheLookupsTotal,
		schemaLookupFailuresTotal,
		dbtInvocationsTotal,
		dbtDurationSeconds,
		llmRequestsTotal,
		agentFallbacksTotal,
	)
}

func ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func ObserveSchemaCache(hit bool) {
	if hit {
		schemaCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	schemaCacheLookupsTotal.WithLabelValues("miss").Inc()
}

func IncrementSchemaLookupFailure(kind string) {
	schemaLookupFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveDBT records one dbt invocation. outcome is "success", "failed" or "unavailable".
func ObserveDBT(mode, outcome string, elapsed time.Duration) {
	dbtInvocationsTotal.WithLabelValues(mode, outcome).Inc()
	dbtDurationSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func ObserveLLMRequest(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

func IncrementAgentFallback() {
	agentFallbacksTotal.Inc()
}
