// Package metrics provides Prometheus instrumentation for the calculator
// server: a gauge for live sessions, counters for tool call outcomes and
// evictions, and a histogram for expression evaluation latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions tracks the current number of live client sessions.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calculator_active_sessions",
		Help: "Current number of live client sessions",
	})

	// ToolCalls counts tool invocations, labeled by tool name and
	// outcome ("ok" or "error").
	ToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calculator_tool_calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool", "status"})

	// EvalDuration records expression evaluation latency in seconds.
	EvalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calculator_eval_duration_seconds",
		Help:    "Expression evaluation latency in seconds",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	})

	// SessionsEvicted counts sessions removed by the idle sweep.
	SessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calculator_sessions_evicted_total",
		Help: "Total number of sessions removed by the idle sweep",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		ToolCalls,
		EvalDuration,
		SessionsEvicted,
	)
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
