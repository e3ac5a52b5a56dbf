// Package metrics declares the Prometheus instrumentation surface.
// Adapted from the teacher's internal/metrics/metrics.go, re-labeled from
// worker/reaper concerns to tick/claim/order/http-step concerns.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tick Scheduler metrics

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fleetcron",
		Name:      "tick_duration_seconds",
		Help:      "Wall time spent executing one scheduled minute's tick.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// Order Coordinator metrics

	OrderPosition = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetcron",
		Name:      "order_position",
		Help:      "This machine's most recently computed fleet position.",
	})

	HeartbeatAge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetcron",
		Name:      "heartbeat_age_seconds",
		Help:      "Seconds since this machine's last successful heartbeat.",
	})

	// Run Claimer metrics

	ClaimOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetcron",
		Name:      "claim_outcomes_total",
		Help:      "Total run claim attempts, by outcome (won, lost).",
	}, []string{"outcome"})

	// HTTP Step Runner metrics

	StepAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetcron",
		Name:      "step_attempts_total",
		Help:      "Total HTTP step attempts, by outcome.",
	}, []string{"outcome"})

	StepLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetcron",
		Name:      "step_latency_seconds",
		Help:      "Latency of one HTTP step attempt.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})

	// Agent lifecycle

	AgentStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetcron",
		Name:      "agent_start_time_seconds",
		Help:      "Unix timestamp when the agent started.",
	})

	AgentShutdownsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetcron",
		Name:      "agent_shutdowns_total",
		Help:      "Number of times the agent has shut down.",
	})

	// Admin HTTP surface metrics (the /healthz, /readyz, /metrics routes)

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetcron",
		Name:      "admin_http_request_duration_seconds",
		Help:      "Admin surface HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetcron",
		Name:      "admin_http_requests_total",
		Help:      "Total admin surface HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Register registers every collector above with the default registry.
func Register() {
	prometheus.MustRegister(
		TickDuration,
		OrderPosition,
		HeartbeatAge,
		ClaimOutcomesTotal,
		StepAttemptsTotal,
		StepLatency,
		AgentStartTime,
		AgentShutdownsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer builds a bare metrics-only server — kept for parity with the
// teacher's pattern, though internal/adminhttp's gin router serves
// /metrics in this codebase (see DESIGN.md).
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
