// Package metrics provides Prometheus instrumentation for the admission gate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionsTotal counts processed submissions, labeled by outcome
	// (accepted, rate_limit, moderation_blocked, ...).
	AdmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_admissions_total",
		Help: "Total number of submissions processed, by outcome",
	}, []string{"outcome"})

	// GateDuration records per-gate check latency in seconds.
	GateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gate_stage_duration_seconds",
		Help:    "Admission gate check latency in seconds",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
	}, []string{"gate"})

	// ScorerUnavailable counts toxicity-scorer calls that failed and fell
	// back to local-only protection.
	ScorerUnavailable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_scorer_unavailable_total",
		Help: "Total number of toxicity scorer calls that were unavailable",
	})

	// AuditDropped counts moderation-log entries dropped because the sink
	// queue was full or the write ultimately failed.
	AuditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_audit_dropped_total",
		Help: "Total number of moderation log entries dropped",
	})
)

func init() {
	prometheus.MustRegister(
		AdmissionsTotal,
		GateDuration,
		ScorerUnavailable,
		AuditDropped,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
