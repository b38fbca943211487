// Package metrics exposes Pullconf's Prometheus instrumentation:
// reload outcomes, API request counts/latency, and scheduler
// outcomes, served unauthenticated at /metrics (component N).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReloadTotal counts catalog reload attempts by outcome: "success"
	// or "error" (spec.md §4.G: a reload either commits wholesale or
	// leaves the store untouched).
	ReloadTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullconf_reload_total",
			Help: "Total catalog reload attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ReloadDuration tracks how long a full A->B->C->D->E->F->G
	// pipeline run takes.
	ReloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pullconf_reload_duration_seconds",
			Help:    "Duration of a full catalog reload",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// ReloadClientsTotal counts clients present in the most recently
	// published generation.
	ReloadClientsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pullconf_reload_clients",
			Help: "Number of clients in the current published catalog generation",
		},
	)

	// APIRequestsTotal counts API requests by route and HTTP status
	// text (e.g. "OK", "Not Found").
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullconf_api_requests_total",
			Help: "Total API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// APIRequestDuration tracks API request latency by route.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pullconf_api_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// SchedulerResourceTotal counts resource applications on the agent
	// by outcome: "applied", "no_change", "failed", "skipped".
	SchedulerResourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pullconf_scheduler_resource_total",
			Help: "Total resources processed by the client scheduler, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// SchedulerRunDuration tracks how long a full convergence run takes.
	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pullconf_scheduler_run_duration_seconds",
			Help:    "Duration of a full client convergence run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)
)
