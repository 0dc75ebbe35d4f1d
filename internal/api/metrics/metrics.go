// Package metrics defines and registers the custom Prometheus metrics of the
// studio API. It is the single source of truth for metric names, labels, and
// help strings. HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "studio"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - result: "success", "invalid_input", "email_taken", "invalid_credentials" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts, by result.",
	},
	[]string{"operation", "result"},
)

// ── Generation metrics ────────────────────────────────────────────────────────

// GenerationsCreatedTotal counts generations that were persisted.
var GenerationsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_created_total",
		Help:      "Total number of generations created.",
	},
)

// GenerationFailuresTotal counts uploads that did not produce a generation.
// Label:
//   - reason: "missing_input", "unsupported_media_type", "too_large",
//     "simulated_failure", "timeout", "store_unavailable" or "error"
var GenerationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_failures_total",
		Help:      "Total number of failed uploads, by reason.",
	},
	[]string{"reason"},
)

// GenerationDuration measures the upload pipeline end to end, including the
// simulated delay.
// Label:
//   - outcome: "success" or "failure"
var GenerationDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Duration of the upload pipeline from request to persisted record.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5, 10, 30},
	},
	[]string{"outcome"},
)

// RecentQueriesTotal counts recent-history reads.
var RecentQueriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recent_queries_total",
		Help:      "Total number of recent-generation history queries.",
	},
)
