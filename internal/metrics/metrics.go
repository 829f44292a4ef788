package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "fittrack"

var (
	SessionsMissed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_missed_total",
			Help:      "Number of sessions moved from scheduled to missed by reconciliation",
		},
	)

	SessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Number of sessions marked completed",
		},
	)

	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciliation runs by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time taken to reconcile and project a user's schedule",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ActiveStepSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_subscriptions_active",
			Help:      "Open live step-count subscriptions",
		},
	)
)

// Outcome labels for ReconcileRuns.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SessionsMissed,
		SessionsCompleted,
		ReconcileRuns,
		ReconcileDuration,
		ActiveStepSubscriptions,
	)
}
