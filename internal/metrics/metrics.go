// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline. Counters are split by outcome so dashboards can watch the
// dedup ratio (duplicates / received) and the policy-skip breakdown.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunary_events_received_total",
			Help: "Total number of tracking requests received",
		},
	)

	EventsInsertedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunary_events_inserted_total",
			Help: "Total number of canonical events persisted",
		},
	)

	EventsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunary_events_duplicate_total",
			Help: "Total number of inserts dropped by the event_id uniqueness constraint",
		},
	)

	EventsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunary_events_skipped_total",
			Help: "Total number of events skipped by policy, by reason",
		},
		[]string{"reason"},
	)

	EventsRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunary_events_rate_limited_total",
			Help: "Total number of tracking requests rejected by the rate limiter",
		},
	)

	TrackDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lunary_track_duration_seconds",
			Help:    "Duration of tracking request processing",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunary_snapshot_runs_total",
			Help: "Total number of daily snapshot runs, by result",
		},
		[]string{"result"},
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		EventsReceivedTotal,
		EventsInsertedTotal,
		EventsDuplicateTotal,
		EventsSkippedTotal,
		EventsRateLimitedTotal,
		TrackDuration,
		SnapshotRunsTotal,
	)
}
