package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationDeliveries records channel deliveries by channel (push|email|in_app)
	// and outcome (sent|failed|skipped).
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_deliveries_total",
			Help: "Total number of notification channel deliveries",
		},
		[]string{"channel", "outcome"},
	)

	// NotificationsSuppressed counts notifications dropped by the anti-spam window.
	NotificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_spam_suppressed_total",
			Help: "Total number of notifications suppressed as duplicates",
		},
	)

	// DegradedReads counts store reads that fell back to their default value.
	DegradedReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_degraded_reads_total",
			Help: "Total number of store reads served from a fail-open default",
		},
		[]string{"read"},
	)

	// PushTokensPruned counts device tokens deleted after a permanent provider failure.
	PushTokensPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_push_tokens_pruned_total",
			Help: "Total number of invalid push tokens removed",
		},
	)

	// DispatchLatency measures the end-to-end duration of a notification send.
	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_dispatch_latency_seconds",
			Help:    "Notification dispatch latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// RealtimeConnections tracks open realtime subscriptions.
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifier_realtime_connections",
			Help: "Number of open realtime connections",
		},
	)

	// MaintenanceRuns records maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notifier_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
