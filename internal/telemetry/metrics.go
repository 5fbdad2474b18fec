package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across both binaries.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "syncsocial",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// TickSchedulesDueTotal counts schedules found due across all dispatcher ticks.
var TickSchedulesDueTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "scheduler",
		Name:      "schedules_due_total",
		Help:      "Total number of due schedules observed across all ticks.",
	},
)

// TickSchedulesSkippedTotal counts schedules skipped on a tick, by reason.
var TickSchedulesSkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "scheduler",
		Name:      "schedules_skipped_total",
		Help:      "Total number of schedules skipped on a tick, by reason.",
	},
	[]string{"reason"},
)

// TickDurationSeconds tracks how long a single dispatcher tick takes.
var TickDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "syncsocial",
		Subsystem: "scheduler",
		Name:      "tick_duration_seconds",
		Help:      "Duration of a single tick dispatcher pass in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
)

// RunsCreatedTotal counts Runs materialized, by trigger (schedule, manual).
var RunsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "scheduler",
		Name:      "runs_created_total",
		Help:      "Total number of Runs created, by trigger.",
	},
	[]string{"trigger"},
)

// AccountRunsFinishedTotal counts terminal AccountRuns by status and error code.
var AccountRunsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "executor",
		Name:      "account_runs_finished_total",
		Help:      "Total number of AccountRuns reaching a terminal status.",
	},
	[]string{"status", "error_code"},
)

// ActionsFinishedTotal counts terminal Actions by type, status, and error code.
var ActionsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "executor",
		Name:      "actions_finished_total",
		Help:      "Total number of Actions reaching a terminal status.",
	},
	[]string{"action_type", "status", "error_code"},
)

// WorkerCallDuration tracks control-plane to browser-node call latency.
var WorkerCallDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "syncsocial",
		Subsystem: "worker_client",
		Name:      "call_duration_seconds",
		Help:      "Duration of control-plane to browser-node calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"op", "outcome"},
)

// AutoCaptureOutcomesTotal counts login-session auto-capture terminal outcomes.
var AutoCaptureOutcomesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "login_session",
		Name:      "auto_capture_outcomes_total",
		Help:      "Total number of auto-capture loop outcomes, by status.",
	},
	[]string{"status"},
)

// ArtifactBytesWrittenTotal counts screenshot bytes persisted to disk.
var ArtifactBytesWrittenTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "artifact",
		Name:      "bytes_written_total",
		Help:      "Total bytes of screenshot artifacts written to disk.",
	},
)

// ArtifactsSweptTotal counts artifact rows removed by the retention sweeper.
var ArtifactsSweptTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "syncsocial",
		Subsystem: "artifact",
		Name:      "swept_total",
		Help:      "Total number of artifacts deleted by the retention sweeper.",
	},
)

// All returns the syncsocial-specific collectors for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		TickSchedulesDueTotal,
		TickSchedulesSkippedTotal,
		TickDurationSeconds,
		RunsCreatedTotal,
		AccountRunsFinishedTotal,
		ActionsFinishedTotal,
		WorkerCallDuration,
		AutoCaptureOutcomesTotal,
		ArtifactBytesWrittenTotal,
		ArtifactsSweptTotal,
	}
}

// NewMetricsRegistry builds a Prometheus registry with the Go/process
// collectors, the shared HTTP duration histogram, and any extra collectors.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
