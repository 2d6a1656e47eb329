// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_active",
			Help: "Number of mounted wizard sessions",
		},
	)

	WizardStepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_step_transitions_total",
			Help: "Step changes by direction",
		},
		[]string{"direction", "from", "to"},
	)

	WizardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Blocked advances per step",
		},
		[]string{"step"},
	)

	WizardUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_document_uploads_total",
			Help: "Document uploads by field and outcome",
		},
		[]string{"field", "status"},
	)

	WizardPayments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_payment_operations_total",
			Help: "Payment sub-flow operations by path, operation and outcome",
		},
		[]string{"path", "operation", "status"},
	)

	WizardSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"status"},
	)

	WizardDraftWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_draft_writes_total",
			Help: "Draft store operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admissions_api_request_duration_seconds",
			Help:    "Latency of calls to the admissions backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wizard_http_request_duration_seconds",
			Help:    "Session service request latency by route and status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
