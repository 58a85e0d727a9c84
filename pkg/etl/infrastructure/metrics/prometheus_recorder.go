package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
	metrics "github.com/driftworks/cascade/pkg/etl/core/metrics"
	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the
// metrics.Recorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	// Job metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepRetryCounter    *prometheus.CounterVec
	stepRollbackCounter *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_job_duration_seconds",
			Help:    "Duration of job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_id", "state"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_job_status_total",
			Help: "Total number of job executions by state.",
		}, []string{"job_id", "state"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_step_duration_seconds",
			Help:    "Duration of step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status"}),
		stepRetryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_retry_total",
			Help: "Total step retry attempts.",
		}, []string{"job_name", "step_name"}),
		stepRollbackCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_rollback_total",
			Help: "Total step rollback invocations.",
		}, []string{"job_name", "step_name"}),
	}

	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.jobStatusCounter)
	registry.MustRegister(r.stepDurationSeconds)
	registry.MustRegister(r.stepRetryCounter)
	registry.MustRegister(r.stepRollbackCounter)

	return r
}

// Registry returns the Prometheus registry for exposition.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a job execution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobID, execution.State.String()).Inc()
	logger.Debugf("Metrics: job '%s' started.", execution.JobID)
}

// RecordJobEnd records the completion of a job execution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	state := execution.State.String()
	r.jobStatusCounter.WithLabelValues(execution.JobID, state).Inc()
	r.jobDurationSeconds.WithLabelValues(execution.JobID, state).Observe(execution.Duration().Seconds())
	logger.Debugf("Metrics: job '%s' ended with state %s.", execution.JobID, state)
}

// RecordStepDuration records one step execution with its outcome.
func (r *PrometheusRecorder) RecordStepDuration(ctx context.Context, jobName, stepName, status string, d time.Duration) {
	r.stepDurationSeconds.WithLabelValues(jobName, stepName, status).Observe(d.Seconds())
}

// RecordStepRetry records one retry attempt of a step.
func (r *PrometheusRecorder) RecordStepRetry(ctx context.Context, jobName, stepName string) {
	r.stepRetryCounter.WithLabelValues(jobName, stepName).Inc()
}

// RecordStepRollback records one rollback invocation of a step.
func (r *PrometheusRecorder) RecordStepRollback(ctx context.Context, jobName, stepName string) {
	r.stepRollbackCounter.WithLabelValues(jobName, stepName).Inc()
}

var _ metrics.Recorder = (*PrometheusRecorder)(nil)
