package model

import (
	"fmt"
	"time"

	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// JobState represents the state of a job execution in the orchestrator.
type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateRunning   JobState = "RUNNING"
	JobStateSuccess   JobState = "SUCCESS"
	JobStateFailed    JobState = "FAILED"
	JobStateSkipped   JobState = "SKIPPED"
	JobStateCancelled JobState = "CANCELLED"
)

// String returns the string representation of the JobState.
func (s JobState) String() string {
	return string(s)
}

// IsFinished reports whether the JobState is final.
func (s JobState) IsFinished() bool {
	switch s {
	case JobStateSuccess, JobStateFailed, JobStateSkipped, JobStateCancelled:
		return true
	default:
		return false
	}
}

// JobExecution is the record of a single job run. It is appended to the
// orchestrator's history at completion and never mutated afterwards.
type JobExecution struct {
	ID           string
	JobID        string
	State        JobState
	StartedAt    *time.Time
	EndedAt      *time.Time
	Context      *ExecutionContext
	ErrorMessage string
	RetryCount   int
}

// NewJobExecution creates a QUEUED execution record for the given job.
func NewJobExecution(jobID string) *JobExecution {
	return &JobExecution{
		ID:    NewID(),
		JobID: jobID,
		State: JobStateQueued,
	}
}

// NewSkippedExecution creates a SKIPPED execution record. Skipped jobs
// never construct an ExecutionContext.
func NewSkippedExecution(jobID, reason string) *JobExecution {
	return &JobExecution{
		ID:           NewID(),
		JobID:        jobID,
		State:        JobStateSkipped,
		ErrorMessage: reason,
	}
}

// isValidJobStateTransition checks whether a job state transition is allowed.
func isValidJobStateTransition(current, next JobState) bool {
	switch current {
	case JobStateQueued:
		return next == JobStateRunning || next == JobStateSkipped || next == JobStateCancelled
	case JobStateRunning:
		return next == JobStateSuccess || next == JobStateFailed || next == JobStateCancelled
	default:
		return false
	}
}

// TransitionTo moves the execution to a new state, rejecting transitions
// out of finished states.
func (je *JobExecution) TransitionTo(next JobState) error {
	if !isValidJobStateTransition(je.State, next) {
		return fmt.Errorf("JobExecution (ID: %s): invalid state transition: %s -> %s", je.ID, je.State, next)
	}
	je.State = next
	return nil
}

func (je *JobExecution) markState(next JobState) {
	if err := je.TransitionTo(next); err != nil {
		logger.Warnf("JobExecution (ID: %s): state left at %s: %v", je.ID, je.State, err)
	}
}

// MarkAsRunning moves the execution to RUNNING and stamps the start time.
func (je *JobExecution) MarkAsRunning() {
	je.markState(JobStateRunning)
	now := time.Now()
	je.StartedAt = &now
}

// MarkAsSuccess moves the execution to SUCCESS and stamps the end time.
func (je *JobExecution) MarkAsSuccess() {
	je.markState(JobStateSuccess)
	now := time.Now()
	je.EndedAt = &now
}

// MarkAsFailed moves the execution to FAILED, stamps the end time, and
// records the failure message.
func (je *JobExecution) MarkAsFailed(message string) {
	je.markState(JobStateFailed)
	now := time.Now()
	je.EndedAt = &now
	je.ErrorMessage = message
}

// MarkAsCancelled moves the execution to CANCELLED and stamps the end time.
func (je *JobExecution) MarkAsCancelled() {
	je.markState(JobStateCancelled)
	now := time.Now()
	je.EndedAt = &now
}

// Duration returns the elapsed run time, or 0 when the execution never
// started or has not finished.
func (je *JobExecution) Duration() time.Duration {
	if je.StartedAt == nil || je.EndedAt == nil {
		return 0
	}
	return je.EndedAt.Sub(*je.StartedAt)
}

// Record returns the serializable audit row persisted by state stores.
func (je *JobExecution) Record() ExecutionRecord {
	rec := ExecutionRecord{
		ExecutionID:  je.ID,
		JobID:        je.JobID,
		State:        je.State.String(),
		ErrorMessage: je.ErrorMessage,
		RetryCount:   je.RetryCount,
	}
	if je.StartedAt != nil {
		s := je.StartedAt.UTC().Format(time.RFC3339Nano)
		rec.StartedAt = &s
	}
	if je.EndedAt != nil {
		e := je.EndedAt.UTC().Format(time.RFC3339Nano)
		rec.EndedAt = &e
	}
	if je.StartedAt != nil && je.EndedAt != nil {
		d := je.Duration().Seconds()
		rec.DurationSeconds = &d
	}
	return rec
}

// ExecutionRecord is the persisted form of a JobExecution.
type ExecutionRecord struct {
	ExecutionID     string   `json:"execution_id"`
	JobID           string   `json:"job_id"`
	State           string   `json:"state"`
	StartedAt       *string  `json:"started_at"`
	EndedAt         *string  `json:"ended_at"`
	DurationSeconds *float64 `json:"duration_seconds"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	RetryCount      int      `json:"retry_count"`
}

// ExecutionSummary aggregates the orchestrator's execution history.
type ExecutionSummary struct {
	TotalExecutions      int     `json:"total_executions"`
	SuccessCount         int     `json:"success_count"`
	FailedCount          int     `json:"failed_count"`
	SuccessRate          float64 `json:"success_rate"`
	AvgDurationSeconds   float64 `json:"avg_duration_seconds"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// StateSnapshot is the orchestrator state document written by state
// stores after every job run.
type StateSnapshot struct {
	Name             string            `json:"name"`
	SavedAt          time.Time         `json:"saved_at"`
	Jobs             []string          `json:"jobs"`
	RecentExecutions []ExecutionRecord `json:"recent_executions"`
	Summary          ExecutionSummary  `json:"summary"`
}
