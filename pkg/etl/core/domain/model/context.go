// Package model holds the domain types of the Cascade engine: the
// execution context threaded through pipeline steps, run metrics, and
// the job execution records tracked by the orchestrator.
package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxRecordSnapshotLen bounds the offending-record snapshot stored in an
// error record.
const maxRecordSnapshotLen = 500

// ErrorRecord captures a single failure observed during a pipeline run.
type ErrorRecord struct {
	Stage     string    `json:"stage"`
	Kind      string    `json:"error_type"`
	Message   string    `json:"error_message"`
	Record    string    `json:"record,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionContext is the mutable state of one pipeline run. It is
// created per job run, mutated in place by each step, and owned
// exclusively by that run; it is never shared across goroutines.
type ExecutionContext struct {
	JobID     string
	JobName   string
	StartedAt time.Time
	EndedAt   *time.Time
	Status    Status

	// Data slots filled by extract/transform steps.
	RawData         interface{}
	TransformedData interface{}
	LoadedCount     int

	SourceInfo Properties
	TargetInfo Properties
	Parameters Properties

	Metrics  Metrics
	Errors   []ErrorRecord
	Warnings []string

	// Lineage.
	ParentJobID string
	ChildJobIDs []string
}

// Properties is a free-form metadata map.
type Properties map[string]interface{}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewExecutionContext creates a PENDING context named after the run it
// will carry.
func NewExecutionContext(jobName string) *ExecutionContext {
	return &ExecutionContext{
		JobID:      NewID(),
		JobName:    jobName,
		StartedAt:  time.Now(),
		Status:     StatusPending,
		SourceInfo: make(Properties),
		TargetInfo: make(Properties),
		Parameters: make(Properties),
		Errors:     make([]ErrorRecord, 0),
		Warnings:   make([]string, 0),
	}
}

// AddError appends an error record for the given stage. The offending
// record, if supplied, is stored as a truncated string snapshot.
func (ec *ExecutionContext) AddError(err error, stage string, record interface{}) {
	var snapshot string
	if record != nil {
		snapshot = fmt.Sprintf("%v", record)
		if len(snapshot) > maxRecordSnapshotLen {
			// Back up to a rune boundary so the cut never splits a rune.
			cut := maxRecordSnapshotLen
			for cut > 0 && !utf8.RuneStart(snapshot[cut]) {
				cut--
			}
			snapshot = snapshot[:cut]
		}
	}
	ec.Errors = append(ec.Errors, ErrorRecord{
		Stage:     stage,
		Kind:      fmt.Sprintf("%T", err),
		Message:   err.Error(),
		Record:    snapshot,
		Timestamp: time.Now().UTC(),
	})
}

// AddWarning appends a timestamped warning message.
func (ec *ExecutionContext) AddWarning(message string) {
	ec.Warnings = append(ec.Warnings, fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), message))
}

// LastError returns the most recent error record, or nil when the run
// recorded none.
func (ec *ExecutionContext) LastError() *ErrorRecord {
	if len(ec.Errors) == 0 {
		return nil
	}
	return &ec.Errors[len(ec.Errors)-1]
}

// MergeParameters copies the given parameters into the context,
// overwriting existing keys.
func (ec *ExecutionContext) MergeParameters(params Properties) {
	for k, v := range params {
		ec.Parameters[k] = v
	}
}

// Snapshot returns a serializable view of the context for logging and
// state persistence.
func (ec *ExecutionContext) Snapshot() map[string]interface{} {
	var endedAt interface{}
	if ec.EndedAt != nil {
		endedAt = ec.EndedAt.Format(time.RFC3339Nano)
	}
	return map[string]interface{}{
		"job_id":        ec.JobID,
		"job_name":      ec.JobName,
		"started_at":    ec.StartedAt.Format(time.RFC3339Nano),
		"ended_at":      endedAt,
		"status":        ec.Status.String(),
		"metrics":       ec.Metrics.Snapshot(),
		"error_count":   len(ec.Errors),
		"warning_count": len(ec.Warnings),
		"source_info":   ec.SourceInfo,
		"target_info":   ec.TargetInfo,
	}
}
