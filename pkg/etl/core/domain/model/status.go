package model

import (
	"fmt"

	logger "github.com/driftworks/cascade/pkg/etl/support/util/logger"
)

// Status represents the lifecycle state of a pipeline run carried by an
// ExecutionContext.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusRetrying  Status = "RETRYING"
)

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the Status is final. A terminal status must
// never transition again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// isValidStatusTransition checks whether a context status transition is allowed.
func isValidStatusTransition(current, next Status) bool {
	switch current {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusSuccess || next == StatusFailed || next == StatusCancelled || next == StatusRetrying
	case StatusRetrying:
		return next == StatusRunning || next == StatusSuccess || next == StatusFailed || next == StatusCancelled
	case StatusSuccess, StatusFailed, StatusCancelled:
		return false
	default:
		return false
	}
}

// TransitionTo moves the context to a new status, rejecting transitions
// out of terminal states.
func (ec *ExecutionContext) TransitionTo(next Status) error {
	if !isValidStatusTransition(ec.Status, next) {
		return fmt.Errorf("ExecutionContext (JobID: %s): invalid status transition: %s -> %s", ec.JobID, ec.Status, next)
	}
	ec.Status = next
	return nil
}

// markStatus applies a transition, logging and ignoring invalid ones so a
// terminal verdict is never overwritten.
func (ec *ExecutionContext) markStatus(next Status) {
	if err := ec.TransitionTo(next); err != nil {
		logger.Warnf("ExecutionContext (JobID: %s): status left at %s: %v", ec.JobID, ec.Status, err)
	}
}

// MarkAsRunning moves the context to RUNNING.
func (ec *ExecutionContext) MarkAsRunning() { ec.markStatus(StatusRunning) }

// MarkAsRetrying moves the context to RETRYING while a step backs off.
func (ec *ExecutionContext) MarkAsRetrying() { ec.markStatus(StatusRetrying) }

// MarkAsSuccess moves the context to SUCCESS.
func (ec *ExecutionContext) MarkAsSuccess() { ec.markStatus(StatusSuccess) }

// MarkAsFailed moves the context to FAILED.
func (ec *ExecutionContext) MarkAsFailed() { ec.markStatus(StatusFailed) }

// MarkAsCancelled moves the context to CANCELLED.
func (ec *ExecutionContext) MarkAsCancelled() { ec.markStatus(StatusCancelled) }
