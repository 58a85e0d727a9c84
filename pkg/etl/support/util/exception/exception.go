// Package exception provides the error type used throughout the Cascade
// engine. Errors carry the pipeline stage they originated from and a
// retryable flag that retry policies consult.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// PipelineError is the error type raised by steps, pipelines, and the
// orchestrator. It wraps an optional cause and records whether the
// failure is worth retrying.
type PipelineError struct {
	// Stage names where the error occurred (a step name, "pipeline", "orchestrator", ...).
	Stage string
	// Message is a concise description of the failure.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// isRetryable marks whether a retry could change the outcome.
	isRetryable bool
	// StackTrace captured at construction, for debugging.
	StackTrace string
}

// New creates a PipelineError.
func New(stage, message string, originalErr error, retryable bool) *PipelineError {
	return &PipelineError{
		Stage:       stage,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: retryable,
		StackTrace:  captureStack(),
	}
}

// Newf creates a retryable PipelineError from a format string.
// An error as the final argument is extracted and wrapped as the cause.
func Newf(stage, format string, a ...interface{}) *PipelineError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &PipelineError{
		Stage:       stage,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: true,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

// Unwrap returns the wrapped cause for errors.Unwrap.
func (e *PipelineError) Unwrap() error {
	return e.OriginalErr
}

// Retryable reports whether this error is retryable.
func (e *PipelineError) Retryable() bool {
	return e.isRetryable
}

// IsRetryable reports whether err may be retried. A PipelineError answers
// through its flag; any other non-nil error is assumed retryable, since a
// step author who wants an immediate failure marks the error explicitly.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return true
}

// ExtractMessage returns the cleanest available message for err: the
// Message field for a PipelineError, Error() otherwise.
func ExtractMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
