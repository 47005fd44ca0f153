package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request that misses a required field.
	ErrValidation = errors.New("validation failed")
	// ErrNoSession is returned by follow-ups for a user without a prior analysis.
	ErrNoSession = errors.New("no prior analysis for user")
	// ErrRunConflict is returned when the thread already has an active run.
	ErrRunConflict = errors.New("thread already has an active run")
	// ErrRunFailed is returned when a run ends in a non-success terminal state.
	ErrRunFailed = errors.New("run failed")
	// ErrRunTimeout is returned when a run does not finish within the poll policy.
	ErrRunTimeout = errors.New("run did not finish in time")
	// ErrUpstream marks a failed call to the assistants API.
	ErrUpstream = errors.New("assistants request failed")
	// ErrThreadMismatch is returned when a follow-up names a thread other than the
	// user's session thread.
	ErrThreadMismatch = fmt.Errorf("%w: threadId does not match the user's session", ErrValidation)
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RunFailedError describes a run that ended without success.
type RunFailedError struct {
	RunID     string
	Status    RunStatus
	LastError *RunError
}

func (e *RunFailedError) Error() string {
	if e.LastError != nil && e.LastError.Message != "" {
		return fmt.Sprintf("run %s ended with status %s: %s", e.RunID, e.Status, e.LastError.Message)
	}
	return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
}

func (e *RunFailedError) Unwrap() error { return ErrRunFailed }

// Code returns a short machine readable error code.
func (e *RunFailedError) Code() string {
	if e.LastError != nil && e.LastError.Code != "" {
		return e.LastError.Code
	}
	return "run_" + string(e.Status)
}
