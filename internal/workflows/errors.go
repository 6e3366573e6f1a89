package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrStepFailed is returned when a workflow step fails
	ErrStepFailed = errors.New("workflow step failed")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid workflow request")

	// ErrRuntimeUnavailable is returned for async operations without DBOS
	ErrRuntimeUnavailable = errors.New("DBOS runtime not initialized")

	// ErrRunNotFound is returned when no run has the requested id
	ErrRunNotFound = errors.New("run not found")

	// ErrNothingToProcess is returned when a step has no input left to work on
	ErrNothingToProcess = errors.New("nothing to process")
)
