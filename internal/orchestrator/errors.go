package orchestrator

import "fmt"

// ValidationError indicates a task was rejected before planning began.
// Nothing is committed when validation fails.
type ValidationError struct {
	// TaskID is the rejected task, possibly empty when the id itself
	// was missing.
	TaskID string
	// Field names the invalid field.
	Field string
	// Reason explains the rejection.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %q: invalid %s: %s", e.TaskID, e.Field, e.Reason)
}

// OrchestrationError indicates planning failed after validation. It
// carries the stage that failed so callers can distinguish assignment
// problems from allocation problems.
type OrchestrationError struct {
	// TaskID is the task being orchestrated.
	TaskID string
	// Stage names the planning stage that failed (e.g. "assignment",
	// "allocation").
	Stage string
	// Err is the underlying failure.
	Err error
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("orchestrate task %s: %s stage: %v", e.TaskID, e.Stage, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// CoordinationError indicates a coordination signal referenced a task
// with no active plan.
type CoordinationError struct {
	// TaskID is the unknown task.
	TaskID string
}

func (e *CoordinationError) Error() string {
	return fmt.Sprintf("coordinate task %s: no active plan", e.TaskID)
}
