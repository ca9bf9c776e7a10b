package models

import "time"

// TaskPriority represents the urgency of a composite task.
type TaskPriority string

const (
	// PriorityCritical indicates the task requires immediate processing.
	PriorityCritical TaskPriority = "critical"
	// PriorityHigh indicates the task should be processed soon.
	PriorityHigh TaskPriority = "high"
	// PriorityMedium indicates normal priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityLow indicates the task can be delayed.
	PriorityLow TaskPriority = "low"
	// PriorityBackground indicates background processing.
	PriorityBackground TaskPriority = "background"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow, PriorityBackground:
		return true
	default:
		return false
	}
}

// TaskComplexity represents the estimated difficulty of a composite task.
type TaskComplexity string

const (
	// ComplexityLow indicates a straightforward task.
	ComplexityLow TaskComplexity = "low"
	// ComplexityMedium indicates moderate difficulty.
	ComplexityMedium TaskComplexity = "medium"
	// ComplexityHigh indicates a difficult task.
	ComplexityHigh TaskComplexity = "high"
	// ComplexityCritical indicates the hardest class of task.
	ComplexityCritical TaskComplexity = "critical"
)

// Valid returns true if the complexity is a known value.
func (c TaskComplexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityCritical:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current state of a composite task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusPlanned indicates an orchestration plan exists for the task.
	TaskStatusPlanned TaskStatus = "planned"
	// TaskStatusInProgress indicates sub-units are executing.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusDelivered indicates all mandatory quality gates passed.
	TaskStatusDelivered TaskStatus = "delivered"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusTerminated indicates the task was cancelled.
	TaskStatusTerminated TaskStatus = "terminated"
)

// SubUnitStatus represents the execution state of a single sub-unit.
type SubUnitStatus string

const (
	// SubUnitPending indicates the sub-unit has not been picked up.
	SubUnitPending SubUnitStatus = "pending"
	// SubUnitExecuting indicates a specialist is working on the sub-unit.
	SubUnitExecuting SubUnitStatus = "executing"
	// SubUnitDone indicates the sub-unit completed successfully.
	SubUnitDone SubUnitStatus = "done"
	// SubUnitFailed indicates the sub-unit failed after retries.
	SubUnitFailed SubUnitStatus = "failed"
)

// SubUnit is a single assignable piece of a composite task.
type SubUnit struct {
	// ID is the unique identifier for this sub-unit.
	ID string `json:"id" yaml:"id"`
	// TaskID is the parent composite task id.
	TaskID string `json:"task_id" yaml:"task_id"`
	// Competency hints which specialist competency the sub-unit needs.
	Competency SpecialistType `json:"competency" yaml:"competency"`
	// Description is the work description handed to the specialist.
	Description string `json:"description" yaml:"description"`
	// Status is the execution state of the sub-unit.
	Status SubUnitStatus `json:"status" yaml:"-"`
}

// CompositeTask is a unit of work decomposed into sub-units for
// distributed handling. It is owned by the caller; plans reference it
// and never copy it.
type CompositeTask struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// Description is the overall work description.
	Description string `json:"description" yaml:"description"`
	// Priority is the urgency of the task.
	Priority TaskPriority `json:"priority" yaml:"priority"`
	// Complexity is the estimated difficulty of the task.
	Complexity TaskComplexity `json:"complexity" yaml:"complexity"`
	// Dependencies lists ids of tasks that must complete first.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies"`
	// CoordinationRequirements lists named synchronization points
	// between specialists (e.g. "design-review", "api-freeze").
	CoordinationRequirements []string `json:"coordination_requirements,omitempty" yaml:"coordination_requirements"`
	// SubUnits are the assignable pieces of the task.
	SubUnits []*SubUnit `json:"sub_units" yaml:"sub_units"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"-"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// SubUnit returns the sub-unit with the given id, or nil if not found.
func (t *CompositeTask) SubUnit(id string) *SubUnit {
	for _, su := range t.SubUnits {
		if su.ID == id {
			return su
		}
	}
	return nil
}
