package models

import "time"

// Strategy identifies the coordination strategy chosen for a plan.
type Strategy string

const (
	// StrategyHierarchical routes all coordination through the orchestrator.
	// Chosen for critical-priority tasks with heavy coordination needs.
	StrategyHierarchical Strategy = "hierarchical"
	// StrategyCollaborative keeps specialists in tight feedback loops.
	// Chosen for critical-complexity tasks with deep dependency chains.
	StrategyCollaborative Strategy = "collaborative"
	// StrategySimultaneous runs independent sub-units fully in parallel.
	StrategySimultaneous Strategy = "simultaneous"
	// StrategyAdaptive starts sequential and widens parallelism as
	// observed performance allows.
	StrategyAdaptive Strategy = "adaptive"
)

// PlanStatus represents the lifecycle state of an orchestration plan.
// A plan is immutable after creation except for these transitions.
type PlanStatus string

const (
	// PlanActive indicates the plan is executing.
	PlanActive PlanStatus = "active"
	// PlanCompleted indicates all sub-units delivered.
	PlanCompleted PlanStatus = "completed"
	// PlanFailed indicates the plan failed.
	PlanFailed PlanStatus = "failed"
	// PlanTerminated indicates the owning task was cancelled.
	PlanTerminated PlanStatus = "terminated"
)

// TimelinePhase is one ordered phase of plan execution. Sub-units in the
// same phase may run concurrently; phases run in order.
type TimelinePhase struct {
	// Name labels the phase.
	Name string `json:"name"`
	// SubUnitIDs are the sub-units executed in this phase.
	SubUnitIDs []string `json:"sub_unit_ids"`
	// Deadline is the soft completion deadline for the phase.
	Deadline time.Time `json:"deadline"`
}

// Contingency is a prepared fallback for a failure mode the planner
// anticipates.
type Contingency struct {
	// Trigger names the condition that activates the contingency.
	Trigger string `json:"trigger"`
	// Action names the response (e.g. "retry", "reassign", "escalate").
	Action string `json:"action"`
	// FallbackType is the specialist type used when reassigning.
	FallbackType SpecialistType `json:"fallback_type,omitempty"`
}

// OrchestrationPlan is the output of orchestrating a composite task.
// Created once per Orchestrate call; the assignment map covers every
// sub-unit exactly once. Retained in an append-only history.
type OrchestrationPlan struct {
	// ID is the unique identifier for this plan.
	ID string `json:"id"`
	// TaskID is the composite task this plan executes.
	TaskID string `json:"task_id"`
	// Strategy is the chosen coordination strategy.
	Strategy Strategy `json:"strategy"`
	// Assignments maps specialist type to assigned sub-unit ids. Every
	// sub-unit of the task appears under exactly one specialist type.
	Assignments map[SpecialistType][]string `json:"assignments"`
	// Allocation is the resource allocation computed for the plan.
	Allocation *ResourceAllocation `json:"allocation"`
	// Gates are the quality gates applied at plan checkpoints.
	Gates []QualityGate `json:"gates"`
	// Timeline is the ordered execution timeline.
	Timeline []TimelinePhase `json:"timeline"`
	// Contingencies are prepared fallbacks for anticipated failures.
	Contingencies []Contingency `json:"contingencies"`
	// Status is the plan lifecycle state.
	Status PlanStatus `json:"status"`
	// CreatedAt is when the plan was created.
	CreatedAt time.Time `json:"created_at"`
}

// AssignedType returns the specialist type a sub-unit is assigned to,
// or the empty string if the sub-unit is not in the plan.
func (p *OrchestrationPlan) AssignedType(subUnitID string) SpecialistType {
	for st, ids := range p.Assignments {
		for _, id := range ids {
			if id == subUnitID {
				return st
			}
		}
	}
	return ""
}

// SubUnitCount returns the number of sub-units covered by the plan.
func (p *OrchestrationPlan) SubUnitCount() int {
	n := 0
	for _, ids := range p.Assignments {
		n += len(ids)
	}
	return n
}

// QualityGate is a checkpoint a result must pass before acceptance.
type QualityGate struct {
	// Name identifies the gate.
	Name string `json:"name"`
	// Criterion names the quality dimension being checked.
	Criterion string `json:"criterion"`
	// Threshold is the minimum passing score in [0,1].
	Threshold float64 `json:"threshold"`
	// Reviewers are the specialist types responsible for the gate.
	Reviewers []SpecialistType `json:"reviewers"`
	// Mandatory gates must pass before a task can be delivered.
	Mandatory bool `json:"mandatory"`
}
