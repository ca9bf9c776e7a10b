// Package orchestrator coordinates composite tasks across specialist
// types: planning, assignment, consensus, conflict resolution and
// performance optimization.
package orchestrator

import (
	"time"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskCoordinated indicates a coordination signal was handled.
	EventTaskCoordinated EventType = "task:coordinated"
	// EventAgentsOrchestrated indicates a plan was created for a task.
	EventAgentsOrchestrated EventType = "agents:orchestrated"
	// EventConsensusInitiated indicates a consensus proposal was opened.
	EventConsensusInitiated EventType = "consensus:initiated"
	// EventQualityValidated indicates a result passed quality gates.
	EventQualityValidated EventType = "quality:validated"
	// EventPerformanceOptimized indicates an optimization pass ran.
	EventPerformanceOptimized EventType = "performance:optimized"
	// EventConflictResolved indicates a conflict reached an outcome.
	EventConflictResolved EventType = "conflict:resolved"
	// EventSystemRebalanced indicates sub-units were reassigned.
	EventSystemRebalanced EventType = "system:rebalanced"
)

// Event represents an event emitted by the orchestrator. Subscribers
// receive these over the emitter channel.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// PlanID is the ID of the related plan, if applicable.
	PlanID string
	// ProposalID is the ID of the related consensus proposal, if applicable.
	ProposalID string
	// Strategy is the coordination strategy, for plan events.
	Strategy models.Strategy
	// Plan is the related orchestration plan, for plan and rebalance
	// events. Shared with the orchestrator; subscribers must not mutate.
	Plan *models.OrchestrationPlan
	// Proposal is the related consensus proposal, for consensus events.
	Proposal *models.ConsensusProposal
	// Record is the settled conflict, for conflict events.
	Record *models.ConflictRecord
	// Evaluation is the gate evaluation, for quality events.
	Evaluation *quality.Evaluation
	// State is the aggregate system view, for optimization events.
	State *models.SystemState
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
