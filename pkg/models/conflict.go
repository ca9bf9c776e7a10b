package models

import "time"

// ResolutionOutcome is the method by which a conflict was settled.
type ResolutionOutcome string

const (
	// OutcomeWinWin indicates near-unanimous agreement was found.
	OutcomeWinWin ResolutionOutcome = "win_win"
	// OutcomeMajorityRule indicates a clear, confident majority decided.
	OutcomeMajorityRule ResolutionOutcome = "majority_rule"
	// OutcomeQueenDecision indicates the orchestrator used its authority.
	OutcomeQueenDecision ResolutionOutcome = "queen_decision"
	// OutcomeEscalation indicates the conflict was handed to an external
	// operator channel.
	OutcomeEscalation ResolutionOutcome = "escalation"
)

// Claim is one party's position in a conflict, with confidence.
type Claim struct {
	// Party identifies the claimant (usually a specialist type).
	Party string `json:"party"`
	// Position is the claimed position.
	Position string `json:"position"`
	// Confidence is the claimant's confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// ConflictRecord is one settled conflict. Records are append-only:
// once written they are never rewritten.
type ConflictRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// TaskID is the task the conflict arose in, if any.
	TaskID string `json:"task_id,omitempty"`
	// Parties are the conflicting participants.
	Parties []string `json:"parties"`
	// Issue describes what was disputed.
	Issue string `json:"issue"`
	// Resolution is the position that won.
	Resolution string `json:"resolution"`
	// Outcome is the method used to settle the conflict.
	Outcome ResolutionOutcome `json:"outcome"`
	// Satisfaction maps each party to a satisfaction score in [0,1].
	Satisfaction map[string]float64 `json:"satisfaction"`
	// ResolvedAt is when the conflict was settled.
	ResolvedAt time.Time `json:"resolved_at"`
}
