package models

import "time"

// ProposalStatus represents the state of a consensus proposal. The
// machine is monotonic: once a terminal state is reached there is no
// transition back to PROPOSED or VOTING.
type ProposalStatus string

const (
	// ProposalProposed indicates the proposal exists but has no votes.
	ProposalProposed ProposalStatus = "proposed"
	// ProposalVoting indicates at least one vote has been accepted.
	ProposalVoting ProposalStatus = "voting"
	// ProposalReached indicates the consensus threshold was met.
	ProposalReached ProposalStatus = "reached"
	// ProposalFailed indicates all participants voted without meeting
	// the threshold.
	ProposalFailed ProposalStatus = "failed"
	// ProposalExpired indicates the deadline passed with the proposal
	// still non-terminal.
	ProposalExpired ProposalStatus = "expired"
)

// Terminal returns true for REACHED, FAILED and EXPIRED.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalReached, ProposalFailed, ProposalExpired:
		return true
	default:
		return false
	}
}

// VoteDecision is a participant's position on a proposal.
type VoteDecision string

const (
	// VoteApprove counts fully toward consensus.
	VoteApprove VoteDecision = "approve"
	// VoteReject counts against consensus.
	VoteReject VoteDecision = "reject"
	// VoteAbstain counts toward participation but not consensus.
	VoteAbstain VoteDecision = "abstain"
	// VoteConditional counts toward consensus weighted by confidence.
	VoteConditional VoteDecision = "conditional"
)

// Valid returns true if the decision is a known value.
func (d VoteDecision) Valid() bool {
	switch d {
	case VoteApprove, VoteReject, VoteAbstain, VoteConditional:
		return true
	default:
		return false
	}
}

// Vote is a single participant's current vote on a proposal. A later
// vote from the same participant before the deadline replaces the
// earlier one.
type Vote struct {
	// Participant identifies the voter.
	Participant string `json:"participant"`
	// Decision is the participant's position.
	Decision VoteDecision `json:"decision"`
	// Confidence is the participant's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reasoning is the participant's stated rationale.
	Reasoning string `json:"reasoning,omitempty"`
	// Timestamp is when the vote was cast.
	Timestamp time.Time `json:"timestamp"`
}

// ConsensusProposal is a time-boxed quorum vote among a participant set.
type ConsensusProposal struct {
	// ID is the unique identifier for this proposal.
	ID string `json:"id"`
	// Topic describes what is being decided.
	Topic string `json:"topic"`
	// Participants are the eligible voters.
	Participants []string `json:"participants"`
	// Payload is the content being voted on.
	Payload string `json:"payload,omitempty"`
	// Deadline is the hard voting deadline.
	Deadline time.Time `json:"deadline"`
	// RequiredConsensus is the fraction of participants that must
	// approve (or conditionally approve, confidence-weighted).
	RequiredConsensus float64 `json:"required_consensus"`
	// Votes maps participant to their current vote. At most one counted
	// vote per participant.
	Votes map[string]*Vote `json:"votes"`
	// Status is the proposal state.
	Status ProposalStatus `json:"status"`
	// CreatedAt is when the proposal was created.
	CreatedAt time.Time `json:"created_at"`
}

// HasParticipant returns true if the given id is an eligible voter.
func (p *ConsensusProposal) HasParticipant(id string) bool {
	for _, part := range p.Participants {
		if part == id {
			return true
		}
	}
	return false
}

// ApprovalScore returns the confidence-weighted approval mass:
// one point per APPROVE plus the confidence of each CONDITIONAL.
func (p *ConsensusProposal) ApprovalScore() float64 {
	score := 0.0
	for _, v := range p.Votes {
		switch v.Decision {
		case VoteApprove:
			score++
		case VoteConditional:
			score += v.Confidence
		}
	}
	return score
}
