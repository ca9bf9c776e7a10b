// Package consensus runs time-boxed quorum voting among participant
// sets.
package consensus

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// ErrUnknownProposal indicates a vote or query referenced a proposal
// id the coordinator does not know.
var ErrUnknownProposal = errors.New("unknown proposal")

// Failure indicates a proposal ended without reaching the required
// consensus fraction.
type Failure struct {
	// ProposalID is the proposal that failed.
	ProposalID string
	// Approvals is the confidence-weighted approval mass recorded.
	Approvals float64
	// Required is the approval mass that was needed.
	Required float64
	// Expired is true when the proposal timed out rather than being
	// voted down.
	Expired bool
}

func (e *Failure) Error() string {
	if e.Expired {
		return fmt.Sprintf("proposal %s: expired with %.2f/%.2f approvals", e.ProposalID, e.Approvals, e.Required)
	}
	return fmt.Sprintf("proposal %s: consensus failed with %.2f/%.2f approvals", e.ProposalID, e.Approvals, e.Required)
}

// LateVoteError indicates a vote arrived after the proposal deadline
// or after the proposal reached a terminal state.
type LateVoteError struct {
	// ProposalID is the proposal the vote targeted.
	ProposalID string
	// Status is the proposal status at rejection time.
	Status models.ProposalStatus
}

func (e *LateVoteError) Error() string {
	return fmt.Sprintf("proposal %s: vote rejected, proposal is %s", e.ProposalID, e.Status)
}

// Analytics aggregates proposal outcomes for reporting.
type Analytics struct {
	// Reached counts proposals that met their threshold.
	Reached int
	// Failed counts proposals voted down.
	Failed int
	// Expired counts proposals that hit their deadline non-terminal.
	Expired int
	// MeanApprovalRatio is the mean approval mass over participant
	// count across finished proposals.
	MeanApprovalRatio float64
}

// entry is the per-proposal coordination unit. Its mutex serializes
// every mutation of one proposal; proposals with different ids never
// contend.
type entry struct {
	mu       sync.Mutex
	proposal *models.ConsensusProposal
	timer    *time.Timer
	// done is closed when the proposal reaches a terminal state.
	done chan struct{}
}

// Coordinator manages consensus proposals through their state machine:
// PROPOSED -> VOTING (first accepted vote) -> REACHED | FAILED | EXPIRED.
// Terminal states are final.
type Coordinator struct {
	// entries maps proposal id to its coordination unit.
	entries map[string]*entry
	// mu protects the entries map only, never a proposal.
	mu sync.RWMutex
	// onTerminal, when set, is invoked once per proposal as it reaches
	// a terminal state.
	onTerminal func(*models.ConsensusProposal)

	// outcome tallies for analytics.
	reached       int
	failed        int
	expired       int
	approvalRatio float64
	finished      int
	statsMu       sync.Mutex
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{entries: make(map[string]*entry)}
}

// OnTerminal registers a callback fired once per proposal when it
// reaches a terminal state. Must be set before proposals are created.
func (c *Coordinator) OnTerminal(fn func(*models.ConsensusProposal)) {
	c.onTerminal = fn
}

// Propose creates a proposal and starts its deadline timer. The timer
// fires exactly one final evaluation at the deadline.
func (c *Coordinator) Propose(topic string, participants []string, payload string, required float64, deadline time.Duration) (*models.ConsensusProposal, error) {
	if topic == "" {
		return nil, fmt.Errorf("proposal topic is required")
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("proposal needs at least one participant")
	}
	if required <= 0 || required > 1 {
		return nil, fmt.Errorf("required consensus %.2f outside (0,1]", required)
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p] {
			return nil, fmt.Errorf("duplicate participant %q", p)
		}
		seen[p] = true
	}

	now := time.Now()
	proposal := &models.ConsensusProposal{
		ID:                uuid.New().String()[:8],
		Topic:             topic,
		Participants:      participants,
		Payload:           payload,
		Deadline:          now.Add(deadline),
		RequiredConsensus: required,
		Votes:             make(map[string]*models.Vote),
		Status:            models.ProposalProposed,
		CreatedAt:         now,
	}

	e := &entry{
		proposal: proposal,
		done:     make(chan struct{}),
	}
	e.timer = time.AfterFunc(deadline, func() { c.onDeadline(proposal.ID) })

	c.mu.Lock()
	c.entries[proposal.ID] = e
	c.mu.Unlock()

	log.Printf("[consensus] proposed %s topic=%q participants=%d required=%.2f",
		proposal.ID, topic, len(participants), required)

	return proposal, nil
}

// CastVote records a participant's vote. A resubmission before the
// deadline overwrites the participant's earlier vote; it never
// duplicates. Votes after the deadline, or on a terminal proposal, are
// rejected with a LateVoteError. Evaluation runs after every accepted
// vote.
func (c *Coordinator) CastVote(proposalID string, vote *models.Vote) error {
	e := c.entry(proposalID)
	if e == nil {
		return fmt.Errorf("cast vote on %s: %w", proposalID, ErrUnknownProposal)
	}

	if vote == nil || !vote.Decision.Valid() {
		return fmt.Errorf("proposal %s: invalid vote decision", proposalID)
	}
	if vote.Confidence < 0 || vote.Confidence > 1 {
		return fmt.Errorf("proposal %s: confidence %.2f outside [0,1]", proposalID, vote.Confidence)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.proposal
	if p.Status.Terminal() {
		return &LateVoteError{ProposalID: proposalID, Status: p.Status}
	}
	if !time.Now().Before(p.Deadline) {
		return &LateVoteError{ProposalID: proposalID, Status: p.Status}
	}
	if !p.HasParticipant(vote.Participant) {
		return fmt.Errorf("proposal %s: %q is not a participant", proposalID, vote.Participant)
	}

	if vote.Timestamp.IsZero() {
		vote.Timestamp = time.Now()
	}
	p.Votes[vote.Participant] = vote

	if p.Status == models.ProposalProposed {
		p.Status = models.ProposalVoting
	}

	c.evaluateLocked(e, false)
	return nil
}

// evaluateLocked checks the proposal against its threshold. Caller
// must hold e.mu. With atDeadline set, a non-terminal proposal that
// has not reached the threshold expires regardless of votes cast.
func (c *Coordinator) evaluateLocked(e *entry, atDeadline bool) {
	p := e.proposal
	if p.Status.Terminal() {
		return
	}

	score := p.ApprovalScore()
	needed := p.RequiredConsensus * float64(len(p.Participants))

	switch {
	case score >= needed:
		c.finishLocked(e, models.ProposalReached)
	case atDeadline:
		c.finishLocked(e, models.ProposalExpired)
	case len(p.Votes) == len(p.Participants):
		// Everyone voted and the threshold is out of reach.
		c.finishLocked(e, models.ProposalFailed)
	}
}

// finishLocked moves a proposal into a terminal state, stops its
// timer, records analytics and fires the terminal callback. Caller
// must hold e.mu.
func (c *Coordinator) finishLocked(e *entry, status models.ProposalStatus) {
	p := e.proposal
	p.Status = status
	e.timer.Stop()
	close(e.done)

	c.statsMu.Lock()
	switch status {
	case models.ProposalReached:
		c.reached++
	case models.ProposalFailed:
		c.failed++
	case models.ProposalExpired:
		c.expired++
	}
	c.finished++
	c.approvalRatio += p.ApprovalScore() / float64(len(p.Participants))
	c.statsMu.Unlock()

	log.Printf("[consensus] proposal %s finished: %s (%.2f approvals of %d participants)",
		p.ID, status, p.ApprovalScore(), len(p.Participants))

	if c.onTerminal != nil {
		c.onTerminal(p)
	}
}

// onDeadline runs the single deadline evaluation for a proposal.
func (c *Coordinator) onDeadline(proposalID string) {
	e := c.entry(proposalID)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	c.evaluateLocked(e, true)
}

// Get returns a proposal by id.
func (c *Coordinator) Get(proposalID string) (*models.ConsensusProposal, error) {
	e := c.entry(proposalID)
	if e == nil {
		return nil, fmt.Errorf("get proposal %s: %w", proposalID, ErrUnknownProposal)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proposal, nil
}

// Await blocks until the proposal reaches a terminal state or the
// done channel closes at the deadline. Returns a *Failure when the
// proposal failed or expired.
func (c *Coordinator) Await(proposalID string) (*models.ConsensusProposal, error) {
	e := c.entry(proposalID)
	if e == nil {
		return nil, fmt.Errorf("await proposal %s: %w", proposalID, ErrUnknownProposal)
	}

	<-e.done

	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.proposal
	switch p.Status {
	case models.ProposalReached:
		return p, nil
	case models.ProposalFailed:
		return p, &Failure{
			ProposalID: p.ID,
			Approvals:  p.ApprovalScore(),
			Required:   p.RequiredConsensus * float64(len(p.Participants)),
		}
	default:
		return p, &Failure{
			ProposalID: p.ID,
			Approvals:  p.ApprovalScore(),
			Required:   p.RequiredConsensus * float64(len(p.Participants)),
			Expired:    true,
		}
	}
}

// Analytics returns aggregate outcome counts across finished proposals.
func (c *Coordinator) Analytics() Analytics {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	a := Analytics{Reached: c.reached, Failed: c.failed, Expired: c.expired}
	if c.finished > 0 {
		a.MeanApprovalRatio = c.approvalRatio / float64(c.finished)
	}
	return a
}

// entry looks up a proposal's coordination unit.
func (c *Coordinator) entry(proposalID string) *entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[proposalID]
}
