package consensus

import (
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

func vote(participant string, decision models.VoteDecision, confidence float64) *models.Vote {
	return &models.Vote{Participant: participant, Decision: decision, Confidence: confidence}
}

func propose(t *testing.T, c *Coordinator, participants []string, required float64, deadline time.Duration) *models.ConsensusProposal {
	t.Helper()
	p, err := c.Propose("adopt design", participants, "payload", required, deadline)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	return p
}

func TestProposeValidation(t *testing.T) {
	c := NewCoordinator()

	if _, err := c.Propose("", []string{"a"}, "", 0.8, time.Minute); err == nil {
		t.Error("expected error for empty topic")
	}
	if _, err := c.Propose("t", nil, "", 0.8, time.Minute); err == nil {
		t.Error("expected error for no participants")
	}
	if _, err := c.Propose("t", []string{"a"}, "", 0, time.Minute); err == nil {
		t.Error("expected error for zero required consensus")
	}
	if _, err := c.Propose("t", []string{"a"}, "", 1.1, time.Minute); err == nil {
		t.Error("expected error for required consensus above 1")
	}
	if _, err := c.Propose("t", []string{"a", "a"}, "", 0.8, time.Minute); err == nil {
		t.Error("expected error for duplicate participant")
	}
}

func TestConsensusReachedAtFourOfFive(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c", "d", "e"}, 0.8, time.Minute)

	for _, voter := range []string{"a", "b", "c"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteApprove, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}

	got, err := c.Get(p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.ProposalVoting {
		t.Errorf("after 3 of 5 approvals status = %s, want voting", got.Status)
	}

	if err := c.CastVote(p.ID, vote("d", models.VoteApprove, 1)); err != nil {
		t.Fatalf("CastVote(d) failed: %v", err)
	}
	got, _ = c.Get(p.ID)
	if got.Status != models.ProposalReached {
		t.Errorf("after 4 of 5 approvals status = %s, want reached", got.Status)
	}
}

func TestConsensusFailsWhenAllVotedBelowThreshold(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c", "d", "e"}, 0.8, time.Minute)

	for _, voter := range []string{"a", "b", "c"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteApprove, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}
	for _, voter := range []string{"d", "e"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteReject, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}

	got, _ := c.Get(p.ID)
	if got.Status != models.ProposalFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}

	_, err := c.Await(p.ID)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Await error = %v, want *Failure", err)
	}
	if failure.Expired {
		t.Error("failure marked expired for a fully-voted proposal")
	}
}

func TestConditionalVotesCountByConfidence(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c", "d"}, 0.75, time.Minute)

	// 3 approvals + 1 reject: score 3.0, needed 3.0.
	for _, voter := range []string{"a", "b", "c"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteApprove, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}
	if err := c.CastVote(p.ID, vote("d", models.VoteReject, 1)); err != nil {
		t.Fatalf("CastVote(d) failed: %v", err)
	}

	got, _ := c.Get(p.ID)
	if got.Status != models.ProposalReached {
		t.Errorf("status = %s, want reached (score 3.0 meets 0.75*4)", got.Status)
	}
}

func TestConditionalConfidenceBelowThreshold(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c", "d"}, 0.75, time.Minute)

	for _, voter := range []string{"a", "b"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteApprove, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}
	// Conditional at 0.5 contributes half a point: 2.5 < 3.0.
	if err := c.CastVote(p.ID, vote("c", models.VoteConditional, 0.5)); err != nil {
		t.Fatalf("CastVote(c) failed: %v", err)
	}
	if err := c.CastVote(p.ID, vote("d", models.VoteAbstain, 1)); err != nil {
		t.Fatalf("CastVote(d) failed: %v", err)
	}

	got, _ := c.Get(p.ID)
	if got.Status != models.ProposalFailed {
		t.Errorf("status = %s, want failed (score 2.5 below 3.0 with all voted)", got.Status)
	}
}

func TestRevoteReplacesNotDuplicates(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c"}, 0.9, time.Minute)

	if err := c.CastVote(p.ID, vote("a", models.VoteReject, 1)); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if err := c.CastVote(p.ID, vote("a", models.VoteApprove, 1)); err != nil {
		t.Fatalf("revote failed: %v", err)
	}

	got, _ := c.Get(p.ID)
	if len(got.Votes) != 1 {
		t.Fatalf("vote count = %d, want 1", len(got.Votes))
	}
	if got.Votes["a"].Decision != models.VoteApprove {
		t.Errorf("decision = %s, want approve (later vote wins)", got.Votes["a"].Decision)
	}
}

func TestDeadlineExpiresNotFails(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c", "d", "e"}, 0.8, 30*time.Millisecond)

	for _, voter := range []string{"a", "b"} {
		if err := c.CastVote(p.ID, vote(voter, models.VoteApprove, 1)); err != nil {
			t.Fatalf("CastVote(%s) failed: %v", voter, err)
		}
	}

	_, err := c.Await(p.ID)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Await error = %v, want *Failure", err)
	}
	if !failure.Expired {
		t.Error("deadline passed with votes outstanding: want expired, not failed")
	}

	got, _ := c.Get(p.ID)
	if got.Status != models.ProposalExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
}

func TestLateVoteRejected(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b"}, 0.5, 20*time.Millisecond)

	if _, err := c.Await(p.ID); err == nil {
		t.Fatal("expected failure from expired proposal")
	}

	err := c.CastVote(p.ID, vote("a", models.VoteApprove, 1))
	var late *LateVoteError
	if !errors.As(err, &late) {
		t.Fatalf("late vote error = %v, want *LateVoteError", err)
	}
	if late.Status != models.ProposalExpired {
		t.Errorf("late vote status = %s, want expired", late.Status)
	}
}

func TestVoteOnTerminalProposalRejected(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b"}, 0.5, time.Minute)

	if err := c.CastVote(p.ID, vote("a", models.VoteApprove, 1)); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	got, _ := c.Get(p.ID)
	if got.Status != models.ProposalReached {
		t.Fatalf("status = %s, want reached", got.Status)
	}

	err := c.CastVote(p.ID, vote("b", models.VoteApprove, 1))
	var late *LateVoteError
	if !errors.As(err, &late) {
		t.Fatalf("vote on terminal proposal error = %v, want *LateVoteError", err)
	}
}

func TestNonParticipantRejected(t *testing.T) {
	c := NewCoordinator()
	p := propose(t, c, []string{"a", "b", "c"}, 0.9, time.Minute)

	if err := c.CastVote(p.ID, vote("intruder", models.VoteApprove, 1)); err == nil {
		t.Error("expected error for non-participant vote")
	}
}

func TestUnknownProposal(t *testing.T) {
	c := NewCoordinator()

	err := c.CastVote("nope", vote("a", models.VoteApprove, 1))
	if !errors.Is(err, ErrUnknownProposal) {
		t.Errorf("error = %v, want ErrUnknownProposal", err)
	}
	if _, err := c.Get("nope"); !errors.Is(err, ErrUnknownProposal) {
		t.Errorf("Get error = %v, want ErrUnknownProposal", err)
	}
}

func TestAnalytics(t *testing.T) {
	c := NewCoordinator()

	p1 := propose(t, c, []string{"a"}, 0.5, time.Minute)
	if err := c.CastVote(p1.ID, vote("a", models.VoteApprove, 1)); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	p2 := propose(t, c, []string{"a", "b"}, 0.9, time.Minute)
	if err := c.CastVote(p2.ID, vote("a", models.VoteReject, 1)); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := c.CastVote(p2.ID, vote("b", models.VoteReject, 1)); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	a := c.Analytics()
	if a.Reached != 1 || a.Failed != 1 || a.Expired != 0 {
		t.Errorf("analytics = %+v, want 1 reached, 1 failed, 0 expired", a)
	}
	if a.MeanApprovalRatio != 0.5 {
		t.Errorf("mean approval ratio = %.2f, want 0.50", a.MeanApprovalRatio)
	}
}

func TestOnTerminalFiresOnce(t *testing.T) {
	c := NewCoordinator()
	fired := 0
	c.OnTerminal(func(p *models.ConsensusProposal) { fired++ })

	p := propose(t, c, []string{"a"}, 0.5, time.Minute)
	if err := c.CastVote(p.ID, vote("a", models.VoteApprove, 1)); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	if fired != 1 {
		t.Errorf("terminal callback fired %d times, want 1", fired)
	}
}
