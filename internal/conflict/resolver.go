// Package conflict derives resolutions from competing claims and keeps
// an append-only log of outcomes.
package conflict

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Unresolved indicates no resolution precedence applied and the
// conflict must be handed to an external operator channel.
type Unresolved struct {
	// TaskID is the task the conflict arose in.
	TaskID string
	// Issue is the disputed question.
	Issue string
	// Parties are the conflicting participants.
	Parties []string
}

func (e *Unresolved) Error() string {
	return fmt.Sprintf("task %s: conflict %q requires escalation (%d parties)", e.TaskID, e.Issue, len(e.Parties))
}

// Resolver settles conflicts between specialist claims.
//
// Precedence, first match wins:
//  1. unanimous minus one  -> WIN_WIN
//  2. clear majority with confidence spread below epsilon -> MAJORITY_RULE
//  3. no majority, orchestrator authority enabled -> QUEEN_DECISION
//  4. otherwise -> ESCALATION
type Resolver struct {
	// epsilon is the maximum confidence spread for MAJORITY_RULE.
	epsilon float64
	// authority enables QUEEN_DECISION.
	authority bool
	// logStore receives every resolution.
	logStore *Log
}

// NewResolver creates a Resolver writing to the given log.
func NewResolver(epsilon float64, authority bool, logStore *Log) *Resolver {
	return &Resolver{epsilon: epsilon, authority: authority, logStore: logStore}
}

// Resolve settles a conflict over the given claims and appends the
// outcome to the log. When the outcome is ESCALATION the record is
// still logged, and an Unresolved error is returned alongside it so
// the caller can hand the conflict off.
func (r *Resolver) Resolve(taskID, issue string, claims []models.Claim) (*models.ConflictRecord, error) {
	if len(claims) < 2 {
		return nil, fmt.Errorf("task %s: conflict needs at least two claims", taskID)
	}

	parties := make([]string, 0, len(claims))
	for _, cl := range claims {
		parties = append(parties, cl.Party)
	}

	positions := tally(claims)
	leading, votes := leader(positions)

	var outcome models.ResolutionOutcome
	var resolution string

	switch {
	case votes >= len(claims)-1:
		outcome = models.OutcomeWinWin
		resolution = leading
	case votes*2 > len(claims) && confidenceSpread(claims) < r.epsilon:
		outcome = models.OutcomeMajorityRule
		resolution = leading
	case votes*2 <= len(claims) && r.authority:
		outcome = models.OutcomeQueenDecision
		resolution = queenPick(claims)
	default:
		outcome = models.OutcomeEscalation
		resolution = ""
	}

	record := &models.ConflictRecord{
		ID:           uuid.New().String()[:8],
		TaskID:       taskID,
		Parties:      parties,
		Issue:        issue,
		Resolution:   resolution,
		Outcome:      outcome,
		Satisfaction: satisfaction(claims, resolution, outcome),
		ResolvedAt:   time.Now(),
	}
	r.logStore.Append(record)

	log.Printf("[conflict] task %s issue %q resolved via %s", taskID, issue, outcome)

	if outcome == models.OutcomeEscalation {
		return record, &Unresolved{TaskID: taskID, Issue: issue, Parties: parties}
	}
	return record, nil
}

// tally groups claims by position.
func tally(claims []models.Claim) map[string]int {
	positions := make(map[string]int)
	for _, cl := range claims {
		positions[cl.Position]++
	}
	return positions
}

// leader returns the position with the most claims. Ties resolve to
// the lexically smallest position so resolution stays deterministic.
func leader(positions map[string]int) (string, int) {
	var best string
	bestVotes := -1
	for pos, n := range positions {
		if n > bestVotes || (n == bestVotes && pos < best) {
			best = pos
			bestVotes = n
		}
	}
	return best, bestVotes
}

// confidenceSpread returns max minus min claim confidence.
func confidenceSpread(claims []models.Claim) float64 {
	min, max := claims[0].Confidence, claims[0].Confidence
	for _, cl := range claims[1:] {
		if cl.Confidence < min {
			min = cl.Confidence
		}
		if cl.Confidence > max {
			max = cl.Confidence
		}
	}
	return max - min
}

// queenPick is the orchestrator-authority decision: the position of
// the single most confident claimant, ties broken by party name.
func queenPick(claims []models.Claim) string {
	best := claims[0]
	for _, cl := range claims[1:] {
		if cl.Confidence > best.Confidence ||
			(cl.Confidence == best.Confidence && cl.Party < best.Party) {
			best = cl
		}
	}
	return best.Position
}

// satisfaction scores each party: full for holding the winning
// position, partial otherwise, zero across the board on escalation.
func satisfaction(claims []models.Claim, resolution string, outcome models.ResolutionOutcome) map[string]float64 {
	scores := make(map[string]float64, len(claims))
	for _, cl := range claims {
		switch {
		case outcome == models.OutcomeEscalation:
			scores[cl.Party] = 0
		case cl.Position == resolution:
			scores[cl.Party] = 1
		case outcome == models.OutcomeWinWin:
			scores[cl.Party] = 0.7
		default:
			scores[cl.Party] = 0.4
		}
	}
	return scores
}
