package conflict

import (
	"errors"
	"testing"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

func newTestResolver(authority bool) (*Resolver, *Log) {
	logStore := NewLog()
	return NewResolver(0.25, authority, logStore), logStore
}

func claim(party, position string, confidence float64) models.Claim {
	return models.Claim{Party: party, Position: position, Confidence: confidence}
}

func TestResolveRequiresTwoClaims(t *testing.T) {
	r, _ := newTestResolver(true)
	if _, err := r.Resolve("t1", "issue", []models.Claim{claim("a", "x", 0.9)}); err == nil {
		t.Error("expected error for single claim")
	}
}

func TestWinWinOnUnanimousMinusOne(t *testing.T) {
	r, logStore := newTestResolver(true)

	rec, err := r.Resolve("t1", "api shape", []models.Claim{
		claim("a", "rest", 0.9),
		claim("b", "rest", 0.8),
		claim("c", "rest", 0.7),
		claim("d", "grpc", 0.9),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rec.Outcome != models.OutcomeWinWin {
		t.Errorf("outcome = %s, want win_win", rec.Outcome)
	}
	if rec.Resolution != "rest" {
		t.Errorf("resolution = %q, want rest", rec.Resolution)
	}
	if logStore.Len() != 1 {
		t.Errorf("log length = %d, want 1", logStore.Len())
	}
}

func TestMajorityRuleWithinEpsilon(t *testing.T) {
	r, _ := newTestResolver(true)

	// 3 of 5 for "rest", spread 0.9-0.7 = 0.2 < 0.25.
	rec, err := r.Resolve("t1", "api shape", []models.Claim{
		claim("a", "rest", 0.9),
		claim("b", "rest", 0.8),
		claim("c", "rest", 0.8),
		claim("d", "grpc", 0.7),
		claim("e", "soap", 0.8),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rec.Outcome != models.OutcomeMajorityRule {
		t.Errorf("outcome = %s, want majority_rule", rec.Outcome)
	}
	if rec.Resolution != "rest" {
		t.Errorf("resolution = %q, want rest", rec.Resolution)
	}
}

func TestMajorityWithWideSpreadEscalates(t *testing.T) {
	r, _ := newTestResolver(false)

	// Majority exists but confidence spread 0.9-0.2 = 0.7 >= 0.25, and
	// with authority disabled nothing else applies.
	rec, err := r.Resolve("t1", "api shape", []models.Claim{
		claim("a", "rest", 0.9),
		claim("b", "rest", 0.2),
		claim("c", "rest", 0.5),
		claim("d", "grpc", 0.9),
		claim("e", "soap", 0.9),
	})
	var unresolved *Unresolved
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want *Unresolved", err)
	}
	if rec == nil || rec.Outcome != models.OutcomeEscalation {
		t.Errorf("escalation must still be logged with outcome escalation, got %+v", rec)
	}
}

func TestQueenDecisionWithoutMajority(t *testing.T) {
	r, _ := newTestResolver(true)

	rec, err := r.Resolve("t1", "storage", []models.Claim{
		claim("a", "sqlite", 0.6),
		claim("b", "postgres", 0.95),
		claim("c", "files", 0.5),
		claim("d", "redis", 0.7),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rec.Outcome != models.OutcomeQueenDecision {
		t.Errorf("outcome = %s, want queen_decision", rec.Outcome)
	}
	if rec.Resolution != "postgres" {
		t.Errorf("resolution = %q, want the most confident position", rec.Resolution)
	}
}

func TestEscalationWithoutAuthority(t *testing.T) {
	r, logStore := newTestResolver(false)

	_, err := r.Resolve("t1", "storage", []models.Claim{
		claim("a", "sqlite", 0.6),
		claim("b", "postgres", 0.9),
		claim("c", "files", 0.5),
		claim("d", "redis", 0.7),
	})
	var unresolved *Unresolved
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want *Unresolved", err)
	}
	if unresolved.TaskID != "t1" {
		t.Errorf("unresolved task = %q, want t1", unresolved.TaskID)
	}
	if logStore.Len() != 1 {
		t.Errorf("escalations must be logged, log length = %d", logStore.Len())
	}
}

func TestSatisfactionScores(t *testing.T) {
	r, _ := newTestResolver(true)

	rec, err := r.Resolve("t1", "api shape", []models.Claim{
		claim("a", "rest", 0.9),
		claim("b", "rest", 0.8),
		claim("c", "grpc", 0.7),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rec.Satisfaction["a"] != 1 || rec.Satisfaction["b"] != 1 {
		t.Errorf("winners must have full satisfaction, got %v", rec.Satisfaction)
	}
	if rec.Satisfaction["c"] >= 1 || rec.Satisfaction["c"] <= 0 {
		t.Errorf("losing party satisfaction = %v, want partial", rec.Satisfaction["c"])
	}
}

func TestLogRecordsAreCopies(t *testing.T) {
	logStore := NewLog()
	logStore.Append(&models.ConflictRecord{ID: "c1", Resolution: "rest"})

	records := logStore.Records()
	records[0].Resolution = "mutated"

	if logStore.Records()[0].Resolution != "rest" {
		t.Error("mutating a returned record must not change the log")
	}
}
