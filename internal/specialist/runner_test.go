package specialist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

func testInput() *Input {
	return &Input{
		Task:    &models.CompositeTask{ID: "t1", Description: "build"},
		SubUnit: &models.SubUnit{ID: "s1", Competency: models.SpecialistCode, Description: "write it"},
		Type:    models.SpecialistCode,
	}
}

// flaky fails a fixed number of times before succeeding.
type flaky struct {
	failures int
	calls    int
}

func (f *flaky) Execute(ctx context.Context, in *Input) (*quality.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("transient")
	}
	return &quality.Result{SubUnitID: in.SubUnit.ID, Output: "ok"}, nil
}

func (f *flaky) Cleanup() error { return nil }

// sleeper blocks until its context expires.
type sleeper struct{}

func (s *sleeper) Execute(ctx context.Context, in *Input) (*quality.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *sleeper) Cleanup() error { return nil }

func TestRunnerSucceedsFirstTry(t *testing.T) {
	r := NewRunner(time.Second, 2)
	cap := &flaky{}

	result, err := r.Run(context.Background(), cap, testInput())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Output != "ok" || cap.calls != 1 {
		t.Errorf("result = %+v after %d calls, want ok after 1", result, cap.calls)
	}
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	r := NewRunner(time.Second, 2)
	cap := &flaky{failures: 2}

	result, err := r.Run(context.Background(), cap, testInput())
	if err != nil {
		t.Fatalf("Run failed after retries: %v", err)
	}
	if cap.calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then success)", cap.calls)
	}
	if result.SubUnitID != "s1" {
		t.Errorf("result sub-unit = %q, want s1", result.SubUnitID)
	}
}

func TestRunnerExhaustsRetries(t *testing.T) {
	r := NewRunner(time.Second, 1)
	cap := &flaky{failures: 10}

	_, err := r.Run(context.Background(), cap, testInput())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if cap.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial plus one retry)", cap.calls)
	}
}

func TestRunnerTimeout(t *testing.T) {
	r := NewRunner(10*time.Millisecond, 1)

	_, err := r.Run(context.Background(), &sleeper{}, testInput())
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error = %v, want *TimeoutError", err)
	}
	if timeout.SubUnitID != "s1" || timeout.Attempts != 2 {
		t.Errorf("timeout = %+v, want s1 with 2 attempts", timeout)
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	r := NewRunner(time.Minute, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, &flaky{failures: 10}, testInput())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestScriptedCapability(t *testing.T) {
	s := &Scripted{Output: "canned", Scores: map[string]float64{"correctness": 0.9}}

	result, err := s.Execute(context.Background(), testInput())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != "canned" || result.Scores["correctness"] != 0.9 {
		t.Errorf("result = %+v", result)
	}

	// Each call must get its own score map.
	result.Scores["correctness"] = 0
	again, _ := s.Execute(context.Background(), testInput())
	if again.Scores["correctness"] != 0.9 {
		t.Error("scripted scores shared between results")
	}
}

func TestSplitScores(t *testing.T) {
	body, scores := splitScores("the work\nSCORES: correctness=0.9 completeness=0.85 style=bad")
	if body != "the work" {
		t.Errorf("body = %q, want the work", body)
	}
	if scores["correctness"] != 0.9 || scores["completeness"] != 0.85 {
		t.Errorf("scores = %v", scores)
	}
	if _, ok := scores["style"]; ok {
		t.Error("malformed score entry must be skipped")
	}
}

func TestSplitScoresMissingMarker(t *testing.T) {
	body, scores := splitScores("no self assessment here")
	if body != "no self assessment here" || scores != nil {
		t.Errorf("body = %q scores = %v, want untouched body and nil scores", body, scores)
	}
}
