package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/hivemind/internal/config"
	"github.com/ShayCichocki/hivemind/internal/directory"
	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/internal/resource"
	"github.com/ShayCichocki/hivemind/internal/specialist"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

func passingCapability() specialist.Capability {
	return &specialist.Scripted{
		Output: "done",
		Scores: map[string]float64{"correctness": 0.9, "completeness": 0.9, "style": 0.9},
	}
}

func failingCapability() specialist.Capability {
	return &specialist.Scripted{
		Output: "sloppy",
		Scores: map[string]float64{"correctness": 0.2, "completeness": 0.2, "style": 0.2},
	}
}

func newTestOrchestrator(t *testing.T, cap specialist.Capability) *Orchestrator {
	t.Helper()
	o := New(config.Default(), directory.DefaultCatalogue(), Options{Capability: cap})
	t.Cleanup(o.Close)
	return o
}

func testTask(id string, subUnits int) *models.CompositeTask {
	task := &models.CompositeTask{
		ID:          id,
		Description: "build the thing",
		Priority:    models.PriorityMedium,
		Complexity:  models.ComplexityMedium,
		Status:      models.TaskStatusPending,
		CreatedAt:   time.Now(),
	}
	competencies := []models.SpecialistType{
		models.SpecialistCode, models.SpecialistTesting, models.SpecialistDocumentation,
		models.SpecialistSecurity, models.SpecialistAnalysis,
	}
	for i := 0; i < subUnits; i++ {
		task.SubUnits = append(task.SubUnits, &models.SubUnit{
			ID:          id + "-s" + string(rune('1'+i)),
			TaskID:      id,
			Competency:  competencies[i%len(competencies)],
			Description: "work",
			Status:      models.SubUnitPending,
		})
	}
	return task
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name string
		task *models.CompositeTask
		want models.Strategy
	}{
		{
			name: "critical priority with heavy coordination needs",
			task: &models.CompositeTask{
				Priority: models.PriorityCritical,
				CoordinationRequirements: []string{
					"design-review", "security-signoff", "api-freeze", "release-window",
				},
			},
			want: models.StrategyHierarchical,
		},
		{
			name: "critical priority with few coordination needs stays parallel",
			task: &models.CompositeTask{
				Priority:                 models.PriorityCritical,
				CoordinationRequirements: []string{"design-review", "api-freeze"},
				SubUnits:                 []*models.SubUnit{{ID: "a"}, {ID: "b"}, {ID: "c"}},
			},
			want: models.StrategySimultaneous,
		},
		{
			name: "critical complexity with heavy dependencies",
			task: &models.CompositeTask{
				Priority:     models.PriorityHigh,
				Complexity:   models.ComplexityCritical,
				Dependencies: []string{"t0", "t1", "t2", "t3", "t4", "t5"},
			},
			want: models.StrategyCollaborative,
		},
		{
			name: "critical complexity with few dependencies",
			task: &models.CompositeTask{
				Priority:     models.PriorityHigh,
				Complexity:   models.ComplexityCritical,
				Dependencies: []string{"t0", "t1"},
				SubUnits:     []*models.SubUnit{{ID: "a"}, {ID: "b"}},
			},
			want: models.StrategyAdaptive,
		},
		{
			name: "independent multi-unit task",
			task: &models.CompositeTask{
				Priority:   models.PriorityMedium,
				Complexity: models.ComplexityMedium,
				SubUnits:   []*models.SubUnit{{ID: "a"}, {ID: "b"}},
			},
			want: models.StrategySimultaneous,
		},
		{
			name: "single unit task",
			task: &models.CompositeTask{
				Priority: models.PriorityLow,
				SubUnits: []*models.SubUnit{{ID: "a"}},
			},
			want: models.StrategyAdaptive,
		},
		{
			name: "dependent medium task",
			task: &models.CompositeTask{
				Priority:     models.PriorityMedium,
				Dependencies: []string{"t0"},
				SubUnits:     []*models.SubUnit{{ID: "a"}, {ID: "b"}},
			},
			want: models.StrategyAdaptive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				if got := SelectStrategy(tt.task); got != tt.want {
					t.Fatalf("SelectStrategy = %s, want %s", got, tt.want)
				}
			}
		})
	}
}

func TestOrchestrateCoversEverySubUnitOnce(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	task := testTask("t1", 3)

	plan, err := o.Orchestrate(task)
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	seen := make(map[string]int)
	for _, ids := range plan.Assignments {
		for _, id := range ids {
			seen[id]++
		}
	}
	if len(seen) != 3 {
		t.Fatalf("assigned sub-units = %d, want exactly 3", len(seen))
	}
	for _, su := range task.SubUnits {
		if seen[su.ID] != 1 {
			t.Errorf("sub-unit %s assigned %d times, want exactly once", su.ID, seen[su.ID])
		}
	}
	if task.Status != models.TaskStatusPlanned {
		t.Errorf("task status = %s, want planned", task.Status)
	}
}

func TestOrchestrateValidation(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	cases := []*models.CompositeTask{
		nil,
		{Description: "no id", Priority: models.PriorityLow, Complexity: models.ComplexityLow},
		{ID: "t1", Priority: models.PriorityLow, Complexity: models.ComplexityLow},
		{ID: "t1", Description: "d", Priority: "urgent", Complexity: models.ComplexityLow},
		{ID: "t1", Description: "d", Priority: models.PriorityLow, Complexity: models.ComplexityLow},
		{
			ID: "t1", Description: "d", Priority: models.PriorityLow, Complexity: models.ComplexityLow,
			SubUnits: []*models.SubUnit{
				{ID: "s1", Competency: models.SpecialistCode},
				{ID: "s1", Competency: models.SpecialistCode},
			},
		},
	}

	for i, task := range cases {
		_, err := o.Orchestrate(task)
		var v *ValidationError
		if !errors.As(err, &v) {
			t.Errorf("case %d: error = %v, want *ValidationError", i, err)
		}
	}
}

func TestOrchestrateRejectsDuplicateActivePlan(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("first Orchestrate failed: %v", err)
	}
	_, err := o.Orchestrate(testTask("t1", 2))
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("duplicate plan error = %v, want *ValidationError", err)
	}
}

func TestOrchestrateAllocationFailureIsAllOrNothing(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity.TotalSlots = 2
	o := New(cfg, directory.DefaultCatalogue(), Options{Capability: passingCapability()})
	defer o.Close()

	task := testTask("t1", 5)
	_, err := o.Orchestrate(task)

	var oe *OrchestrationError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OrchestrationError", err)
	}
	if oe.Stage != "allocation" {
		t.Errorf("stage = %q, want allocation", oe.Stage)
	}
	var capErr *resource.CapacityError
	if !errors.As(err, &capErr) {
		t.Errorf("error chain %v must carry *CapacityError", err)
	}

	if o.Plan("t1") != nil {
		t.Error("failed orchestration left a registered plan")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	task := testTask("t1", 2)

	plan, err := o.Orchestrate(task)
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	o.Cancel("t1")
	o.Cancel("t1")
	o.Cancel("never-planned")

	if task.Status != models.TaskStatusTerminated {
		t.Errorf("task status = %s, want terminated", task.Status)
	}
	if plan.Status != models.PlanTerminated {
		t.Errorf("plan status = %s, want terminated", plan.Status)
	}
	if o.Plan("t1") != nil {
		t.Error("cancelled plan still registered")
	}
}

func TestExecuteDeliversTask(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	task := testTask("t1", 3)

	if _, err := o.Orchestrate(task); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}
	if err := o.Execute(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if task.Status != models.TaskStatusDelivered {
		t.Errorf("task status = %s, want delivered", task.Status)
	}
	for _, su := range task.SubUnits {
		if su.Status != models.SubUnitDone {
			t.Errorf("sub-unit %s status = %s, want done", su.ID, su.Status)
		}
	}
	if o.Plan("t1") != nil {
		t.Error("finished plan still registered")
	}
}

func TestExecuteFailsAfterReworkExhaustion(t *testing.T) {
	o := newTestOrchestrator(t, failingCapability())
	task := testTask("t1", 1)

	if _, err := o.Orchestrate(task); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	err := o.Execute(context.Background(), "t1", nil)
	var gateErr *quality.GateFailure
	if !errors.As(err, &gateErr) {
		t.Fatalf("error = %v, want *quality.GateFailure", err)
	}
	if len(gateErr.Issues) == 0 {
		t.Error("gate failure must carry accumulated issues")
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
}

func TestExecuteUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	err := o.Execute(context.Background(), "nope", nil)
	var ce *CoordinationError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CoordinationError", err)
	}
}

func TestCoordinateUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	_, err := o.Coordinate("nope", &Signal{Type: SignalSync})
	var ce *CoordinationError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CoordinationError", err)
	}
}

func TestCoordinateDecisionOpensProposal(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	outcome, err := o.Coordinate("t1", &Signal{
		Type:         SignalDecision,
		Issue:        "merge order",
		Participants: []string{"code", "testing"},
	})
	if err != nil {
		t.Fatalf("Coordinate failed: %v", err)
	}
	if outcome.Proposal == nil {
		t.Fatal("decision signal returned no proposal")
	}

	got, err := o.Consensus().Get(outcome.Proposal.ID)
	if err != nil {
		t.Fatalf("proposal not registered: %v", err)
	}
	if got.RequiredConsensus != 0.8 {
		t.Errorf("required = %.2f, want configured default 0.8", got.RequiredConsensus)
	}
}

func TestCoordinateConflictResolves(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	outcome, err := o.Coordinate("t1", &Signal{
		Type:  SignalConflict,
		Issue: "api shape",
		Claims: []models.Claim{
			{Party: "code", Position: "rest", Confidence: 0.9},
			{Party: "testing", Position: "rest", Confidence: 0.8},
			{Party: "security", Position: "grpc", Confidence: 0.9},
		},
	})
	if err != nil {
		t.Fatalf("Coordinate failed: %v", err)
	}
	if outcome.Record == nil || outcome.Record.Outcome != models.OutcomeWinWin {
		t.Errorf("record = %+v, want win_win", outcome.Record)
	}
	if o.Conflicts().Len() != 1 {
		t.Errorf("conflict log length = %d, want 1", o.Conflicts().Len())
	}
}

func TestCoordinateQualityGate(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	outcome, err := o.Coordinate("t1", &Signal{
		Type: SignalQualityGate,
		Result: &quality.Result{
			SubUnitID: "t1-s1",
			Scores:    map[string]float64{"correctness": 0.9, "completeness": 0.9, "style": 0.9},
		},
	})
	if err != nil {
		t.Fatalf("Coordinate failed: %v", err)
	}
	if outcome.Evaluation == nil || !outcome.Evaluation.Passed {
		t.Errorf("evaluation = %+v, want pass", outcome.Evaluation)
	}
}

func TestCoordinateProgressReport(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	outcome, err := o.Coordinate("t1", &Signal{Type: SignalProgress})
	if err != nil {
		t.Fatalf("Coordinate failed: %v", err)
	}
	if outcome.Message == "" {
		t.Error("progress report must carry a message")
	}
}

func TestEventsEmitted(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	if _, err := o.Orchestrate(testTask("t1", 2)); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	select {
	case ev := <-o.Events():
		if ev.Type != EventAgentsOrchestrated {
			t.Errorf("first event = %s, want %s", ev.Type, EventAgentsOrchestrated)
		}
		if ev.TaskID != "t1" {
			t.Errorf("event task = %q, want t1", ev.TaskID)
		}
		if ev.Plan == nil || ev.Plan.TaskID != "t1" {
			t.Error("orchestration event must carry the created plan")
		}
	default:
		t.Fatal("no event emitted for orchestration")
	}
}

func TestBuildConsensusThreshold(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	p, err := o.BuildConsensus("merge order", []string{"code", "testing"}, "", 0.6)
	if err != nil {
		t.Fatalf("BuildConsensus failed: %v", err)
	}
	if p.RequiredConsensus != 0.6 {
		t.Errorf("required = %.2f, want caller-supplied 0.6", p.RequiredConsensus)
	}

	p, err = o.BuildConsensus("release date", []string{"code", "testing"}, "", 0)
	if err != nil {
		t.Fatalf("BuildConsensus failed: %v", err)
	}
	if p.RequiredConsensus != 0.8 {
		t.Errorf("required = %.2f, want configured default 0.8", p.RequiredConsensus)
	}
}

func TestBuildConsensusEmitsEvent(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	p, err := o.BuildConsensus("merge order", []string{"code", "testing"}, "", 0)
	if err != nil {
		t.Fatalf("BuildConsensus failed: %v", err)
	}

	select {
	case ev := <-o.Events():
		if ev.Type != EventConsensusInitiated {
			t.Errorf("event = %s, want %s", ev.Type, EventConsensusInitiated)
		}
		if ev.ProposalID != p.ID || ev.Proposal == nil {
			t.Error("consensus event must carry the opened proposal")
		}
	default:
		t.Fatal("no event emitted for opened proposal")
	}
}

func TestRebalanceMovesPendingWork(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())

	task := &models.CompositeTask{
		ID:          "t1",
		Description: "refactor the storage layer",
		Priority:    models.PriorityMedium,
		Complexity:  models.ComplexityMedium,
		Status:      models.TaskStatusPending,
	}
	for _, id := range []string{"t1-s1", "t1-s2", "t1-s3", "t1-s4"} {
		task.SubUnits = append(task.SubUnits, &models.SubUnit{
			ID: id, TaskID: "t1", Competency: models.SpecialistCode,
			Description: "work", Status: models.SubUnitPending,
		})
	}

	plan, err := o.Orchestrate(task)
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}
	<-o.Events() // agents:orchestrated

	// Sustained imbalance: code over the band, testing under it.
	for i := 0; i < 3; i++ {
		o.monitor.Record(&models.PerformanceSnapshot{
			Utilization: map[models.SpecialistType]float64{
				models.SpecialistCode:    0.95,
				models.SpecialistTesting: 0.30,
			},
		})
	}

	state := o.Rebalance()
	if state == nil {
		t.Fatal("Rebalance returned no system state")
	}

	// 0.30 of 4 sub-units rounds down to one move.
	if got := len(plan.Assignments[models.SpecialistTesting]); got != 1 {
		t.Errorf("testing assignments = %d, want 1 reassigned sub-unit", got)
	}
	if got := len(plan.Assignments[models.SpecialistCode]); got != 3 {
		t.Errorf("code assignments = %d, want 3", got)
	}

	select {
	case ev := <-o.Events():
		if ev.Type != EventSystemRebalanced {
			t.Errorf("event = %s, want %s", ev.Type, EventSystemRebalanced)
		}
		if ev.Plan == nil || ev.Plan.ID != plan.ID {
			t.Error("rebalance event must carry the changed plan")
		}
	default:
		t.Fatal("no event emitted for applied rebalance")
	}
}

func TestRebalanceWithoutImbalanceIsANoop(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	task := testTask("t1", 4)

	plan, err := o.Orchestrate(task)
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}
	before := make(map[models.SpecialistType]int)
	for st, ids := range plan.Assignments {
		before[st] = len(ids)
	}

	state := o.Rebalance()
	if state == nil {
		t.Fatal("Rebalance returned no system state")
	}
	for st, ids := range plan.Assignments {
		if len(ids) != before[st] {
			t.Errorf("assignments for %s changed without imbalance", st)
		}
	}
}

func TestSystemStateTracksStrategies(t *testing.T) {
	o := newTestOrchestrator(t, passingCapability())
	task := testTask("t1", 2)

	if _, err := o.Orchestrate(task); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}
	if err := o.Execute(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	state := o.SystemState()
	stats := state.StrategyStats[models.StrategySimultaneous]
	if stats.Chosen != 1 || stats.Succeeded != 1 {
		t.Errorf("strategy stats = %+v, want 1 chosen, 1 succeeded", stats)
	}
	if len(state.Window) == 0 {
		t.Error("system state carries no performance snapshots")
	}
}

func TestPauseControllerBlocksAndResumes(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	released := make(chan error, 1)
	go func() {
		released <- p.WaitIfPaused(context.Background())
	}()

	select {
	case <-released:
		t.Fatal("WaitIfPaused returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	p.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("WaitIfPaused returned error after resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after resume")
	}
}

func TestPauseControllerStopUnblocks(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	released := make(chan error, 1)
	go func() {
		released <- p.WaitIfPaused(context.Background())
	}()

	p.Stop()
	select {
	case err := <-released:
		if err == nil {
			t.Error("WaitIfPaused must return an error after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after Stop")
	}
}
