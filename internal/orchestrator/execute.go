package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/internal/specialist"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Execute runs a planned task through its timeline. Phases run in
// order; sub-units within a phase run concurrently, bounded by each
// specialist type's allocated cap. Every result passes the plan's
// quality gates, with rework cycles up to the configured limit. On
// success the task is delivered; on any sub-unit failure the task
// fails and its capacity is released.
func (o *Orchestrator) Execute(ctx context.Context, taskID string, pause *PauseController) error {
	unit := o.registry.get(taskID)
	if unit == nil {
		return &CoordinationError{TaskID: taskID}
	}
	if o.capability == nil {
		return fmt.Errorf("execute task %s: no specialist capability configured", taskID)
	}

	unit.mu.Lock()
	unit.task.Status = models.TaskStatusInProgress
	plan := unit.plan
	phases := append([]models.TimelinePhase(nil), plan.Timeline...)
	unit.mu.Unlock()

	sems := o.typeSemaphores(plan.Allocation)
	start := time.Now()
	execErr := o.runPhases(ctx, unit, phases, sems, pause)

	unit.mu.Lock()
	if execErr != nil {
		unit.task.Status = models.TaskStatusFailed
		unit.plan.Status = models.PlanFailed
	} else {
		unit.task.Status = models.TaskStatusDelivered
		unit.plan.Status = models.PlanCompleted
	}
	unit.mu.Unlock()

	o.book.finished(plan.Strategy, execErr == nil)
	o.recordSnapshot(unit, time.Since(start))
	o.allocator.Release(plan.ID)
	o.registry.remove(taskID)
	o.persistPlan(plan)

	if execErr != nil {
		log.Printf("[orchestrator] task %s failed: %v", taskID, execErr)
		return execErr
	}

	log.Printf("[orchestrator] task %s delivered (%d sub-units)", taskID, len(unit.task.SubUnits))
	return nil
}

// runPhases executes timeline phases in order, stopping at the first
// phase that fails.
func (o *Orchestrator) runPhases(ctx context.Context, unit *taskUnit, phases []models.TimelinePhase, sems map[models.SpecialistType]chan struct{}, pause *PauseController) error {
	for _, phase := range phases {
		var wg sync.WaitGroup
		errCh := make(chan error, len(phase.SubUnitIDs))

		for _, id := range phase.SubUnitIDs {
			if pause != nil {
				if err := pause.WaitIfPaused(ctx); err != nil {
					return err
				}
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			wg.Add(1)
			go func(subUnitID string) {
				defer wg.Done()
				if err := o.runSubUnit(ctx, unit, subUnitID, sems); err != nil {
					errCh <- err
				}
			}(id)
		}

		wg.Wait()
		close(errCh)
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}

// runSubUnit executes one sub-unit through its specialist and the
// quality gates, consuming rework cycles on gate failures.
func (o *Orchestrator) runSubUnit(ctx context.Context, unit *taskUnit, subUnitID string, sems map[models.SpecialistType]chan struct{}) error {
	unit.mu.Lock()
	su := unit.task.SubUnit(subUnitID)
	st := unit.plan.AssignedType(subUnitID)
	in := &specialist.Input{
		Task:    unit.task,
		SubUnit: su,
		Type:    st,
		Context: copyOutputs(unit.outputs),
	}
	unit.mu.Unlock()

	if su == nil || st == "" {
		return fmt.Errorf("sub-unit %s: not covered by plan", subUnitID)
	}

	if sem := sems[st]; sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	unit.mu.Lock()
	su.Status = models.SubUnitExecuting
	unit.mu.Unlock()
	o.dir.AddLoad(st, 1)
	defer o.dir.AddLoad(st, -1)

	for {
		result, err := o.runner.Run(ctx, o.capability, in)
		if err != nil {
			o.failSubUnit(unit, su, st)
			return fmt.Errorf("sub-unit %s: %w", subUnitID, err)
		}

		unit.mu.Lock()
		eval := unit.gates.Evaluate(result)
		unit.mu.Unlock()

		if eval.Passed {
			unit.mu.Lock()
			su.Status = models.SubUnitDone
			unit.outputs[subUnitID] = result.Output
			unit.rework.Reset(subUnitID)
			unit.mu.Unlock()
			o.dir.RecordOutcome(st, true)

			o.emitter.Emit(Event{
				Type:       EventQualityValidated,
				TaskID:     unit.task.ID,
				PlanID:     unit.plan.ID,
				Evaluation: eval,
				Message:    subUnitID,
			})
			return nil
		}

		if !unit.rework.Record(subUnitID, eval.Issues) {
			o.failSubUnit(unit, su, st)
			return &quality.GateFailure{
				TaskID: unit.task.ID,
				Gate:   firstGate(eval.Issues),
				Cycles: unit.rework.Cycles(subUnitID),
				Issues: unit.rework.Issues(subUnitID),
			}
		}

		log.Printf("[orchestrator] sub-unit %s rework cycle %d: %d issues",
			subUnitID, unit.rework.Cycles(subUnitID), len(eval.Issues))
		in.Context["rework-issues"] = joinIssues(unit.rework.Issues(subUnitID))
	}
}

func (o *Orchestrator) failSubUnit(unit *taskUnit, su *models.SubUnit, st models.SpecialistType) {
	unit.mu.Lock()
	su.Status = models.SubUnitFailed
	unit.mu.Unlock()
	o.dir.RecordOutcome(st, false)
}

// typeSemaphores builds per-type concurrency bounds from the plan's
// allocation caps.
func (o *Orchestrator) typeSemaphores(alloc *models.ResourceAllocation) map[models.SpecialistType]chan struct{} {
	sems := make(map[models.SpecialistType]chan struct{}, len(alloc.Shares))
	for st, share := range alloc.Shares {
		n := share.Cap
		if n < 1 {
			n = 1
		}
		sems[st] = make(chan struct{}, n)
	}
	return sems
}

// recordSnapshot folds one finished task into the monitor window.
func (o *Orchestrator) recordSnapshot(unit *taskUnit, elapsed time.Duration) {
	unit.mu.Lock()
	total := len(unit.task.SubUnits)
	done, failed := 0, 0
	for _, su := range unit.task.SubUnits {
		switch su.Status {
		case models.SubUnitDone:
			done++
		case models.SubUnitFailed:
			failed++
		}
	}
	unit.mu.Unlock()

	snap := &models.PerformanceSnapshot{
		Timestamp:   time.Now(),
		Utilization: o.dir.Utilization(),
	}
	if elapsed > 0 {
		snap.Throughput = float64(done) / elapsed.Minutes()
	}
	if done > 0 {
		snap.Latency = elapsed / time.Duration(done)
	}
	if total > 0 {
		snap.ErrorRate = float64(failed) / float64(total)
		snap.ResourceEfficiency = float64(done) / float64(total)
	}
	snap.QualityScore = 1 - snap.ErrorRate

	o.monitor.Record(snap)
	if o.db != nil {
		if err := o.db.SaveSnapshot(snap); err != nil {
			log.Printf("[orchestrator] persist snapshot: %v", err)
		}
	}
}

func copyOutputs(outputs map[string]string) map[string]string {
	out := make(map[string]string, len(outputs))
	for k, v := range outputs {
		out[k] = v
	}
	return out
}

func firstGate(issues []string) string {
	if len(issues) == 0 {
		return "unknown"
	}
	return issues[0]
}

func joinIssues(issues []string) string {
	s := ""
	for i, issue := range issues {
		if i > 0 {
			s += "; "
		}
		s += issue
	}
	return s
}
