package orchestrator

import (
	"fmt"
	"sort"

	"github.com/ShayCichocki/hivemind/internal/monitor"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// lowStrategyRate is the success rate below which a strategy is
// flagged for review in optimization passes.
const lowStrategyRate = 0.5

// OptimizePerformance runs one optimization pass: check for sustained
// utilization imbalance, rebalance pending work on every active plan,
// and flag strategies with poor observed outcomes. Returns the
// actions considered and the resulting system state.
func (o *Orchestrator) OptimizePerformance() ([]models.OptimizationResult, *models.SystemState) {
	var results []models.OptimizationResult

	if im := o.monitor.IdentifyImbalance(); im.Detected() {
		results = o.rebalanceActivePlans(im)
	}
	results = append(results, o.strategyFindings()...)

	state := o.SystemState()
	o.emitter.Emit(Event{
		Type:    EventPerformanceOptimized,
		State:   state,
		Message: fmt.Sprintf("%d actions considered, %d applied", len(results), applied(results)),
	})
	return results, state
}

// Rebalance checks for sustained utilization imbalance, reassigns
// pending sub-units on every active plan when one is found, and
// returns the resulting system state.
func (o *Orchestrator) Rebalance() *models.SystemState {
	if im := o.monitor.IdentifyImbalance(); im.Detected() {
		o.rebalanceActivePlans(im)
	}
	return o.SystemState()
}

// rebalanceActivePlans applies the rebalancer to every registered
// plan, persisting and announcing the plans it changed.
func (o *Orchestrator) rebalanceActivePlans(im *monitor.Imbalance) []models.OptimizationResult {
	var results []models.OptimizationResult

	for taskID := range o.registry.activePlans() {
		unit := o.registry.get(taskID)
		if unit == nil {
			continue
		}
		unit.mu.Lock()
		moved := o.rebalance.Rebalance(unit.plan, unit.task, im)
		unit.mu.Unlock()

		if applied(moved) > 0 {
			o.persistPlan(unit.plan)
			o.emitter.Emit(Event{
				Type:    EventSystemRebalanced,
				TaskID:  taskID,
				PlanID:  unit.plan.ID,
				Plan:    unit.plan,
				Message: fmt.Sprintf("%d sub-units reassigned", applied(moved)),
			})
		}
		results = append(results, moved...)
	}
	return results
}

// strategyFindings flags strategies whose observed success rate has
// dropped below the review threshold. These are advisory: strategy
// selection stays rule-based, the finding tells the operator which
// rule to revisit.
func (o *Orchestrator) strategyFindings() []models.OptimizationResult {
	stats := o.book.snapshot()

	strategies := make([]models.Strategy, 0, len(stats))
	for s := range stats {
		strategies = append(strategies, s)
	}
	sort.Slice(strategies, func(i, j int) bool { return strategies[i] < strategies[j] })

	var out []models.OptimizationResult
	for _, s := range strategies {
		st := stats[s]
		if st.Succeeded+st.Failed == 0 {
			continue
		}
		if rate := st.SuccessRate(); rate < lowStrategyRate {
			out = append(out, models.OptimizationResult{
				Target:  string(s),
				Action:  "review strategy selection rule",
				Reason:  fmt.Sprintf("success rate %.2f over %d finished plans", rate, st.Succeeded+st.Failed),
				Applied: false,
			})
		}
	}
	return out
}
