package orchestrator

import (
	"sync"
	"time"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// SelectStrategy picks the coordination strategy for a task. The rules
// are evaluated in order and the first match wins, so identical task
// attributes always produce the same strategy:
//
//  1. critical priority with more than 3 coordination requirements
//     -> HIERARCHICAL: everything routes through the orchestrator.
//  2. critical complexity with more than 5 upstream dependencies
//     -> COLLABORATIVE: specialists work in tight feedback loops.
//  3. no dependencies and more than one sub-unit
//     -> SIMULTANEOUS: sub-units run fully in parallel.
//  4. otherwise
//     -> ADAPTIVE: start sequential, widen as performance allows.
func SelectStrategy(task *models.CompositeTask) models.Strategy {
	switch {
	case task.Priority == models.PriorityCritical && len(task.CoordinationRequirements) > 3:
		return models.StrategyHierarchical
	case task.Complexity == models.ComplexityCritical && len(task.Dependencies) > 5:
		return models.StrategyCollaborative
	case len(task.Dependencies) == 0 && len(task.SubUnits) > 1:
		return models.StrategySimultaneous
	default:
		return models.StrategyAdaptive
	}
}

// strategyBook accumulates per-strategy outcomes so optimization
// passes can report which strategies are earning their keep.
type strategyBook struct {
	stats map[models.Strategy]models.StrategyStats
	mu    sync.Mutex
}

func newStrategyBook() *strategyBook {
	return &strategyBook{stats: make(map[models.Strategy]models.StrategyStats)}
}

func (b *strategyBook) chosen(s models.Strategy) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stats[s]
	st.Chosen++
	b.stats[s] = st
}

func (b *strategyBook) finished(s models.Strategy, succeeded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.stats[s]
	if succeeded {
		st.Succeeded++
	} else {
		st.Failed++
	}
	b.stats[s] = st
}

func (b *strategyBook) snapshot() map[models.Strategy]models.StrategyStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[models.Strategy]models.StrategyStats, len(b.stats))
	for s, st := range b.stats {
		out[s] = st
	}
	return out
}

// buildTimeline lays the plan's sub-units into ordered phases
// according to the strategy. SIMULTANEOUS gets one wide phase;
// HIERARCHICAL and ADAPTIVE get one phase per sub-unit; COLLABORATIVE
// pairs sub-units into overlapping phases.
func buildTimeline(task *models.CompositeTask, strategy models.Strategy, phaseBudget time.Duration) []models.TimelinePhase {
	now := time.Now()

	ids := make([]string, 0, len(task.SubUnits))
	for _, su := range task.SubUnits {
		ids = append(ids, su.ID)
	}

	switch strategy {
	case models.StrategySimultaneous:
		return []models.TimelinePhase{{
			Name:       "parallel",
			SubUnitIDs: ids,
			Deadline:   now.Add(phaseBudget),
		}}
	case models.StrategyCollaborative:
		var phases []models.TimelinePhase
		for i := 0; i < len(ids); i += 2 {
			end := i + 2
			if end > len(ids) {
				end = len(ids)
			}
			phases = append(phases, models.TimelinePhase{
				Name:       "pair-" + ids[i],
				SubUnitIDs: ids[i:end],
				Deadline:   now.Add(time.Duration(len(phases)+1) * phaseBudget),
			})
		}
		return phases
	default:
		phases := make([]models.TimelinePhase, 0, len(ids))
		for i, id := range ids {
			phases = append(phases, models.TimelinePhase{
				Name:       "phase-" + id,
				SubUnitIDs: []string{id},
				Deadline:   now.Add(time.Duration(i+1) * phaseBudget),
			})
		}
		return phases
	}
}

// buildContingencies prepares fallbacks for the failure modes every
// plan anticipates: specialist timeout, gate exhaustion and capacity
// shortage.
func buildContingencies(assignments map[models.SpecialistType][]string) []models.Contingency {
	out := []models.Contingency{
		{Trigger: "specialist_timeout", Action: "retry"},
		{Trigger: "gate_exhausted", Action: "escalate"},
		{Trigger: "capacity_shortage", Action: "queue"},
	}

	// Reassignment fallback only when more than one type holds work.
	if len(assignments) > 1 {
		out = append(out, models.Contingency{
			Trigger: "specialist_unavailable",
			Action:  "reassign",
		})
	}
	return out
}
