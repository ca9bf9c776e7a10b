package monitor

import (
	"fmt"
	"log"
	"sort"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Profiler exposes specialist profiles to the rebalancer. Satisfied by
// the specialist directory.
type Profiler interface {
	Profile(st models.SpecialistType) *models.SpecialistProfile
}

// Rebalancer moves pending sub-units off overloaded specialist types.
// Sub-units that have started executing are never reassigned, and no
// single pass moves more than the configured fraction of a plan's
// sub-units.
type Rebalancer struct {
	// maxFraction caps the share of a plan's sub-units moved per pass.
	maxFraction float64
	dir         Profiler
}

// NewRebalancer creates a Rebalancer with the given per-pass fraction
// cap.
func NewRebalancer(maxFraction float64, dir Profiler) *Rebalancer {
	return &Rebalancer{maxFraction: maxFraction, dir: dir}
}

// Rebalance reassigns pending sub-units of the plan from overloaded to
// underloaded types, updating the plan's assignment table in place.
// Every move requires the receiving type to hold nonzero competency
// for the sub-unit. Returns one OptimizationResult per considered
// move, applied or not.
func (r *Rebalancer) Rebalance(plan *models.OrchestrationPlan, task *models.CompositeTask, im *Imbalance) []models.OptimizationResult {
	if !im.Detected() || len(im.Overloaded) == 0 || len(im.Underloaded) == 0 {
		return nil
	}

	budget := int(r.maxFraction * float64(plan.SubUnitCount()))
	if budget == 0 {
		return nil
	}

	var results []models.OptimizationResult
	moved := 0

	for _, from := range im.Overloaded {
		if moved >= budget {
			break
		}
		ids := append([]string(nil), plan.Assignments[from]...)
		sort.Strings(ids)

		for _, id := range ids {
			if moved >= budget {
				break
			}
			su := task.SubUnit(id)
			if su == nil || su.Status != models.SubUnitPending {
				continue
			}

			to, ok := r.receiver(im.Underloaded, su)
			if !ok {
				results = append(results, models.OptimizationResult{
					Target:  string(from),
					Action:  "reassign " + id,
					Reason:  "no underloaded type holds the required competency",
					Applied: false,
				})
				continue
			}

			plan.Assignments[from] = remove(plan.Assignments[from], id)
			plan.Assignments[to] = append(plan.Assignments[to], id)
			moved++

			results = append(results, models.OptimizationResult{
				Target:  string(from),
				Action:  fmt.Sprintf("reassign %s to %s", id, to),
				Reason:  "sustained utilization above target band",
				Applied: true,
			})
		}
	}

	if moved > 0 {
		log.Printf("[monitor] rebalanced plan %s: moved %d/%d sub-units", plan.ID, moved, budget)
	}
	return results
}

// receiver picks the first underloaded type, in identifier order,
// competent for the sub-unit.
func (r *Rebalancer) receiver(under []models.SpecialistType, su *models.SubUnit) (models.SpecialistType, bool) {
	sorted := append([]models.SpecialistType(nil), under...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, st := range sorted {
		profile := r.dir.Profile(st)
		if profile == nil {
			continue
		}
		if profile.Competencies[su.Competency] > 0 {
			return st, true
		}
	}
	return "", false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
