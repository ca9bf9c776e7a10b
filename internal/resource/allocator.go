// Package resource computes per-specialist capacity budgets for
// orchestration plans.
package resource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// CapacityError indicates the sum of guaranteed minimums would exceed
// total capacity. Allocations are never silently truncated.
type CapacityError struct {
	// PlanID is the plan whose allocation was rejected.
	PlanID string
	// Requested is the sum of guaranteed minimums requested.
	Requested int
	// Capacity is the total capacity available.
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("plan %s: guaranteed minimums %d exceed total capacity %d", e.PlanID, e.Requested, e.Capacity)
}

// Allocator computes resource allocations against a fixed slot budget.
// Slots reserved by active plans are tracked so concurrent plans share
// the same capacity pool.
type Allocator struct {
	// totalSlots is the process-wide execution slot budget.
	totalSlots int
	// reservedFraction is the share of slack held back for failover.
	reservedFraction float64
	// committed maps plan id to the guaranteed slots it holds.
	committed map[string]int
	// mu protects committed.
	mu sync.Mutex
}

// NewAllocator creates an Allocator with the given total slot budget
// and failover reservation fraction.
func NewAllocator(totalSlots int, reservedFraction float64) *Allocator {
	if reservedFraction < 0 {
		reservedFraction = 0
	}
	if reservedFraction > 1 {
		reservedFraction = 1
	}
	return &Allocator{
		totalSlots:       totalSlots,
		reservedFraction: reservedFraction,
		committed:        make(map[string]int),
	}
}

// Allocate computes the allocation for a plan's assignment map. The
// base share per specialist is proportional to its assigned sub-unit
// count, capped by the specialist's maximum concurrency (every
// non-empty assignment is guaranteed at least one slot). Unused
// capacity is split into a burstable shared pool and a reserved
// failover pool. Returns a CapacityError when the guaranteed minimums
// do not fit in the capacity still free; nothing is committed on error.
func (a *Allocator) Allocate(planID string, assignments map[models.SpecialistType][]string, dir Profiler) (*models.ResourceAllocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	free := a.totalSlots - a.committedLocked()

	totalUnits := 0
	for _, ids := range assignments {
		totalUnits += len(ids)
	}
	if totalUnits == 0 {
		return nil, fmt.Errorf("plan %s: no sub-units to allocate", planID)
	}

	// Deterministic iteration keeps allocations reproducible.
	types := make([]models.SpecialistType, 0, len(assignments))
	for st := range assignments {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	shares := make(map[models.SpecialistType]models.SpecialistShare, len(assignments))
	guaranteed := 0
	for _, st := range types {
		ids := assignments[st]
		if len(ids) == 0 {
			continue
		}

		base := len(ids) * free / totalUnits
		if base < 1 {
			base = 1
		}
		if p := dir.Profile(st); p != nil && p.MaxConcurrency > 0 && base > p.MaxConcurrency {
			base = p.MaxConcurrency
		}

		shares[st] = models.SpecialistShare{
			Type:       st,
			Guaranteed: base,
			Cap:        base,
		}
		guaranteed += base
	}

	if guaranteed > free {
		return nil, &CapacityError{PlanID: planID, Requested: guaranteed, Capacity: free}
	}

	slack := free - guaranteed
	reserved := int(float64(slack) * a.reservedFraction)
	burst := slack - reserved

	// Burst raises each share's cap up to its concurrency limit.
	for st, s := range shares {
		s.Cap = s.Guaranteed + burst
		if p := dir.Profile(st); p != nil && p.MaxConcurrency > 0 && s.Cap > p.MaxConcurrency {
			s.Cap = p.MaxConcurrency
		}
		shares[st] = s
	}

	a.committed[planID] = guaranteed

	return &models.ResourceAllocation{
		PlanID:        planID,
		TotalCapacity: a.totalSlots,
		Shares:        shares,
		BurstPool:     burst,
		ReservedPool:  reserved,
	}, nil
}

// Release frees the slots committed to a plan. Releasing an unknown or
// already-released plan is a no-op, so cancellation stays idempotent.
func (a *Allocator) Release(planID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.committed, planID)
}

// Committed returns the guaranteed slots currently held across plans.
func (a *Allocator) Committed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.committedLocked()
}

// committedLocked sums committed slots. Caller must hold a.mu.
func (a *Allocator) committedLocked() int {
	total := 0
	for _, n := range a.committed {
		total += n
	}
	return total
}

// Profiler supplies specialist profiles for concurrency caps. The
// directory satisfies this.
type Profiler interface {
	Profile(st models.SpecialistType) *models.SpecialistProfile
}
