package quality

import "sync"

// ReworkTracker counts rework cycles per sub-unit and accumulates the
// issues seen across them. A task may only be delivered once every
// mandatory gate passes; when the cycle cap is exhausted the caller
// marks the task failed with the accumulated issues.
type ReworkTracker struct {
	// maxCycles caps rework cycles per sub-unit.
	maxCycles int
	// cycles maps sub-unit id to rework cycles consumed.
	cycles map[string]int
	// issues maps sub-unit id to issues accumulated across cycles.
	issues map[string][]string
	// mu protects cycles and issues.
	mu sync.Mutex
}

// NewReworkTracker creates a tracker with the given cycle cap.
func NewReworkTracker(maxCycles int) *ReworkTracker {
	return &ReworkTracker{
		maxCycles: maxCycles,
		cycles:    make(map[string]int),
		issues:    make(map[string][]string),
	}
}

// Record notes a failed evaluation for a sub-unit and returns true if
// another rework cycle is allowed.
func (r *ReworkTracker) Record(subUnitID string, issues []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cycles[subUnitID]++
	r.issues[subUnitID] = append(r.issues[subUnitID], issues...)
	return r.cycles[subUnitID] <= r.maxCycles
}

// Cycles returns the rework cycles consumed by a sub-unit.
func (r *ReworkTracker) Cycles(subUnitID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles[subUnitID]
}

// Issues returns all issues accumulated for a sub-unit.
func (r *ReworkTracker) Issues(subUnitID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.issues[subUnitID]))
	copy(out, r.issues[subUnitID])
	return out
}

// Reset clears the state for a sub-unit after a successful evaluation.
func (r *ReworkTracker) Reset(subUnitID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cycles, subUnitID)
	delete(r.issues, subUnitID)
}
