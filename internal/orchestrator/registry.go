package orchestrator

import (
	"sync"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// taskUnit is the per-task coordination unit: one lock per active
// task, so operations on different tasks never contend.
type taskUnit struct {
	mu      sync.Mutex
	task    *models.CompositeTask
	plan    *models.OrchestrationPlan
	rework  *quality.ReworkTracker
	gates   *quality.Engine
	outputs map[string]string
}

// registry tracks active plans keyed by task id. The registry mutex
// guards the map only; per-task state is guarded by each unit's own
// lock.
type registry struct {
	units map[string]*taskUnit
	mu    sync.RWMutex
}

func newRegistry() *registry {
	return &registry{units: make(map[string]*taskUnit)}
}

// add registers a task unit. Returns false when the task already has
// an active plan.
func (r *registry) add(taskID string, unit *taskUnit) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.units[taskID]; exists {
		return false
	}
	r.units[taskID] = unit
	return true
}

// get looks up the unit for a task, or nil.
func (r *registry) get(taskID string) *taskUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.units[taskID]
}

// remove drops a task unit. Idempotent.
func (r *registry) remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.units, taskID)
}

// activePlans snapshots the current task-to-plan table.
func (r *registry) activePlans() map[string]*models.OrchestrationPlan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*models.OrchestrationPlan, len(r.units))
	for id, unit := range r.units {
		out[id] = unit.plan
	}
	return out
}
