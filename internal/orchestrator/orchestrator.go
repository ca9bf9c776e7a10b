package orchestrator

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/hivemind/internal/config"
	"github.com/ShayCichocki/hivemind/internal/conflict"
	"github.com/ShayCichocki/hivemind/internal/consensus"
	"github.com/ShayCichocki/hivemind/internal/directory"
	"github.com/ShayCichocki/hivemind/internal/monitor"
	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/internal/resource"
	"github.com/ShayCichocki/hivemind/internal/specialist"
	"github.com/ShayCichocki/hivemind/internal/state"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// defaultPhaseBudget is the soft deadline per timeline phase.
const defaultPhaseBudget = 10 * time.Minute

// Orchestrator is the central coordinator. It plans composite tasks,
// assigns specialists, executes sub-units through quality gates, and
// runs consensus and conflict resolution on their behalf.
type Orchestrator struct {
	cfg *config.Config

	dir       *directory.Directory
	allocator *resource.Allocator
	consensus *consensus.Coordinator
	resolver  *conflict.Resolver
	conflicts *conflict.Log
	monitor   *monitor.Monitor
	rebalance *monitor.Rebalancer

	capability specialist.Capability
	runner     *specialist.Runner

	registry *registry
	book     *strategyBook
	emitter  *EventEmitter

	// db is optional; a nil db disables persistence.
	db *state.DB
}

// Options configures optional orchestrator collaborators.
type Options struct {
	// Capability executes sub-units. Required for Execute; Orchestrate
	// and Coordinate work without it.
	Capability specialist.Capability
	// DB enables plan history, proposal and conflict persistence.
	DB *state.DB
	// EventBuffer sizes the event channel. Defaults to 64.
	EventBuffer int
}

// New creates an Orchestrator wired from configuration.
func New(cfg *config.Config, dir *directory.Directory, opts Options) *Orchestrator {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}

	conflicts := conflict.NewLog()

	o := &Orchestrator{
		cfg:        cfg,
		dir:        dir,
		allocator:  resource.NewAllocator(cfg.Capacity.TotalSlots, cfg.Capacity.ReservedFraction),
		consensus:  consensus.NewCoordinator(),
		conflicts:  conflicts,
		resolver:   conflict.NewResolver(cfg.Conflict.ConfidenceEpsilon, cfg.Conflict.OrchestratorAuthority, conflicts),
		monitor:    monitor.New(cfg.Monitor.WindowSize, cfg.Monitor.ConsecutiveSnapshots, cfg.Monitor.TargetUtilization, cfg.Monitor.Hysteresis),
		capability: opts.Capability,
		runner:     specialist.NewRunner(cfg.Specialists.ExecutionTimeout, cfg.Specialists.MaxRetries),
		registry:   newRegistry(),
		book:       newStrategyBook(),
		emitter:    NewEventEmitter(opts.EventBuffer),
		db:         opts.DB,
	}
	o.rebalance = monitor.NewRebalancer(cfg.Monitor.MaxRebalanceFraction, dir)

	o.consensus.OnTerminal(func(p *models.ConsensusProposal) {
		if o.db != nil {
			if err := o.db.SaveProposal(p); err != nil {
				log.Printf("[orchestrator] persist proposal %s: %v", p.ID, err)
			}
		}
	})

	return o
}

// Events returns the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Directory returns the specialist directory.
func (o *Orchestrator) Directory() *directory.Directory {
	return o.dir
}

// Consensus returns the consensus coordinator.
func (o *Orchestrator) Consensus() *consensus.Coordinator {
	return o.consensus
}

// Conflicts returns the append-only conflict log.
func (o *Orchestrator) Conflicts() *conflict.Log {
	return o.conflicts
}

// Orchestrate plans a composite task: validate, select strategy,
// assign specialists, allocate capacity, attach gates and timeline.
// All-or-nothing: any stage failure leaves no plan, no allocation and
// no registry entry behind.
func (o *Orchestrator) Orchestrate(task *models.CompositeTask) (*models.OrchestrationPlan, error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}

	if existing := o.registry.get(task.ID); existing != nil {
		return nil, &ValidationError{TaskID: task.ID, Field: "id", Reason: "task already has an active plan"}
	}

	strategy := SelectStrategy(task)

	assignments, err := assignSpecialists(task, o.dir)
	if err != nil {
		return nil, &OrchestrationError{TaskID: task.ID, Stage: "assignment", Err: err}
	}

	planID := uuid.New().String()[:8]
	allocation, err := o.allocator.Allocate(planID, assignments, o.dir)
	if err != nil {
		return nil, &OrchestrationError{TaskID: task.ID, Stage: "allocation", Err: err}
	}

	reviewers := reviewerTypes(assignments)
	gates := quality.DefaultGates(o.cfg.Quality.DefaultThreshold, reviewers)

	plan := &models.OrchestrationPlan{
		ID:            planID,
		TaskID:        task.ID,
		Strategy:      strategy,
		Assignments:   assignments,
		Allocation:    allocation,
		Gates:         gates,
		Timeline:      buildTimeline(task, strategy, defaultPhaseBudget),
		Contingencies: buildContingencies(assignments),
		Status:        models.PlanActive,
		CreatedAt:     time.Now(),
	}

	unit := &taskUnit{
		task:    task,
		plan:    plan,
		rework:  quality.NewReworkTracker(o.cfg.Quality.MaxReworkCycles),
		gates:   quality.NewEngine(gates),
		outputs: make(map[string]string),
	}
	if !o.registry.add(task.ID, unit) {
		o.allocator.Release(planID)
		return nil, &ValidationError{TaskID: task.ID, Field: "id", Reason: "task already has an active plan"}
	}

	task.Status = models.TaskStatusPlanned
	o.book.chosen(strategy)
	o.persistPlan(plan)

	log.Printf("[orchestrator] planned task %s: strategy=%s specialists=%d sub-units=%d",
		task.ID, strategy, len(assignments), plan.SubUnitCount())

	o.emitter.Emit(Event{
		Type:     EventAgentsOrchestrated,
		TaskID:   task.ID,
		PlanID:   planID,
		Strategy: strategy,
		Plan:     plan,
		Message:  "plan created",
	})

	return plan, nil
}

// Cancel terminates a task's plan and releases its capacity. Cancelling
// an unknown or already-cancelled task is a no-op, so callers may
// retry freely.
func (o *Orchestrator) Cancel(taskID string) {
	unit := o.registry.get(taskID)
	if unit == nil {
		return
	}

	unit.mu.Lock()
	unit.plan.Status = models.PlanTerminated
	unit.task.Status = models.TaskStatusTerminated
	plan := unit.plan
	unit.mu.Unlock()

	o.allocator.Release(plan.ID)
	o.registry.remove(taskID)
	o.persistPlan(plan)

	log.Printf("[orchestrator] cancelled task %s (plan %s)", taskID, plan.ID)
}

// Plan returns the active plan for a task, or nil.
func (o *Orchestrator) Plan(taskID string) *models.OrchestrationPlan {
	unit := o.registry.get(taskID)
	if unit == nil {
		return nil
	}

	unit.mu.Lock()
	defer unit.mu.Unlock()
	return unit.plan
}

// SystemState assembles the aggregate view for status reporting.
func (o *Orchestrator) SystemState() *models.SystemState {
	snaps := o.monitor.Snapshots()
	window := make([]models.PerformanceSnapshot, len(snaps))
	for i, s := range snaps {
		window[i] = *s
	}

	return &models.SystemState{
		ActivePlans:   o.registry.activePlans(),
		StrategyStats: o.book.snapshot(),
		Window:        window,
		UpdatedAt:     time.Now(),
	}
}

// Close shuts down the event stream.
func (o *Orchestrator) Close() {
	o.emitter.Close()
}

// persistPlan appends a plan revision when persistence is enabled.
func (o *Orchestrator) persistPlan(plan *models.OrchestrationPlan) {
	if o.db == nil {
		return
	}
	if err := o.db.SavePlan(plan); err != nil {
		log.Printf("[orchestrator] persist plan %s: %v", plan.ID, err)
	}
}

// validateTask rejects malformed tasks before any planning work.
func validateTask(task *models.CompositeTask) error {
	if task == nil {
		return &ValidationError{Field: "task", Reason: "task is nil"}
	}
	if task.ID == "" {
		return &ValidationError{Field: "id", Reason: "task id is required"}
	}
	if task.Description == "" {
		return &ValidationError{TaskID: task.ID, Field: "description", Reason: "description is required"}
	}
	if !task.Priority.Valid() {
		return &ValidationError{TaskID: task.ID, Field: "priority", Reason: string("unknown priority " + task.Priority)}
	}
	if !task.Complexity.Valid() {
		return &ValidationError{TaskID: task.ID, Field: "complexity", Reason: string("unknown complexity " + task.Complexity)}
	}
	if len(task.SubUnits) == 0 {
		return &ValidationError{TaskID: task.ID, Field: "sub_units", Reason: "task has no sub-units"}
	}

	seen := make(map[string]bool, len(task.SubUnits))
	for _, su := range task.SubUnits {
		if su.ID == "" {
			return &ValidationError{TaskID: task.ID, Field: "sub_units", Reason: "sub-unit id is required"}
		}
		if seen[su.ID] {
			return &ValidationError{TaskID: task.ID, Field: "sub_units", Reason: "duplicate sub-unit id " + su.ID}
		}
		seen[su.ID] = true
		if !su.Competency.Valid() {
			return &ValidationError{TaskID: task.ID, Field: "sub_units", Reason: "sub-unit " + su.ID + " has unknown competency"}
		}
	}
	return nil
}

// reviewerTypes returns the specialist types holding assignments, in
// deterministic order, for use as gate reviewers.
func reviewerTypes(assignments map[models.SpecialistType][]string) []models.SpecialistType {
	var out []models.SpecialistType
	for _, st := range models.AllSpecialistTypes() {
		if len(assignments[st]) > 0 {
			out = append(out, st)
		}
	}
	return out
}
