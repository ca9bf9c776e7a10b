package orchestrator

import (
	"fmt"
	"log"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// SignalType classifies coordination signals.
type SignalType string

const (
	// SignalSync requests a synchronization checkpoint report.
	SignalSync SignalType = "sync"
	// SignalConflict reports a conflict between specialists.
	SignalConflict SignalType = "conflict"
	// SignalQualityGate requests a gate evaluation of a result.
	SignalQualityGate SignalType = "quality_gate"
	// SignalResourceShortage reports capacity pressure.
	SignalResourceShortage SignalType = "resource_shortage"
	// SignalProgress reports execution progress.
	SignalProgress SignalType = "progress"
	// SignalDecision requests a consensus decision.
	SignalDecision SignalType = "decision"
)

// Signal is one coordination request routed through the orchestrator.
type Signal struct {
	// Type selects the handling path.
	Type SignalType
	// Issue describes what the signal is about.
	Issue string
	// Claims carry conflicting positions, for conflict signals.
	Claims []models.Claim
	// Participants are the voters, for decision signals.
	Participants []string
	// Result is the work product to evaluate, for quality gate signals.
	Result *quality.Result
}

// Outcome is the orchestrator's response to a coordination signal.
type Outcome struct {
	// Message is a human-readable summary.
	Message string
	// Record is set for resolved conflicts.
	Record *models.ConflictRecord
	// Proposal is set for opened decisions.
	Proposal *models.ConsensusProposal
	// Evaluation is set for quality gate checks.
	Evaluation *quality.Evaluation
	// Optimizations are set for resource shortage handling.
	Optimizations []models.OptimizationResult
}

// Coordinate dispatches a coordination signal for an active task.
// Unknown tasks yield a CoordinationError; unknown signal types are
// rejected outright.
func (o *Orchestrator) Coordinate(taskID string, sig *Signal) (*Outcome, error) {
	unit := o.registry.get(taskID)
	if unit == nil {
		return nil, &CoordinationError{TaskID: taskID}
	}

	var (
		outcome *Outcome
		err     error
	)

	switch sig.Type {
	case SignalSync, SignalProgress:
		outcome = o.progressReport(unit)
	case SignalConflict:
		outcome, err = o.handleConflict(taskID, sig)
	case SignalQualityGate:
		outcome, err = o.handleQualityGate(unit, sig)
	case SignalResourceShortage:
		outcome = o.handleShortage(unit)
	case SignalDecision:
		outcome, err = o.handleDecision(taskID, sig)
	default:
		return nil, fmt.Errorf("coordinate task %s: unknown signal type %q", taskID, sig.Type)
	}
	if err != nil {
		return outcome, err
	}

	o.emitter.Emit(Event{
		Type:    EventTaskCoordinated,
		TaskID:  taskID,
		PlanID:  unit.plan.ID,
		Message: string(sig.Type),
	})
	return outcome, nil
}

// progressReport counts sub-unit states under the unit lock.
func (o *Orchestrator) progressReport(unit *taskUnit) *Outcome {
	unit.mu.Lock()
	defer unit.mu.Unlock()

	done, executing, failed := 0, 0, 0
	for _, su := range unit.task.SubUnits {
		switch su.Status {
		case models.SubUnitDone:
			done++
		case models.SubUnitExecuting:
			executing++
		case models.SubUnitFailed:
			failed++
		}
	}

	return &Outcome{Message: fmt.Sprintf("%d/%d done, %d executing, %d failed",
		done, len(unit.task.SubUnits), executing, failed)}
}

// handleConflict resolves claims through the resolver. Escalations
// surface the Unresolved error; resolved outcomes emit an event and
// persist the record either way.
func (o *Orchestrator) handleConflict(taskID string, sig *Signal) (*Outcome, error) {
	record, err := o.resolver.Resolve(taskID, sig.Issue, sig.Claims)
	if record != nil {
		if o.db != nil {
			if dbErr := o.db.SaveConflict(record); dbErr != nil {
				log.Printf("[orchestrator] persist conflict %s: %v", record.ID, dbErr)
			}
		}
		o.emitter.Emit(Event{
			Type:    EventConflictResolved,
			TaskID:  taskID,
			Record:  record,
			Message: string(record.Outcome),
		})
	}
	if err != nil {
		return &Outcome{Record: record}, err
	}
	return &Outcome{Record: record, Message: record.Resolution}, nil
}

// handleQualityGate evaluates a result against the plan's gates.
func (o *Orchestrator) handleQualityGate(unit *taskUnit, sig *Signal) (*Outcome, error) {
	if sig.Result == nil {
		return nil, fmt.Errorf("quality gate signal needs a result")
	}

	unit.mu.Lock()
	eval := unit.gates.Evaluate(sig.Result)
	unit.mu.Unlock()

	if eval.Passed {
		o.emitter.Emit(Event{
			Type:       EventQualityValidated,
			TaskID:     unit.task.ID,
			Evaluation: eval,
			Message:    sig.Result.SubUnitID,
		})
	}
	return &Outcome{Evaluation: eval, Message: fmt.Sprintf("quality %.2f", eval.QualityScore)}, nil
}

// handleShortage runs an imbalance check and rebalances pending work
// if the pressure is sustained.
func (o *Orchestrator) handleShortage(unit *taskUnit) *Outcome {
	im := o.monitor.IdentifyImbalance()
	if !im.Detected() {
		return &Outcome{Message: "no sustained imbalance, holding allocations"}
	}

	unit.mu.Lock()
	results := o.rebalance.Rebalance(unit.plan, unit.task, im)
	unit.mu.Unlock()

	if applied(results) > 0 {
		o.persistPlan(unit.plan)
		o.emitter.Emit(Event{
			Type:    EventSystemRebalanced,
			TaskID:  unit.task.ID,
			PlanID:  unit.plan.ID,
			Plan:    unit.plan,
			Message: fmt.Sprintf("%d sub-units reassigned", applied(results)),
		})
	}
	return &Outcome{Optimizations: results,
		Message: fmt.Sprintf("%d of %d moves applied", applied(results), len(results))}
}

// handleDecision opens a consensus proposal among the participants.
func (o *Orchestrator) handleDecision(taskID string, sig *Signal) (*Outcome, error) {
	proposal, err := o.BuildConsensus(sig.Issue, sig.Participants, "", 0)
	if err != nil {
		return nil, err
	}
	return &Outcome{Proposal: proposal, Message: "proposal " + proposal.ID + " opened"}, nil
}

// BuildConsensus opens a proposal with the configured deadline. A zero
// required fraction falls back to the configured default.
func (o *Orchestrator) BuildConsensus(topic string, participants []string, payload string, required float64) (*models.ConsensusProposal, error) {
	if required == 0 {
		required = o.cfg.Consensus.DefaultRequired
	}

	p, err := o.consensus.Propose(topic, participants, payload,
		required, o.cfg.Consensus.VotingDeadline)
	if err != nil {
		return nil, err
	}
	if o.db != nil {
		if dbErr := o.db.SaveProposal(p); dbErr != nil {
			log.Printf("[orchestrator] persist proposal %s: %v", p.ID, dbErr)
		}
	}

	o.emitter.Emit(Event{
		Type:       EventConsensusInitiated,
		ProposalID: p.ID,
		Proposal:   p,
		Message:    topic,
	})
	return p, nil
}

func applied(results []models.OptimizationResult) int {
	n := 0
	for _, r := range results {
		if r.Applied {
			n++
		}
	}
	return n
}
