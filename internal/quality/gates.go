// Package quality defines and evaluates pass/fail checkpoints on
// specialist results.
package quality

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// GateFailure indicates a mandatory gate failed after exhausting the
// allowed rework cycles. It carries every issue accumulated across
// cycles.
type GateFailure struct {
	// TaskID is the task that failed quality review.
	TaskID string
	// Gate is the gate that could not be passed.
	Gate string
	// Cycles is the number of rework cycles attempted.
	Cycles int
	// Issues are all issues accumulated across the cycles.
	Issues []string
}

func (e *GateFailure) Error() string {
	return fmt.Sprintf("task %s: gate %q failed after %d rework cycles: %s",
		e.TaskID, e.Gate, e.Cycles, strings.Join(e.Issues, "; "))
}

// Result is the unit of work a gate evaluates: a specialist's output
// with its self-reported quality signals.
type Result struct {
	// SubUnitID is the sub-unit the result belongs to.
	SubUnitID string
	// Output is the produced artifact.
	Output string
	// Scores maps quality criteria to scores in [0,1].
	Scores map[string]float64
}

// Evaluation is the outcome of evaluating a result against a gate set.
type Evaluation struct {
	// Passed is true when every mandatory gate passed.
	Passed bool
	// QualityScore is the mean score across evaluated gates, in [0,1].
	QualityScore float64
	// Issues lists each failed gate with its observed score.
	Issues []string
}

// Engine evaluates results against a configured gate set.
type Engine struct {
	gates []models.QualityGate
}

// NewEngine creates an Engine with the given gates.
func NewEngine(gates []models.QualityGate) *Engine {
	return &Engine{gates: gates}
}

// DefaultGates returns the standard gate set applied to plans when no
// custom gates are configured. Correctness and completeness are
// mandatory; style is advisory.
func DefaultGates(threshold float64, reviewers []models.SpecialistType) []models.QualityGate {
	return []models.QualityGate{
		{Name: "correctness", Criterion: "correctness", Threshold: threshold, Reviewers: reviewers, Mandatory: true},
		{Name: "completeness", Criterion: "completeness", Threshold: threshold, Reviewers: reviewers, Mandatory: true},
		{Name: "style", Criterion: "style", Threshold: threshold * 0.8, Reviewers: reviewers, Mandatory: false},
	}
}

// Gates returns the engine's gate set.
func (e *Engine) Gates() []models.QualityGate {
	return e.gates
}

// Evaluate scores a result against every gate. A missing criterion
// score counts as a failure of that gate: specialists must report the
// signals their reviewers check.
func (e *Engine) Evaluate(result *Result) *Evaluation {
	eval := &Evaluation{Passed: true}

	if len(e.gates) == 0 {
		eval.QualityScore = 1
		return eval
	}

	total := 0.0
	for _, gate := range e.gates {
		score, ok := result.Scores[gate.Criterion]
		if !ok {
			if gate.Mandatory {
				eval.Passed = false
				eval.Issues = append(eval.Issues,
					fmt.Sprintf("gate %q: no %s score reported", gate.Name, gate.Criterion))
			}
			continue
		}

		total += score
		if score < gate.Threshold {
			eval.Issues = append(eval.Issues,
				fmt.Sprintf("gate %q: score %.2f below threshold %.2f", gate.Name, score, gate.Threshold))
			if gate.Mandatory {
				eval.Passed = false
			}
		}
	}

	eval.QualityScore = total / float64(len(e.gates))
	if eval.QualityScore > 1 {
		eval.QualityScore = 1
	}
	return eval
}
