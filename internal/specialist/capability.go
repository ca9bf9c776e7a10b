// Package specialist defines the execution surface for specialist
// backends and the retry/timeout policy around them.
package specialist

import (
	"context"

	"github.com/ShayCichocki/hivemind/internal/quality"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Input carries everything a specialist needs to execute one sub-unit.
type Input struct {
	// Task is the composite task the sub-unit belongs to.
	Task *models.CompositeTask
	// SubUnit is the unit of work to execute.
	SubUnit *models.SubUnit
	// Type is the specialist type the work was assigned to.
	Type models.SpecialistType
	// Context carries prior outputs keyed by sub-unit id, for
	// sub-units that build on earlier phases.
	Context map[string]string
}

// Capability executes sub-units. Implementations must honor context
// cancellation and report per-criterion quality scores on the result.
type Capability interface {
	// Execute runs one sub-unit to completion or error.
	Execute(ctx context.Context, in *Input) (*quality.Result, error)
	// Cleanup releases any resources held by the capability.
	Cleanup() error
}

// Scripted is a canned capability returning fixed outputs and scores.
// Used in tests and dry runs where no API backend is configured.
type Scripted struct {
	// Output is returned verbatim for every sub-unit.
	Output string
	// Scores are the quality scores attached to every result.
	Scores map[string]float64
	// Err, when set, is returned instead of a result.
	Err error
}

// Execute returns the scripted result, or the scripted error.
func (s *Scripted) Execute(ctx context.Context, in *Input) (*quality.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}

	scores := make(map[string]float64, len(s.Scores))
	for k, v := range s.Scores {
		scores[k] = v
	}
	return &quality.Result{
		SubUnitID: in.SubUnit.ID,
		Output:    s.Output,
		Scores:    scores,
	}, nil
}

// Cleanup is a no-op for scripted capabilities.
func (s *Scripted) Cleanup() error { return nil }
