package specialist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ShayCichocki/hivemind/internal/quality"
)

// TimeoutError indicates a specialist did not finish a sub-unit within
// its execution timeout, across all retry attempts.
type TimeoutError struct {
	// SubUnitID is the sub-unit that timed out.
	SubUnitID string
	// Timeout is the per-attempt execution timeout.
	Timeout time.Duration
	// Attempts is the number of attempts made.
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("sub-unit %s: specialist timed out after %s (%d attempts)",
		e.SubUnitID, e.Timeout, e.Attempts)
}

// Runner applies the timeout and retry policy around capability
// execution. Each attempt gets a fresh timeout; transient errors are
// retried up to the configured limit.
type Runner struct {
	// timeout is the per-attempt execution timeout.
	timeout time.Duration
	// maxRetries is the number of retries after the first attempt.
	maxRetries int
}

// NewRunner creates a Runner with the given per-attempt timeout and
// retry limit.
func NewRunner(timeout time.Duration, maxRetries int) *Runner {
	return &Runner{timeout: timeout, maxRetries: maxRetries}
}

// Run executes the input through the capability, retrying on failure.
// A canceled parent context aborts immediately without further
// retries.
func (r *Runner) Run(ctx context.Context, cap Capability, in *Input) (*quality.Result, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		result, err := cap.Execute(attemptCtx, in)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			log.Printf("[specialist] sub-unit %s attempt %d timed out after %s",
				in.SubUnit.ID, attempts, r.timeout)
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[specialist] sub-unit %s attempt %d failed: %v", in.SubUnit.ID, attempts, err)
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, &TimeoutError{SubUnitID: in.SubUnit.ID, Timeout: r.timeout, Attempts: attempts}
	}
	return nil, fmt.Errorf("sub-unit %s: specialist failed after %d attempts: %w",
		in.SubUnit.ID, attempts, lastErr)
}
