package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// PauseController manages pause/resume/stop state for execution.
// It provides a thread-safe way to control execution flow.
type PauseController struct {
	// paused indicates whether execution is paused.
	paused bool
	// stopped indicates whether execution has been stopped.
	stopped bool
	// mu protects all fields.
	mu sync.RWMutex
	// cond is used to signal when execution is unpaused or stopped.
	cond *sync.Cond
}

// NewPauseController creates a new PauseController.
func NewPauseController() *PauseController {
	p := &PauseController{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pause pauses execution. New sub-units will not be started.
func (p *PauseController) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.paused = true
		log.Printf("[orchestrator] paused - no new sub-units will be started")
	}
}

// Resume resumes execution after a pause.
func (p *PauseController) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		p.paused = false
		log.Printf("[orchestrator] resumed - sub-unit execution enabled")
		p.cond.Broadcast()
	}
}

// Stop signals a stop. This unblocks any WaitIfPaused calls.
func (p *PauseController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.stopped = true
		p.cond.Broadcast()
	}
}

// Paused reports whether execution is currently paused.
func (p *PauseController) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// WaitIfPaused blocks while paused. Returns an error when stopped or
// when the context is cancelled.
func (p *PauseController) WaitIfPaused(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.paused && !p.stopped {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.cond.Wait()
	}

	if p.stopped {
		return fmt.Errorf("execution stopped")
	}
	return ctx.Err()
}
