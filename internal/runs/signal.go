package runs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// SignalRegistry delivers resume signals to paused runs. At most one
// outstanding wait exists per run; delivering a signal to a run that is not
// waiting, or delivering twice, is a safe no-op. Delivery is at-least-once
// from the caller's perspective.
type SignalRegistry struct {
	mu      sync.Mutex
	waiters map[string]chan struct{}
	logger  arbor.ILogger
}

// NewSignalRegistry creates a signal registry
func NewSignalRegistry(logger arbor.ILogger) *SignalRegistry {
	return &SignalRegistry{
		waiters: make(map[string]chan struct{}),
		logger:  logger,
	}
}

// Wait blocks until a resume signal is delivered for runID or the context
// is canceled. Only one waiter may be registered per run at a time.
func (r *SignalRegistry) Wait(ctx context.Context, runID string) error {
	r.mu.Lock()
	if _, exists := r.waiters[runID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("run %s is already waiting for a signal", runID)
	}
	ch := make(chan struct{}, 1)
	r.waiters[runID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.waiters, runID)
		r.mu.Unlock()
	}()

	r.logger.Debug().Str("run_id", runID).Msg("Waiting for resume signal")

	select {
	case <-ch:
		r.logger.Debug().Str("run_id", runID).Msg("Resume signal received")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver sends a resume signal to runID's waiter. Returns true if a waiter
// was unblocked. No waiter, or a duplicate delivery that finds the buffer
// already full, is a no-op.
func (r *SignalRegistry) Deliver(runID string) bool {
	r.mu.Lock()
	ch, exists := r.waiters[runID]
	r.mu.Unlock()

	if !exists {
		r.logger.Debug().Str("run_id", runID).Msg("Resume signal delivered with no waiter - ignoring")
		return false
	}

	select {
	case ch <- struct{}{}:
		return true
	default:
		// Buffer full: a signal is already pending for this waiter
		return false
	}
}

// Waiting reports whether a run currently has a registered waiter
func (r *SignalRegistry) Waiting(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.waiters[runID]
	return exists
}
