// -----------------------------------------------------------------------
// Run - Durable batch run record and state machine fields
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// RunStatus represents the state of a batch run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCanceled  RunStatus = "canceled"
	RunStatusFailed    RunStatus = "failed"
)

// RunKind selects the enrichment capability applied per lead
type RunKind string

const (
	// RunKindDiscovery qualifies leads via the AI enricher and pauses for
	// human review before finalizing.
	RunKindDiscovery RunKind = "discovery"
	// RunKindVerification verifies lead links batch by batch; re-invoked
	// continuously by the scheduler with a page budget.
	RunKindVerification RunKind = "verification"
)

// SortOrder determines the traversal direction over the lead collection
type SortOrder string

const (
	SortNewestFirst SortOrder = "newest_first"
	SortOldestFirst SortOrder = "oldest_first"
)

// Cursor marks traversal progress as a compound key. SortKey is the lead
// creation timestamp (not unique); TiebreakID is the lead ID, which breaks
// ties in a fixed lexicographic order. A nil cursor means "not yet started".
type Cursor struct {
	SortKey    time.Time `json:"sort_key"`
	TiebreakID string    `json:"tiebreak_id"`
}

// RunCounters accumulate per-lead outcomes across the whole run.
// Counters only increase while the run is in progress.
type RunCounters struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Add merges batch-level counts into the run totals
func (c *RunCounters) Add(other RunCounters) {
	c.Processed += other.Processed
	c.Succeeded += other.Succeeded
	c.Skipped += other.Skipped
	c.Failed += other.Failed
}

// Run is the durable record for one batch traversal of the lead collection.
//
// Field ownership: the orchestrator is the sole writer of status, cursor,
// counters, CurrentTask and the terminal timestamps. External callers write
// only CancelRequested (via RunStorage.RequestCancel), which the orchestrator
// polls cooperatively between pages. This split avoids write-write races
// without locking.
type Run struct {
	ID     string    `json:"id"`
	Kind   RunKind   `json:"kind"`
	Status RunStatus `json:"status"`

	// Traversal parameters, fixed at creation
	BatchSize int       `json:"batch_size"`
	Order     SortOrder `json:"order"`

	// MaxBatches bounds a single orchestrator invocation's page count.
	// When the budget is hit the run exits in its current status without
	// error and is resumable exactly like an interrupted run. 0 = unlimited.
	MaxBatches int `json:"max_batches"`

	// ReviewRequired makes the run pause for human disposition after the
	// traversal completes, before finalizing (discovery runs).
	ReviewRequired bool `json:"review_required"`

	Cursor   *Cursor     `json:"cursor,omitempty"`
	Counters RunCounters `json:"counters"`

	// CurrentTask is a display-only progress string, overwritten freely.
	// Never used for control flow.
	CurrentTask string `json:"current_task,omitempty"`

	// CancelRequested is the cooperative cancellation flag, distinct from
	// RunStatusCanceled which is the orchestrator's own terminal marker.
	CancelRequested bool `json:"cancel_requested"`

	StartedBy string `json:"started_by,omitempty"`

	// Error contains a concise description of why the run failed.
	// Only populated when status is 'failed'.
	Error string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate validates run parameters at creation time
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.Kind != RunKindDiscovery && r.Kind != RunKindVerification {
		return fmt.Errorf("invalid run kind: %s", r.Kind)
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if r.Order != SortNewestFirst && r.Order != SortOldestFirst {
		return fmt.Errorf("invalid sort order: %s", r.Order)
	}
	if r.MaxBatches < 0 {
		return fmt.Errorf("max batches cannot be negative")
	}
	return nil
}

// MarkRunning marks the run as started
func (r *Run) MarkRunning() {
	r.Status = RunStatusRunning
	if r.StartedAt == nil {
		now := time.Now()
		r.StartedAt = &now
	}
	r.UpdatedAt = time.Now()
}

// MarkPaused marks the run as awaiting the resume signal
func (r *Run) MarkPaused() {
	r.Status = RunStatusPaused
	r.UpdatedAt = time.Now()
}

// MarkCompleted marks the run as completed
func (r *Run) MarkCompleted() {
	r.Status = RunStatusCompleted
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkCanceled marks the run as canceled
func (r *Run) MarkCanceled() {
	r.Status = RunStatusCanceled
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the run as failed with an error message
func (r *Run) MarkFailed(errorMsg string) {
	r.Status = RunStatusFailed
	r.Error = errorMsg
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// IsTerminal returns true if the run is in a terminal state.
// Deletion is only permitted for terminal runs. Note that failed runs are
// terminal but still resumable: a fresh invocation continues from the
// stored cursor.
func (r *Run) IsTerminal() bool {
	return r.Status == RunStatusCompleted ||
		r.Status == RunStatusCanceled ||
		r.Status == RunStatusFailed
}

// IsResumable reports whether a new orchestrator invocation may re-enter
// this run from its stored cursor. Running is included so a budget-exited
// invocation can be re-entered by the scheduler.
func (r *Run) IsResumable() bool {
	return r.Status == RunStatusPending ||
		r.Status == RunStatusRunning ||
		r.Status == RunStatusPaused ||
		r.Status == RunStatusFailed
}
