// -----------------------------------------------------------------------
// Run Orchestrator - drives a batch run through its state machine
// -----------------------------------------------------------------------

package runs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// Orchestrator ties the paginator, processor, run store, cancellation flag
// and pause signal together. One Execute call is one invocation: it may
// process up to the run's page budget before returning control, so a host
// scheduler can checkpoint and re-invoke. Runs are strictly sequential
// internally; distinct runs may execute concurrently since they share no
// cursor state.
//
// At most one invocation per run may be live at a time. A run left in
// "running" by a budget yield is resumable, but only once its invocation has
// returned; a second Execute while the first is still live would walk the
// same cursor twice and double-process every lead. The active set below
// enforces that.
type Orchestrator struct {
	runStorage interfaces.RunStorage
	paginator  *Paginator
	processor  *Processor
	enrichers  map[models.RunKind]interfaces.Enricher
	signals    *SignalRegistry
	events     interfaces.EventService
	logger     arbor.ILogger

	// batchDelay is a deliberate fixed sleep between pages to throttle the
	// enrichment capability. It is not cancellation-aware: this is the one
	// place a cancel request waits before being observed.
	batchDelay time.Duration

	activeMu sync.Mutex
	active   map[string]struct{}
}

// NewOrchestrator creates a run orchestrator
func NewOrchestrator(
	runStorage interfaces.RunStorage,
	source interfaces.LeadSource,
	signals *SignalRegistry,
	events interfaces.EventService,
	batchDelay time.Duration,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		runStorage: runStorage,
		paginator:  NewPaginator(source),
		processor:  NewProcessor(logger),
		enrichers:  make(map[models.RunKind]interfaces.Enricher),
		signals:    signals,
		events:     events,
		batchDelay: batchDelay,
		logger:     logger,
		active:     make(map[string]struct{}),
	}
}

// beginInvocation claims the run for this invocation. Fails when another
// invocation of the same run is still live.
func (o *Orchestrator) beginInvocation(runID string) error {
	o.activeMu.Lock()
	defer o.activeMu.Unlock()
	if _, live := o.active[runID]; live {
		return fmt.Errorf("run %s already has a live invocation", runID)
	}
	o.active[runID] = struct{}{}
	return nil
}

func (o *Orchestrator) endInvocation(runID string) {
	o.activeMu.Lock()
	delete(o.active, runID)
	o.activeMu.Unlock()
}

// RegisterEnricher registers the enrichment capability for a run kind
func (o *Orchestrator) RegisterEnricher(enricher interfaces.Enricher) {
	o.enrichers[enricher.Kind()] = enricher
	o.logger.Info().
		Str("run_kind", string(enricher.Kind())).
		Msg("Enricher registered")
}

// StartParams are the creation-time parameters of a run
type StartParams struct {
	Kind       models.RunKind
	BatchSize  int
	Order      models.SortOrder
	MaxBatches int
	StartedBy  string
}

// StartRun creates a new run record in pending status. Execution is a
// separate step so callers control whether it runs inline or in the
// background.
func (o *Orchestrator) StartRun(ctx context.Context, params StartParams) (*models.Run, error) {
	if _, ok := o.enrichers[params.Kind]; !ok {
		return nil, fmt.Errorf("no enricher registered for run kind %q", params.Kind)
	}

	now := time.Now()
	run := &models.Run{
		ID:         common.NewRunID(),
		Kind:       params.Kind,
		Status:     models.RunStatusPending,
		BatchSize:  params.BatchSize,
		Order:      params.Order,
		MaxBatches: params.MaxBatches,
		// Discovery runs pause for human disposition before finalizing
		ReviewRequired: params.Kind == models.RunKindDiscovery,
		StartedBy:      params.StartedBy,
		CurrentTask:    "Run created",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := o.runStorage.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("run_id", run.ID).
		Str("run_kind", string(run.Kind)).
		Int("batch_size", run.BatchSize).
		Str("order", string(run.Order)).
		Msg("Run created")

	return run, nil
}

// Execute runs one orchestrator invocation for the given run. Re-entry is
// idempotent on the cursor: resuming a paused or failed run continues from
// the last committed page boundary, never from the beginning. Terminal
// completed/canceled runs are rejected without state mutation, as is an
// Execute while another invocation of the same run is still live.
func (o *Orchestrator) Execute(ctx context.Context, runID string) error {
	if err := o.beginInvocation(runID); err != nil {
		return err
	}
	defer o.endInvocation(runID)

	run, err := o.runStorage.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if !run.IsResumable() {
		return fmt.Errorf("run %s is not resumable from status %s", runID, run.Status)
	}

	enricher, ok := o.enrichers[run.Kind]
	if !ok {
		return o.fail(ctx, run, fmt.Errorf("no enricher registered for run kind %q", run.Kind))
	}

	resumed := run.Cursor != nil
	run.MarkRunning()
	if err := o.runStorage.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	o.publish(interfaces.EventRunStarted, run)

	o.logger.Info().
		Str("run_id", run.ID).
		Str("run_kind", string(run.Kind)).
		Bool("resumed", resumed).
		Msg("Run executing")

	batches := 0
	for {
		// Page budget bounds this invocation, not the run: exit in the
		// current status, resumable like any interrupted run.
		if run.MaxBatches > 0 && batches >= run.MaxBatches {
			o.logger.Info().
				Str("run_id", run.ID).
				Int("batches", batches).
				Msg("Page budget reached, yielding")
			return o.runStorage.UpdateProgress(ctx, run.ID, run.Cursor, models.RunCounters{},
				fmt.Sprintf("Yielded after %d batches (%d leads processed)", batches, run.Counters.Processed))
		}

		// Cancellation check before fetching, to avoid unnecessary work
		canceled, err := o.runStorage.IsCancelRequested(ctx, run.ID)
		if err != nil {
			return o.fail(ctx, run, fmt.Errorf("cancellation check: %w", err))
		}
		if canceled {
			return o.cancel(ctx, run)
		}

		page, next, err := o.paginator.Next(ctx, run.Order, run.Cursor, run.BatchSize)
		if err != nil {
			return o.fail(ctx, run, fmt.Errorf("page fetch: %w", err))
		}
		if len(page) == 0 {
			break // traversal exhausted
		}
		batches++

		result := o.processor.Process(ctx, run, enricher, page)

		run.Cursor = next
		run.Counters.Add(result.Counters)
		task := fmt.Sprintf("Processed %d leads (%d succeeded, %d skipped, %d failed)",
			run.Counters.Processed, run.Counters.Succeeded, run.Counters.Skipped, run.Counters.Failed)

		// One persisted write per page: cursor, counters and task commit
		// together after the page completes.
		if err := o.runStorage.UpdateProgress(ctx, run.ID, next, result.Counters, task); err != nil {
			return o.fail(ctx, run, fmt.Errorf("progress commit: %w", err))
		}
		o.publish(interfaces.EventRunProgress, run)

		// Second check so a cancel during processing stops the run before
		// another page is fetched.
		canceled, err = o.runStorage.IsCancelRequested(ctx, run.ID)
		if err != nil {
			return o.fail(ctx, run, fmt.Errorf("cancellation check: %w", err))
		}
		if canceled {
			return o.cancel(ctx, run)
		}

		time.Sleep(o.batchDelay)
	}

	if run.ReviewRequired {
		if err := o.pauseForReview(ctx, run); err != nil {
			return err
		}
		// Re-read: a cancel may have arrived while paused
		fresh, err := o.runStorage.GetRun(ctx, run.ID)
		if err != nil {
			return err
		}
		if fresh.CancelRequested || fresh.Status == models.RunStatusCanceled {
			return o.cancel(ctx, fresh)
		}
		run = fresh
		o.publish(interfaces.EventRunResumed, run)
	}

	if err := o.runStorage.SetStatus(ctx, run.ID, models.RunStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark run completed: %w", err)
	}
	run.MarkCompleted()
	o.publish(interfaces.EventRunCompleted, run)

	o.logger.Info().
		Str("run_id", run.ID).
		Int("processed", run.Counters.Processed).
		Int("succeeded", run.Counters.Succeeded).
		Int("skipped", run.Counters.Skipped).
		Int("failed", run.Counters.Failed).
		Msg("Run completed")

	return nil
}

// Cancel sets the cooperative cancellation flag and wakes a paused waiter
// so the cancel is observed without a resume round-trip.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	if err := o.runStorage.RequestCancel(ctx, runID); err != nil {
		return err
	}
	o.signals.Deliver(runID)
	return nil
}

// DeliverResumeSignal unblocks a paused run's wait. Duplicate delivery and
// delivery to a run that is not waiting are safe no-ops.
func (o *Orchestrator) DeliverResumeSignal(runID string) bool {
	return o.signals.Deliver(runID)
}

// pauseForReview parks the run in paused status and blocks indefinitely
// until the reviewer signals continue. No timeout is imposed here; the wait
// is not subject to the page budget. A context cancellation (host shutdown)
// leaves the run paused and resumable.
func (o *Orchestrator) pauseForReview(ctx context.Context, run *models.Run) error {
	if err := o.runStorage.SetStatus(ctx, run.ID, models.RunStatusPaused, ""); err != nil {
		return fmt.Errorf("failed to mark run paused: %w", err)
	}
	run.MarkPaused()
	o.publish(interfaces.EventRunPaused, run)

	o.logger.Info().
		Str("run_id", run.ID).
		Msg("Run paused awaiting review signal")

	if err := o.signals.Wait(ctx, run.ID); err != nil {
		return fmt.Errorf("review wait interrupted: %w", err)
	}
	return nil
}

func (o *Orchestrator) cancel(ctx context.Context, run *models.Run) error {
	if err := o.runStorage.SetStatus(ctx, run.ID, models.RunStatusCanceled, ""); err != nil {
		return fmt.Errorf("failed to mark run canceled: %w", err)
	}
	run.MarkCanceled()
	o.publish(interfaces.EventRunCanceled, run)

	o.logger.Info().
		Str("run_id", run.ID).
		Int("processed", run.Counters.Processed).
		Msg("Run canceled")

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, run *models.Run, cause error) error {
	if err := o.runStorage.SetStatus(ctx, run.ID, models.RunStatusFailed, cause.Error()); err != nil {
		o.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist failed status")
	}
	run.MarkFailed(cause.Error())
	o.publish(interfaces.EventRunFailed, run)

	o.logger.Error().
		Err(cause).
		Str("run_id", run.ID).
		Msg("Run failed")

	return cause
}

func (o *Orchestrator) publish(eventType interfaces.EventType, run *models.Run) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(context.Background(), interfaces.Event{
		Type: eventType,
		Payload: map[string]interface{}{
			"run_id":    run.ID,
			"run_kind":  string(run.Kind),
			"status":    string(run.Status),
			"processed": run.Counters.Processed,
			"failed":    run.Counters.Failed,
		},
	})
}
