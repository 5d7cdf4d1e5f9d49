package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// RunStorage implements the RunStorage interface for Badger.
//
// All writes are read-modify-write of the whole record, serialized by a
// process-local mutex so a cancellation request landing between the
// orchestrator's read and its progress commit is never lost. The
// orchestrator and external callers own disjoint fields (see models.Run).
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RunStorage) CreateRun(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Store().Insert(run.ID, run); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("run already exists: %s", run.ID)
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	var run models.Run
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

func (s *RunStorage) SaveRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Preserve an externally set cancellation flag
	var stored models.Run
	if err := s.db.Store().Get(run.ID, &stored); err == nil && stored.CancelRequested {
		run.CancelRequested = true
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *RunStorage) UpdateProgress(ctx context.Context, runID string, cursor *models.Cursor, delta models.RunCounters, currentTask string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run models.Run
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("run not found: %s", runID)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	run.Cursor = cursor
	run.Counters.Add(delta)
	run.CurrentTask = currentTask
	run.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(runID, &run); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

func (s *RunStorage) SetStatus(ctx context.Context, runID string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run models.Run
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("run not found: %s", runID)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	switch status {
	case models.RunStatusRunning:
		run.MarkRunning()
	case models.RunStatusPaused:
		run.MarkPaused()
	case models.RunStatusCompleted:
		run.MarkCompleted()
	case models.RunStatusCanceled:
		run.MarkCanceled()
	case models.RunStatusFailed:
		run.MarkFailed(errorMsg)
	default:
		return fmt.Errorf("invalid status transition target: %s", status)
	}

	if err := s.db.Store().Upsert(runID, &run); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

func (s *RunStorage) RequestCancel(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run models.Run
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("run not found: %s", runID)
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	if run.IsTerminal() {
		return fmt.Errorf("run %s already finished with status %s", runID, run.Status)
	}

	run.CancelRequested = true
	run.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(runID, &run); err != nil {
		return fmt.Errorf("failed to request cancel: %w", err)
	}

	s.logger.Info().Str("run_id", runID).Msg("Cancellation requested")
	return nil
}

func (s *RunStorage) IsCancelRequested(ctx context.Context, runID string) (bool, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return false, err
	}
	return run.CancelRequested, nil
}

func (s *RunStorage) ListRuns(ctx context.Context, opts *interfaces.RunListOptions) ([]*models.Run, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.Status != "" {
			query = query.And("Status").Eq(opts.Status)
		}
		if opts.Kind != "" {
			query = query.And("Kind").Eq(opts.Kind)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var runs []models.Run
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.Run, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *RunStorage) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run models.Run
	if err := s.db.Store().Get(runID, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to get run: %w", err)
	}

	// Active runs must be canceled or completed before deletion
	if !run.IsTerminal() {
		return fmt.Errorf("cannot delete run %s in status %s", runID, run.Status)
	}

	if err := s.db.Store().Delete(runID, &models.Run{}); err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
