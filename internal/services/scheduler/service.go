package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
	"github.com/10thony/prospector/internal/runs"
)

// Service periodically re-invokes the continuous verification run. Each
// tick either resumes the most recent resumable verification run or starts
// a new one, always with the configured page budget so an invocation yields
// control instead of monopolizing a tick. Ticks never overlap: a tick that
// finds the previous invocation still executing is dropped.
type Service struct {
	config       *common.SchedulerConfig
	orchestrator *runs.Orchestrator
	runStorage   interfaces.RunStorage
	cron         *cron.Cron
	logger       arbor.ILogger

	mu        sync.Mutex
	executing bool
	running   bool
	entryID   cron.EntryID
}

// NewService creates the verification run scheduler
func NewService(config *common.SchedulerConfig, orchestrator *runs.Orchestrator, runStorage interfaces.RunStorage, logger arbor.ILogger) *Service {
	return &Service{
		config:       config,
		orchestrator: orchestrator,
		runStorage:   runStorage,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start registers the cron entry and begins ticking
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.tick)
	if err != nil {
		return fmt.Errorf("invalid scheduler cron expression %q: %w", s.config.Schedule, err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Int("batch_size", s.config.BatchSize).
		Int("max_batches", s.config.MaxBatches).
		Msg("Verification scheduler started")
	return nil
}

// Stop halts the cron and waits for an in-flight tick to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Verification scheduler stopped")
}

// tick performs one scheduler pass
func (s *Service) tick() {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		s.logger.Debug().Msg("Previous verification invocation still executing, skipping tick")
		return
	}
	s.executing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
	}()

	ctx := context.Background()

	run, err := s.nextRun(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduler failed to obtain verification run")
		return
	}

	if err := s.orchestrator.Execute(ctx, run.ID); err != nil {
		s.logger.Error().
			Err(err).
			Str("run_id", run.ID).
			Msg("Scheduled verification invocation failed")
	}
}

// nextRun resumes the most recent resumable verification run, or starts a
// fresh one when every earlier run has finished
func (s *Service) nextRun(ctx context.Context) (*models.Run, error) {
	existing, err := s.runStorage.ListRuns(ctx, &interfaces.RunListOptions{
		Kind:  models.RunKindVerification,
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && existing[0].IsResumable() {
		return existing[0], nil
	}

	return s.orchestrator.StartRun(ctx, runs.StartParams{
		Kind:       models.RunKindVerification,
		BatchSize:  s.config.BatchSize,
		Order:      models.SortOldestFirst,
		MaxBatches: s.config.MaxBatches,
		StartedBy:  "scheduler",
	})
}
