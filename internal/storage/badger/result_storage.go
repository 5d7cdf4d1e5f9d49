package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// ResultStorage implements the ResultStorage interface for Badger.
// Verification results are append-only audit rows; they are never updated.
type ResultStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewResultStorage creates a new ResultStorage instance
func NewResultStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ResultStorage {
	return &ResultStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ResultStorage) SaveResult(ctx context.Context, result *models.VerificationResult) error {
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if result.RunID == "" {
		return fmt.Errorf("result run ID is required")
	}

	if err := s.db.Store().Insert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save verification result: %w", err)
	}
	return nil
}

func (s *ResultStorage) ListResults(ctx context.Context, runID string, outcome models.Outcome, limit int) ([]*models.VerificationResult, error) {
	query := badgerhold.Where("RunID").Eq(runID)
	if outcome != "" {
		query = query.And("Outcome").Eq(outcome)
	}
	query = query.SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var results []models.VerificationResult
	if err := s.db.Store().Find(&results, query); err != nil {
		return nil, fmt.Errorf("failed to list verification results: %w", err)
	}

	out := make([]*models.VerificationResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}

func (s *ResultStorage) CountResults(ctx context.Context, runID string) (int, error) {
	count, err := s.db.Store().Count(&models.VerificationResult{}, badgerhold.Where("RunID").Eq(runID))
	if err != nil {
		return 0, fmt.Errorf("failed to count verification results: %w", err)
	}
	return int(count), nil
}
