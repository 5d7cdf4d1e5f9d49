package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// ReviewStorage implements the ReviewStorage interface for Badger
type ReviewStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReviewStorage creates a new ReviewStorage instance
func NewReviewStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReviewStorage {
	return &ReviewStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReviewStorage) SaveReview(ctx context.Context, review *models.PendingReview) error {
	if review.ID == "" {
		return fmt.Errorf("review ID is required")
	}
	if review.RunID == "" {
		return fmt.Errorf("review run ID is required")
	}
	if review.Disposition == "" {
		review.Disposition = models.DispositionPending
	}

	if err := s.db.Store().Upsert(review.ID, review); err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

func (s *ReviewStorage) GetReview(ctx context.Context, reviewID string) (*models.PendingReview, error) {
	var review models.PendingReview
	if err := s.db.Store().Get(reviewID, &review); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("review not found: %s", reviewID)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

func (s *ReviewStorage) ListReviews(ctx context.Context, runID string, disposition models.ReviewDisposition) ([]*models.PendingReview, error) {
	query := badgerhold.Where("RunID").Eq(runID)
	if disposition != "" {
		query = query.And("Disposition").Eq(disposition)
	}
	query = query.SortBy("CreatedAt")

	var reviews []models.PendingReview
	if err := s.db.Store().Find(&reviews, query); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	out := make([]*models.PendingReview, len(reviews))
	for i := range reviews {
		out[i] = &reviews[i]
	}
	return out, nil
}

func (s *ReviewStorage) CountPending(ctx context.Context, runID string) (int, error) {
	count, err := s.db.Store().Count(&models.PendingReview{},
		badgerhold.Where("RunID").Eq(runID).And("Disposition").Eq(models.DispositionPending))
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reviews: %w", err)
	}
	return int(count), nil
}
