package review

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
	"github.com/10thony/prospector/internal/runs"
)

// Service handles reviewer dispositions on a discovery run's pending set
// and the resume signal that lets the run proceed past paused. Resuming
// with entries still pending is allowed; the resume condition is the
// reviewer's signal, not an empty set.
type Service struct {
	reviews interfaces.ReviewStorage
	leads   interfaces.LeadStorage
	runStor interfaces.RunStorage
	signals *runs.SignalRegistry
	logger  arbor.ILogger
}

// NewService creates a review service
func NewService(reviews interfaces.ReviewStorage, leads interfaces.LeadStorage, runStor interfaces.RunStorage, signals *runs.SignalRegistry, logger arbor.ILogger) *Service {
	return &Service{
		reviews: reviews,
		leads:   leads,
		runStor: runStor,
		signals: signals,
		logger:  logger,
	}
}

// ListPending returns the undecided entries of a run's review set
func (s *Service) ListPending(ctx context.Context, runID string) ([]*models.PendingReview, error) {
	return s.reviews.ListReviews(ctx, runID, models.DispositionPending)
}

// Accept marks a review entry accepted and flags the lead as qualified
func (s *Service) Accept(ctx context.Context, reviewID string) error {
	review, err := s.decide(ctx, reviewID, models.DispositionAccepted)
	if err != nil {
		return err
	}

	lead, err := s.leads.GetLead(ctx, review.LeadID)
	if err != nil {
		return fmt.Errorf("load reviewed lead: %w", err)
	}
	lead.Qualified = true
	lead.UpdatedAt = time.Now()
	if err := s.leads.SaveLead(ctx, lead); err != nil {
		return fmt.Errorf("persist qualified lead: %w", err)
	}

	s.logger.Info().
		Str("review_id", reviewID).
		Str("lead_id", review.LeadID).
		Msg("Review accepted, lead qualified")
	return nil
}

// Reject marks a review entry rejected
func (s *Service) Reject(ctx context.Context, reviewID string) error {
	review, err := s.decide(ctx, reviewID, models.DispositionRejected)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("review_id", reviewID).
		Str("lead_id", review.LeadID).
		Msg("Review rejected")
	return nil
}

// Resume delivers the resume signal to a paused run. Returns true if a
// waiter was unblocked; duplicate or unmatched delivery is a safe no-op.
func (s *Service) Resume(ctx context.Context, runID string) (bool, error) {
	run, err := s.runStor.GetRun(ctx, runID)
	if err != nil {
		return false, err
	}
	if run.IsTerminal() {
		return false, fmt.Errorf("run %s already finished with status %s", runID, run.Status)
	}

	pending, err := s.reviews.CountPending(ctx, runID)
	if err != nil {
		return false, err
	}

	delivered := s.signals.Deliver(runID)
	s.logger.Info().
		Str("run_id", runID).
		Bool("delivered", delivered).
		Int("still_pending", pending).
		Msg("Resume signal delivered")
	return delivered, nil
}

func (s *Service) decide(ctx context.Context, reviewID string, disposition models.ReviewDisposition) (*models.PendingReview, error) {
	review, err := s.reviews.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.IsDecided() {
		return nil, fmt.Errorf("review %s already decided: %s", reviewID, review.Disposition)
	}

	review.Disposition = disposition
	now := time.Now()
	review.DecidedAt = &now
	if err := s.reviews.SaveReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}
