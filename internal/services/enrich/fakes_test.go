package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/10thony/prospector/internal/models"
)

// memLeads is a minimal in-memory LeadStorage for enricher tests
type memLeads struct {
	mu    sync.Mutex
	leads map[string]*models.Lead
}

func newMemLeads(leads ...*models.Lead) *memLeads {
	m := &memLeads{leads: make(map[string]*models.Lead)}
	for _, lead := range leads {
		copied := *lead
		m.leads[lead.ID] = &copied
	}
	return m
}

func (m *memLeads) SaveLead(ctx context.Context, lead *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *lead
	m.leads[lead.ID] = &copied
	return nil
}

func (m *memLeads) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[leadID]
	if !ok {
		return nil, fmt.Errorf("lead not found: %s", leadID)
	}
	copied := *lead
	return &copied, nil
}

func (m *memLeads) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Lead
	for _, lead := range m.leads {
		copied := *lead
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memLeads) CountLeads(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads), nil
}

func (m *memLeads) LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error) {
	return nil, nil
}

func (m *memLeads) LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error) {
	return nil, nil
}

// memResults is an in-memory append-only ResultStorage
type memResults struct {
	mu      sync.Mutex
	results []*models.VerificationResult
}

func (m *memResults) SaveResult(ctx context.Context, result *models.VerificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *result
	m.results = append(m.results, &copied)
	return nil
}

func (m *memResults) ListResults(ctx context.Context, runID string, outcome models.Outcome, limit int) ([]*models.VerificationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.VerificationResult
	for _, r := range m.results {
		if r.RunID != runID {
			continue
		}
		if outcome != "" && r.Outcome != outcome {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memResults) CountResults(ctx context.Context, runID string) (int, error) {
	list, _ := m.ListResults(ctx, runID, "", 0)
	return len(list), nil
}

// memReviews is an in-memory ReviewStorage
type memReviews struct {
	mu      sync.Mutex
	reviews map[string]*models.PendingReview
}

func newMemReviews() *memReviews {
	return &memReviews{reviews: make(map[string]*models.PendingReview)}
}

func (m *memReviews) SaveReview(ctx context.Context, review *models.PendingReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *review
	m.reviews[review.ID] = &copied
	return nil
}

func (m *memReviews) GetReview(ctx context.Context, reviewID string) (*models.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("review not found: %s", reviewID)
	}
	copied := *review
	return &copied, nil
}

func (m *memReviews) ListReviews(ctx context.Context, runID string, disposition models.ReviewDisposition) ([]*models.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PendingReview
	for _, review := range m.reviews {
		if review.RunID != runID {
			continue
		}
		if disposition != "" && review.Disposition != disposition {
			continue
		}
		copied := *review
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memReviews) CountPending(ctx context.Context, runID string) (int, error) {
	list, err := m.ListReviews(ctx, runID, models.DispositionPending)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
