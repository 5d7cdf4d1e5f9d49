package review

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
	"github.com/10thony/prospector/internal/runs"
)

type memReviews struct {
	mu      sync.Mutex
	reviews map[string]*models.PendingReview
}

func newMemReviews(reviews ...*models.PendingReview) *memReviews {
	m := &memReviews{reviews: make(map[string]*models.PendingReview)}
	for _, review := range reviews {
		copied := *review
		m.reviews[review.ID] = &copied
	}
	return m
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
	return nil, nil
}

func (m *memLeads) CountLeads(ctx context.Context) (int, error) {
	return len(m.leads), nil
}

func (m *memLeads) LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error) {
	return nil, nil
}

func (m *memLeads) LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error) {
	return nil, nil
}

type memRuns struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newMemRuns(list ...*models.Run) *memRuns {
	m := &memRuns{runs: make(map[string]*models.Run)}
	for _, run := range list {
		copied := *run
		m.runs[run.ID] = &copied
	}
	return m
}

func (m *memRuns) CreateRun(ctx context.Context, run *models.Run) error {
	return m.SaveRun(ctx, run)
}

func (m *memRuns) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	copied := *run
	return &copied, nil
}

func (m *memRuns) SaveRun(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs[run.ID] = &copied
	return nil
}

func (m *memRuns) UpdateProgress(ctx context.Context, runID string, cursor *models.Cursor, delta models.RunCounters, currentTask string) error {
	return nil
}

func (m *memRuns) SetStatus(ctx context.Context, runID string, status models.RunStatus, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		run.Status = status
	}
	return nil
}

func (m *memRuns) RequestCancel(ctx context.Context, runID string) error { return nil }

func (m *memRuns) IsCancelRequested(ctx context.Context, runID string) (bool, error) {
	return false, nil
}

func (m *memRuns) ListRuns(ctx context.Context, opts *interfaces.RunListOptions) ([]*models.Run, error) {
	return nil, nil
}

func (m *memRuns) DeleteRun(ctx context.Context, runID string) error { return nil }

func pendingReview(id, runID, leadID string) *models.PendingReview {
	return &models.PendingReview{
		ID:          id,
		RunID:       runID,
		LeadID:      leadID,
		Summary:     "looks promising",
		Score:       75,
		Disposition: models.DispositionPending,
		CreatedAt:   time.Now(),
	}
}

func TestService_AcceptQualifiesLead(t *testing.T) {
	logger := arbor.NewLogger()
	leads := newMemLeads(&models.Lead{ID: "lead_1", Company: "Acme"})
	reviews := newMemReviews(pendingReview("rev_1", "run_1", "lead_1"))
	service := NewService(reviews, leads, newMemRuns(), runs.NewSignalRegistry(logger), logger)

	if err := service.Accept(context.Background(), "rev_1"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	review, _ := reviews.GetReview(context.Background(), "rev_1")
	if review.Disposition != models.DispositionAccepted {
		t.Errorf("Expected accepted, got %s", review.Disposition)
	}
	if review.DecidedAt == nil {
		t.Error("Expected DecidedAt set")
	}

	lead, _ := leads.GetLead(context.Background(), "lead_1")
	if !lead.Qualified {
		t.Error("Expected accepted lead flagged qualified")
	}
}

func TestService_RejectLeavesLeadUnqualified(t *testing.T) {
	logger := arbor.NewLogger()
	leads := newMemLeads(&models.Lead{ID: "lead_2", Company: "Beta"})
	reviews := newMemReviews(pendingReview("rev_2", "run_1", "lead_2"))
	service := NewService(reviews, leads, newMemRuns(), runs.NewSignalRegistry(logger), logger)

	if err := service.Reject(context.Background(), "rev_2"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	review, _ := reviews.GetReview(context.Background(), "rev_2")
	if review.Disposition != models.DispositionRejected {
		t.Errorf("Expected rejected, got %s", review.Disposition)
	}

	lead, _ := leads.GetLead(context.Background(), "lead_2")
	if lead.Qualified {
		t.Error("Rejected lead must stay unqualified")
	}
}

func TestService_DecideTwiceRejected(t *testing.T) {
	logger := arbor.NewLogger()
	leads := newMemLeads(&models.Lead{ID: "lead_3", Company: "Gamma"})
	reviews := newMemReviews(pendingReview("rev_3", "run_1", "lead_3"))
	service := NewService(reviews, leads, newMemRuns(), runs.NewSignalRegistry(logger), logger)
	ctx := context.Background()

	if err := service.Accept(ctx, "rev_3"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := service.Reject(ctx, "rev_3"); err == nil {
		t.Error("Expected second disposition to be rejected")
	}
}

func TestService_ResumeDeliversSignal(t *testing.T) {
	logger := arbor.NewLogger()
	registry := runs.NewSignalRegistry(logger)
	run := &models.Run{ID: "run_p", Kind: models.RunKindDiscovery, Status: models.RunStatusPaused}
	// A still-pending entry does not block resuming
	reviews := newMemReviews(pendingReview("rev_p", "run_p", "lead_p"))
	service := NewService(reviews, newMemLeads(), newMemRuns(run), registry, logger)

	waiterDone := make(chan error, 1)
	go func() {
		waiterDone <- registry.Wait(context.Background(), "run_p")
	}()
	deadline := time.Now().Add(2 * time.Second)
	for !registry.Waiting("run_p") {
		if time.Now().After(deadline) {
			t.Fatal("Waiter never registered")
		}
		time.Sleep(time.Millisecond)
	}

	delivered, err := service.Resume(context.Background(), "run_p")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !delivered {
		t.Error("Expected signal delivered to the waiter")
	}
	if err := <-waiterDone; err != nil {
		t.Fatalf("Waiter errored: %v", err)
	}
}

func TestService_ResumeWithoutWaiterIsNoOp(t *testing.T) {
	logger := arbor.NewLogger()
	run := &models.Run{ID: "run_idle", Kind: models.RunKindDiscovery, Status: models.RunStatusPaused}
	service := NewService(newMemReviews(), newMemLeads(), newMemRuns(run), runs.NewSignalRegistry(logger), logger)

	delivered, err := service.Resume(context.Background(), "run_idle")
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if delivered {
		t.Error("Expected no delivery without a waiter")
	}
}

func TestService_ResumeTerminalRunRejected(t *testing.T) {
	logger := arbor.NewLogger()
	run := &models.Run{ID: "run_done", Kind: models.RunKindDiscovery, Status: models.RunStatusCompleted}
	service := NewService(newMemReviews(), newMemLeads(), newMemRuns(run), runs.NewSignalRegistry(logger), logger)

	if _, err := service.Resume(context.Background(), "run_done"); err == nil {
		t.Error("Expected resume of completed run to fail")
	}
}
