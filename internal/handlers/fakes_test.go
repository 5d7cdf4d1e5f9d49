package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

type fakeRunStorage struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newFakeRunStorage(list ...*models.Run) *fakeRunStorage {
	s := &fakeRunStorage{runs: make(map[string]*models.Run)}
	for _, run := range list {
		copied := *run
		s.runs[run.ID] = &copied
	}
	return s
}

func (s *fakeRunStorage) CreateRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *fakeRunStorage) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	copied := *run
	if run.Cursor != nil {
		cursor := *run.Cursor
		copied.Cursor = &cursor
	}
	return &copied, nil
}

func (s *fakeRunStorage) SaveRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	copied := *run
	if stored.CancelRequested {
		copied.CancelRequested = true
	}
	s.runs[run.ID] = &copied
	return nil
}

func (s *fakeRunStorage) UpdateProgress(ctx context.Context, runID string, cursor *models.Cursor, delta models.RunCounters, currentTask string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	if cursor != nil {
		c := *cursor
		run.Cursor = &c
	}
	run.Counters.Add(delta)
	run.CurrentTask = currentTask
	return nil
}

func (s *fakeRunStorage) SetStatus(ctx context.Context, runID string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	run.Status = status
	if status == models.RunStatusFailed {
		run.Error = errorMsg
	}
	return nil
}

func (s *fakeRunStorage) RequestCancel(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	if run.IsTerminal() {
		return fmt.Errorf("run %s is already terminal (%s)", runID, run.Status)
	}
	run.CancelRequested = true
	return nil
}

func (s *fakeRunStorage) IsCancelRequested(ctx context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return false, fmt.Errorf("run not found: %s", runID)
	}
	return run.CancelRequested, nil
}

func (s *fakeRunStorage) ListRuns(ctx context.Context, opts *interfaces.RunListOptions) ([]*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Run
	for _, run := range s.runs {
		if opts != nil && opts.Status != "" && run.Status != opts.Status {
			continue
		}
		if opts != nil && opts.Kind != "" && run.Kind != opts.Kind {
			continue
		}
		copied := *run
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if opts != nil && opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *fakeRunStorage) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

type fakeLeadStorage struct {
	mu    sync.Mutex
	leads map[string]*models.Lead
}

func newFakeLeadStorage(list ...*models.Lead) *fakeLeadStorage {
	s := &fakeLeadStorage{leads: make(map[string]*models.Lead)}
	for _, lead := range list {
		copied := *lead
		s.leads[lead.ID] = &copied
	}
	return s
}

func (s *fakeLeadStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *lead
	s.leads[lead.ID] = &copied
	return nil
}

func (s *fakeLeadStorage) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return nil, fmt.Errorf("lead not found: %s", leadID)
	}
	copied := *lead
	return &copied, nil
}

func (s *fakeLeadStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sorted()
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeLeadStorage) CountLeads(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads), nil
}

func (s *fakeLeadStorage) LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Lead
	for _, lead := range s.sorted() {
		if !sortKey.IsZero() && !lead.CreatedAt.After(sortKey) {
			continue
		}
		out = append(out, lead)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeLeadStorage) LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Lead
	for _, lead := range s.sorted() {
		if !lead.CreatedAt.Equal(sortKey) || lead.ID <= tiebreakID {
			continue
		}
		out = append(out, lead)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// sorted returns leads in oldest-first (CreatedAt, ID) order
func (s *fakeLeadStorage) sorted() []*models.Lead {
	out := make([]*models.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		copied := *lead
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

type fakeResultStorage struct {
	mu      sync.Mutex
	results []*models.VerificationResult
}

func (s *fakeResultStorage) SaveResult(ctx context.Context, result *models.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results = append(s.results, &copied)
	return nil
}

func (s *fakeResultStorage) ListResults(ctx context.Context, runID string, outcome models.Outcome, limit int) ([]*models.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.VerificationResult
	for _, result := range s.results {
		if result.RunID != runID {
			continue
		}
		if outcome != "" && result.Outcome != outcome {
			continue
		}
		copied := *result
		out = append(out, &copied)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeResultStorage) CountResults(ctx context.Context, runID string) (int, error) {
	list, err := s.ListResults(ctx, runID, "", 0)
	return len(list), err
}

type noopEnricher struct {
	kind models.RunKind
}

func (e *noopEnricher) Kind() models.RunKind { return e.kind }

func (e *noopEnricher) Enrich(ctx context.Context, run *models.Run, lead *models.Lead) (*interfaces.Enrichment, error) {
	return &interfaces.Enrichment{Outcome: models.OutcomeNoChange}, nil
}
