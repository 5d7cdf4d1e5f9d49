package runs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// memLeadSource is an in-memory LeadSource over a fixed lead set
type memLeadSource struct {
	mu    sync.Mutex
	leads []*models.Lead
}

func newMemLeadSource(leads []*models.Lead) *memLeadSource {
	return &memLeadSource{leads: leads}
}

// ordered returns the lead set sorted in the combined traversal order
func (s *memLeadSource) ordered(order models.SortOrder) []*models.Lead {
	out := make([]*models.Lead, len(s.leads))
	copy(out, s.leads)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == models.SortOldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == models.SortOldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	return out
}

func (s *memLeadSource) LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lead
	for _, lead := range s.ordered(order) {
		if !sortKey.IsZero() {
			if order == models.SortOldestFirst && !lead.CreatedAt.After(sortKey) {
				continue
			}
			if order == models.SortNewestFirst && !lead.CreatedAt.Before(sortKey) {
				continue
			}
		}
		out = append(out, lead)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memLeadSource) LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Lead
	for _, lead := range s.ordered(order) {
		if !lead.CreatedAt.Equal(sortKey) {
			continue
		}
		if order == models.SortOldestFirst && lead.ID <= tiebreakID {
			continue
		}
		if order == models.SortNewestFirst && lead.ID >= tiebreakID {
			continue
		}
		out = append(out, lead)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// memRunStorage is an in-memory RunStorage for orchestrator tests
type memRunStorage struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newMemRunStorage() *memRunStorage {
	return &memRunStorage{runs: make(map[string]*models.Run)}
}

func copyRun(run *models.Run) *models.Run {
	out := *run
	if run.Cursor != nil {
		cursor := *run.Cursor
		out.Cursor = &cursor
	}
	return &out
}

func (s *memRunStorage) CreateRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *memRunStorage) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return copyRun(run), nil
}

func (s *memRunStorage) SaveRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.runs[run.ID]
	if !ok {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	saved := copyRun(run)
	// The cancel flag is owned by RequestCancel; a stale in-memory copy
	// must not clear it.
	if stored.CancelRequested {
		saved.CancelRequested = true
	}
	s.runs[run.ID] = saved
	return nil
}

func (s *memRunStorage) UpdateProgress(ctx context.Context, runID string, cursor *models.Cursor, delta models.RunCounters, currentTask string) error {
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
	run.UpdatedAt = time.Now()
	return nil
}

func (s *memRunStorage) SetStatus(ctx context.Context, runID string, status models.RunStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
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
		run.Status = status
	}
	return nil
}

func (s *memRunStorage) RequestCancel(ctx context.Context, runID string) error {
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

func (s *memRunStorage) IsCancelRequested(ctx context.Context, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return false, fmt.Errorf("run not found: %s", runID)
	}
	return run.CancelRequested, nil
}

func (s *memRunStorage) ListRuns(ctx context.Context, opts *interfaces.RunListOptions) ([]*models.Run, error) {
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
		out = append(out, copyRun(run))
	}
	return out, nil
}

func (s *memRunStorage) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

// recordingEnricher records every lead it sees and applies a per-lead hook
type recordingEnricher struct {
	mu      sync.Mutex
	kind    models.RunKind
	seen    []string
	outcome func(lead *models.Lead) (*interfaces.Enrichment, error)
}

func newRecordingEnricher(kind models.RunKind) *recordingEnricher {
	return &recordingEnricher{kind: kind}
}

func (e *recordingEnricher) Kind() models.RunKind {
	return e.kind
}

func (e *recordingEnricher) Enrich(ctx context.Context, run *models.Run, lead *models.Lead) (*interfaces.Enrichment, error) {
	e.mu.Lock()
	e.seen = append(e.seen, lead.ID)
	e.mu.Unlock()

	if e.outcome != nil {
		return e.outcome(lead)
	}
	return &interfaces.Enrichment{Outcome: models.OutcomeUpdated}, nil
}

func (e *recordingEnricher) seenIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.seen))
	copy(out, e.seen)
	return out
}

// testLeads builds count leads; ties groups leads onto shared timestamps
// (tieWidth leads per timestamp) so page boundaries can fall inside a group.
func testLeads(count, tieWidth int) []*models.Lead {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	leads := make([]*models.Lead, 0, count)
	for i := 0; i < count; i++ {
		leads = append(leads, &models.Lead{
			ID:        fmt.Sprintf("lead_%03d", i),
			Company:   fmt.Sprintf("Company %d", i),
			URL:       fmt.Sprintf("https://example.com/%d", i),
			Source:    "import",
			CreatedAt: base.Add(time.Duration(i/tieWidth) * time.Minute),
		})
	}
	return leads
}
