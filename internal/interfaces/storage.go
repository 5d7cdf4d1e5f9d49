package interfaces

import (
	"context"
	"time"

	"github.com/10thony/prospector/internal/models"
)

// RunStorage persists batch run records.
//
// The orchestrator is the only writer of progress fields (via SaveRun and
// UpdateProgress); external callers touch only the cancellation flag through
// RequestCancel. Both sides read through GetRun/IsCancelRequested.
type RunStorage interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	SaveRun(ctx context.Context, run *models.Run) error

	// UpdateProgress commits one page's worth of progress atomically:
	// cursor, counter deltas and the display task string in a single write.
	// The cancellation flag is preserved (read-modify-write).
	UpdateProgress(ctx context.Context, runID string, cursor *models.Cursor, delta models.RunCounters, currentTask string) error

	// SetStatus transitions the run status; errorMsg is only stored for failed
	SetStatus(ctx context.Context, runID string, status models.RunStatus, errorMsg string) error

	// RequestCancel sets the cooperative cancellation flag. Safe to call at
	// any time; observed by the orchestrator at its page checkpoints.
	RequestCancel(ctx context.Context, runID string) error
	IsCancelRequested(ctx context.Context, runID string) (bool, error)

	ListRuns(ctx context.Context, opts *RunListOptions) ([]*models.Run, error)
	DeleteRun(ctx context.Context, runID string) error
}

// RunListOptions filters run listings
type RunListOptions struct {
	Status models.RunStatus
	Kind   models.RunKind
	Limit  int
	Offset int
}

// LeadSource is the ordered record source the paginator traverses. The two
// range primitives together implement the compound-cursor page fetch; both
// must return leads in the combined (CreatedAt, ID) traversal order.
type LeadSource interface {
	// LeadsAfter returns up to limit leads whose CreatedAt is strictly
	// beyond sortKey in the traversal direction (all leads from the start
	// when sortKey is zero), ordered by the compound key.
	LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error)

	// LeadsAtKey returns up to limit leads whose CreatedAt equals sortKey
	// and whose ID is strictly beyond tiebreakID in the traversal
	// direction, ordered by ID in that direction.
	LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error)
}

// LeadStorage persists leads and exposes the paginator range primitives
type LeadStorage interface {
	LeadSource

	SaveLead(ctx context.Context, lead *models.Lead) error
	GetLead(ctx context.Context, leadID string) (*models.Lead, error)
	ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error)
	CountLeads(ctx context.Context) (int, error)
}

// ResultStorage persists append-only verification audit rows
type ResultStorage interface {
	SaveResult(ctx context.Context, result *models.VerificationResult) error
	ListResults(ctx context.Context, runID string, outcome models.Outcome, limit int) ([]*models.VerificationResult, error)
	CountResults(ctx context.Context, runID string) (int, error)
}

// ReviewStorage persists the pending review set of discovery runs
type ReviewStorage interface {
	SaveReview(ctx context.Context, review *models.PendingReview) error
	GetReview(ctx context.Context, reviewID string) (*models.PendingReview, error)
	ListReviews(ctx context.Context, runID string, disposition models.ReviewDisposition) ([]*models.PendingReview, error)
	CountPending(ctx context.Context, runID string) (int, error)
}

// StorageManager provides access to all storage services
type StorageManager interface {
	RunStorage() RunStorage
	LeadStorage() LeadStorage
	ResultStorage() ResultStorage
	ReviewStorage() ReviewStorage
	Close() error
}
