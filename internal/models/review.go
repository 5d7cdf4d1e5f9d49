package models

import "time"

// ReviewDisposition is the human decision on a pending review entry
type ReviewDisposition string

const (
	DispositionPending  ReviewDisposition = "pending"
	DispositionAccepted ReviewDisposition = "accepted"
	DispositionRejected ReviewDisposition = "rejected"
)

// PendingReview is one entry of a discovery run's review set: a lead the
// enricher qualified, awaiting human disposition. The run's resume condition
// is the reviewer's signal, not an empty set - a run may be resumed with
// entries still pending.
type PendingReview struct {
	ID     string `json:"id"`
	RunID  string `json:"run_id"`
	LeadID string `json:"lead_id"`

	// Summary is the enricher's one-line justification for qualifying
	Summary string `json:"summary,omitempty"`
	Score   int    `json:"score"`

	Disposition ReviewDisposition `json:"disposition"`
	CreatedAt   time.Time         `json:"created_at"`
	DecidedAt   *time.Time        `json:"decided_at,omitempty"`
}

// IsDecided returns true once the reviewer has accepted or rejected the entry
func (p *PendingReview) IsDecided() bool {
	return p.Disposition == DispositionAccepted || p.Disposition == DispositionRejected
}
