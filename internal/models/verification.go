package models

import "time"

// Outcome classifies one lead's enrichment result within a batch
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeUpdated  Outcome = "updated"
	OutcomeNoChange Outcome = "no_change"
	OutcomeFailed   Outcome = "failed"
)

// VerificationResult is one append-only audit row per lead processed by a
// verification run. Rows reference the run by ID and are never read by the
// orchestrator itself.
type VerificationResult struct {
	ID      string  `json:"id"`
	RunID   string  `json:"run_id"`
	LeadID  string  `json:"lead_id"`
	Outcome Outcome `json:"outcome"`

	// Before/After capture the lead title around the verification
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`

	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
