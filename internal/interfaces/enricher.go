package interfaces

import (
	"context"

	"github.com/10thony/prospector/internal/models"
)

// Enrichment is the closed result variant of one per-lead enrichment call
type Enrichment struct {
	Outcome models.Outcome
	// Detail is a short human-readable note attached to the outcome
	Detail string
}

// Enricher is the injected per-lead capability applied by the batch
// processor. Implementations may be slow, rate-limited and fallible; they
// are invoked once per lead, sequentially. An implementation owns any
// persistence of its per-lead detail (audit rows, review entries) - the
// processor only aggregates outcome counts.
type Enricher interface {
	// Kind returns the run kind this enricher serves
	Kind() models.RunKind

	// Enrich processes a single lead. A returned error counts the lead as
	// failed but never aborts the batch.
	Enrich(ctx context.Context, run *models.Run, lead *models.Lead) (*Enrichment, error)
}
