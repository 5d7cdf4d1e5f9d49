package runs

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// BatchResult aggregates one page's outcome counts
type BatchResult struct {
	Counters models.RunCounters
	// Errors collects per-lead failure messages for the page
	Errors []string
}

// Processor applies an enricher to one page of leads, sequentially, and
// reduces outcomes into counters. A single lead's failure never aborts the
// batch; it is counted and the loop continues. The enricher owns any
// persistence of per-lead detail.
type Processor struct {
	logger arbor.ILogger
}

// NewProcessor creates a batch processor
func NewProcessor(logger arbor.ILogger) *Processor {
	return &Processor{logger: logger}
}

// Process runs the enricher over every lead in the page in order
func (p *Processor) Process(ctx context.Context, run *models.Run, enricher interfaces.Enricher, page []*models.Lead) BatchResult {
	var result BatchResult

	for _, lead := range page {
		result.Counters.Processed++

		enrichment, err := enricher.Enrich(ctx, run, lead)
		if err != nil {
			result.Counters.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", lead.ID, err))
			p.logger.Warn().
				Str("run_id", run.ID).
				Str("lead_id", lead.ID).
				Err(err).
				Msg("Lead enrichment failed")
			continue
		}

		switch enrichment.Outcome {
		case models.OutcomeUpdated, models.OutcomeNoChange:
			result.Counters.Succeeded++
		case models.OutcomeSkipped:
			result.Counters.Skipped++
		case models.OutcomeFailed:
			result.Counters.Failed++
			if enrichment.Detail != "" {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", lead.ID, enrichment.Detail))
			}
		default:
			result.Counters.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: unknown outcome %q", lead.ID, enrichment.Outcome))
		}
	}

	return result
}
