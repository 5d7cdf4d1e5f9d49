// -----------------------------------------------------------------------
// Link Check Enricher - verifies lead URLs and refreshes page titles
// -----------------------------------------------------------------------

package enrich

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// LinkCheckEnricher fetches each lead's URL, extracts the page title and
// records a VerificationResult audit row. Outbound requests are throttled
// with a token-bucket limiter on top of the orchestrator's inter-batch
// delay, since remote sites rate-limit per request, not per page.
type LinkCheckEnricher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	leads     interfaces.LeadStorage
	results   interfaces.ResultStorage
	logger    arbor.ILogger
}

// NewLinkCheckEnricher creates the HTTP link verification enricher
func NewLinkCheckEnricher(config *common.VerifyConfig, leads interfaces.LeadStorage, results interfaces.ResultStorage, logger arbor.ILogger) (*LinkCheckEnricher, error) {
	timeout, err := time.ParseDuration(config.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid verify request_timeout %q: %w", config.RequestTimeout, err)
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &LinkCheckEnricher{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: config.UserAgent,
		leads:     leads,
		results:   results,
		logger:    logger,
	}, nil
}

// Kind returns the run kind this enricher serves
func (e *LinkCheckEnricher) Kind() models.RunKind {
	return models.RunKindVerification
}

// Enrich verifies one lead's URL and appends the audit row. Fetch problems
// are absorbed into a failed outcome; only audit persistence errors
// propagate (they indicate the store itself is unhealthy).
func (e *LinkCheckEnricher) Enrich(ctx context.Context, run *models.Run, lead *models.Lead) (*interfaces.Enrichment, error) {
	started := time.Now()

	if strings.TrimSpace(lead.URL) == "" {
		return e.record(ctx, run, lead, started, &interfaces.Enrichment{
			Outcome: models.OutcomeSkipped,
			Detail:  "lead has no URL",
		}, lead.Title, lead.Title)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	title, err := e.fetchTitle(ctx, lead.URL)
	if err != nil {
		e.logger.Debug().
			Str("lead_id", lead.ID).
			Str("url", lead.URL).
			Err(err).
			Msg("Link verification failed")
		return e.record(ctx, run, lead, started, &interfaces.Enrichment{
			Outcome: models.OutcomeFailed,
			Detail:  err.Error(),
		}, lead.Title, lead.Title)
	}

	before := lead.Title
	if title == before {
		return e.record(ctx, run, lead, started, &interfaces.Enrichment{
			Outcome: models.OutcomeNoChange,
			Detail:  "title unchanged",
		}, before, title)
	}

	lead.Title = title
	lead.UpdatedAt = time.Now()
	if err := e.leads.SaveLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("persist lead title: %w", err)
	}

	return e.record(ctx, run, lead, started, &interfaces.Enrichment{
		Outcome: models.OutcomeUpdated,
		Detail:  "title updated",
	}, before, title)
}

// fetchTitle performs the HTTP fetch and extracts the <title> text
func (e *LinkCheckEnricher) fetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

// record appends the audit row and returns the enrichment unchanged
func (e *LinkCheckEnricher) record(ctx context.Context, run *models.Run, lead *models.Lead, started time.Time, enrichment *interfaces.Enrichment, before, after string) (*interfaces.Enrichment, error) {
	result := &models.VerificationResult{
		ID:         common.NewResultID(),
		RunID:      run.ID,
		LeadID:     lead.ID,
		Outcome:    enrichment.Outcome,
		Before:     before,
		After:      after,
		DurationMS: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if enrichment.Outcome == models.OutcomeFailed {
		result.Error = enrichment.Detail
	}

	if err := e.results.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("persist verification result: %w", err)
	}
	return enrichment, nil
}
