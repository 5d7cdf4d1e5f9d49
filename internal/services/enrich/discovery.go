// -----------------------------------------------------------------------
// Discovery Enricher - AI-backed lead qualification via Anthropic Claude
// -----------------------------------------------------------------------

package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

const discoverySystemPrompt = `You are a B2B lead qualification assistant.
Given a lead (company, contact, email, url), decide whether it is worth a
sales follow-up. Respond with a single JSON object and nothing else:
{"qualified": <bool>, "score": <0-100>, "reason": "<one short sentence>"}`

// discoveryVerdict is the parsed shape of the model's response
type discoveryVerdict struct {
	Qualified bool   `json:"qualified"`
	Score     int    `json:"score"`
	Reason    string `json:"reason"`
}

// DiscoveryEnricher qualifies leads with Claude. Qualified leads produce a
// PendingReview entry for human disposition; the orchestrator pauses the
// run once the traversal completes so a reviewer can work through the set.
type DiscoveryEnricher struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	leads     interfaces.LeadStorage
	reviews   interfaces.ReviewStorage
	logger    arbor.ILogger
}

// NewDiscoveryEnricher creates the Claude-backed discovery enricher
func NewDiscoveryEnricher(config *common.AnthropicConfig, leads interfaces.LeadStorage, reviews interfaces.ReviewStorage, logger arbor.ILogger) (*DiscoveryEnricher, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for discovery runs (set ANTHROPIC_API_KEY or anthropic.api_key in config)")
	}

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	timeout := 60 * time.Second
	if config.Timeout != "" {
		parsed, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid anthropic timeout %q: %w", config.Timeout, err)
		}
		timeout = parsed
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Discovery enricher initialized")

	return &DiscoveryEnricher{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		leads:     leads,
		reviews:   reviews,
		logger:    logger,
	}, nil
}

// Kind returns the run kind this enricher serves
func (e *DiscoveryEnricher) Kind() models.RunKind {
	return models.RunKindDiscovery
}

// Enrich classifies one lead. Already-qualified leads are skipped without
// an API call.
func (e *DiscoveryEnricher) Enrich(ctx context.Context, run *models.Run, lead *models.Lead) (*interfaces.Enrichment, error) {
	if lead.Qualified {
		return &interfaces.Enrichment{
			Outcome: models.OutcomeSkipped,
			Detail:  "lead already qualified",
		}, nil
	}

	verdict, err := e.classify(ctx, lead)
	if err != nil {
		return nil, err
	}

	changed := lead.Score != verdict.Score
	lead.Score = verdict.Score
	lead.UpdatedAt = time.Now()
	if err := e.leads.SaveLead(ctx, lead); err != nil {
		return nil, fmt.Errorf("persist lead score: %w", err)
	}

	if verdict.Qualified {
		review := &models.PendingReview{
			ID:          common.NewReviewID(),
			RunID:       run.ID,
			LeadID:      lead.ID,
			Summary:     verdict.Reason,
			Score:       verdict.Score,
			Disposition: models.DispositionPending,
			CreatedAt:   time.Now(),
		}
		if err := e.reviews.SaveReview(ctx, review); err != nil {
			return nil, fmt.Errorf("persist pending review: %w", err)
		}

		e.logger.Debug().
			Str("run_id", run.ID).
			Str("lead_id", lead.ID).
			Int("score", verdict.Score).
			Msg("Lead qualified, review entry created")

		return &interfaces.Enrichment{
			Outcome: models.OutcomeUpdated,
			Detail:  verdict.Reason,
		}, nil
	}

	if changed {
		return &interfaces.Enrichment{
			Outcome: models.OutcomeUpdated,
			Detail:  fmt.Sprintf("score updated to %d, not qualified", verdict.Score),
		}, nil
	}
	return &interfaces.Enrichment{
		Outcome: models.OutcomeNoChange,
		Detail:  "not qualified",
	}, nil
}

// classify calls Claude and parses its JSON verdict
func (e *DiscoveryEnricher) classify(ctx context.Context, lead *models.Lead) (*discoveryVerdict, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Company: %s\nContact: %s\nEmail: %s\nURL: %s",
		lead.Company, lead.Contact, lead.Email, lead.URL)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: int64(e.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: discoverySystemPrompt},
		},
	}

	resp, err := e.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from Claude API")
	}

	return parseVerdict(response.String())
}

// parseVerdict extracts the JSON verdict from a model response, tolerating
// surrounding prose and markdown code fences
func parseVerdict(text string) (*discoveryVerdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var verdict discoveryVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse model verdict: %w", err)
	}

	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 100 {
		verdict.Score = 100
	}
	return &verdict, nil
}
