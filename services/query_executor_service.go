// services/query_executor_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// providerFactory is swapped in tests for a mock-returning factory.
type providerFactory func(platform models.Platform, cfg *config.Config, costService common.CostService) (providers.AIProvider, error)

type queryExecutorService struct {
	cfg         *config.Config
	costService common.CostService
	newProvider providerFactory

	mu        sync.Mutex
	providers map[models.Platform]providers.AIProvider
	limiters  map[models.Platform]*rate.Limiter
}

// NewQueryExecutor creates the query execution service.
func NewQueryExecutor(cfg *config.Config, costService common.CostService) QueryExecutor {
	return &queryExecutorService{
		cfg:         cfg,
		costService: costService,
		newProvider: providers.NewProvider,
		providers:   make(map[models.Platform]providers.AIProvider),
		limiters:    make(map[models.Platform]*rate.Limiter),
	}
}

// providerFor returns the cached provider and its rate limiter for a
// platform, constructing both on first use.
func (s *queryExecutorService) providerFor(platform models.Platform) (providers.AIProvider, *rate.Limiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	provider, ok := s.providers[platform]
	if !ok {
		var err error
		provider, err = s.newProvider(platform, s.cfg, s.costService)
		if err != nil {
			return nil, nil, err
		}
		s.providers[platform] = provider
	}

	limiter, ok := s.limiters[platform]
	if !ok {
		rps := s.cfg.Worker.ProviderRPS
		if rps <= 0 {
			rps = 1.0
		}
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
		s.limiters[platform] = limiter
	}

	return provider, limiter, nil
}

func (s *queryExecutorService) Execute(ctx context.Context, item *models.QueueItem, queryCtx *QueryContext) (*QueryOutcome, error) {
	if queryCtx == nil || queryCtx.Client == nil {
		return nil, &common.ConfigurationError{Message: "query context has no client"}
	}

	provider, limiter, err := s.providerFor(item.Platform)
	if err != nil {
		return nil, err
	}

	// Per-platform request budget; waiting respects the caller's context.
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	prompt := buildPrompt(item.QueryText, queryCtx)
	fmt.Printf("[QueryExecutor] ▶️ Executing %s query for keyword %q\n", item.Platform, item.Keyword)

	aiResp, err := provider.RunQuery(ctx, prompt)
	if err != nil {
		var extErr *analysis.ExtractionError
		if errors.As(err, &extErr) {
			// Malformed body: not retryable, and not an item failure either.
			// Record the query with zero citations and the extraction error.
			fmt.Printf("[QueryExecutor] ⚠️ Unusable response body for item %s: %v\n", item.QueueItemID, extErr)
			return zeroCitationOutcome(item, extErr), nil
		}
		return nil, err
	}

	// Platform-ranked citations take precedence over text scanning.
	structured := make([]analysis.SourceCitation, 0, len(aiResp.Citations))
	for i, url := range aiResp.Citations {
		structured = append(structured, analysis.SourceCitation{URL: url, Rank: i + 1})
	}

	citations := analysis.ExtractCitations(aiResp.Response, structured)
	analysis.FlagCitationDomains(citations, queryCtx.Client.Domain, queryCtx.Competitors)

	brandMentioned := analysis.FindBrandMention(citations, aiResp.Response, queryCtx.Client.Domain, queryCtx.Client.Name)
	sentiment := analysis.ClassifySentiment(aiResp.Response, queryCtx.Client.Name)
	competitorMentions := analysis.FindCompetitorMentions(citations, aiResp.Response, queryCtx.Competitors)

	now := time.Now()
	inputTokens := aiResp.InputTokens
	outputTokens := aiResp.OutputTokens
	cost := aiResp.Cost
	responseText := aiResp.Response

	query := &models.AnalysisQuery{
		AnalysisQueryID: uuid.New(),
		AnalysisRunID:   item.AnalysisRunID,
		QueryID:         item.QueueItemID.String(),
		QueryText:       item.QueryText,
		Keyword:         item.Keyword,
		Intent:          item.Intent,
		Platform:        item.Platform,
		ModelResponse:   &responseText,
		CitationCount:   len(citations),
		BrandMentioned:  brandMentioned,
		BrandSentiment:  sentiment,
		CompetitorNames: competitorMentions.Names,
		InputTokens:     &inputTokens,
		OutputTokens:    &outputTokens,
		TotalCost:       &cost,
		Status:          "completed",
		CompletedAt:     &now,
	}

	for _, citation := range citations {
		citation.AnalysisQueryID = query.AnalysisQueryID
	}

	fmt.Printf("[QueryExecutor] ✅ Query done: %d citations, brand mentioned: %t\n", len(citations), brandMentioned)

	return &QueryOutcome{Query: query, Citations: citations}, nil
}

// zeroCitationOutcome records a query whose response body could not be
// analyzed: no citations, no mentions, the extraction error on the row.
func zeroCitationOutcome(item *models.QueueItem, extErr *analysis.ExtractionError) *QueryOutcome {
	now := time.Now()
	errMsg := extErr.Error()

	return &QueryOutcome{
		Query: &models.AnalysisQuery{
			AnalysisQueryID: uuid.New(),
			AnalysisRunID:   item.AnalysisRunID,
			QueryID:         item.QueueItemID.String(),
			QueryText:       item.QueryText,
			Keyword:         item.Keyword,
			Intent:          item.Intent,
			Platform:        item.Platform,
			ErrorMessage:    &errMsg,
			Status:          "completed",
			CompletedAt:     &now,
		},
	}
}

// buildPrompt augments the raw query with brand and competitor context so
// the model is biased toward discussing them. Augmentation only; the model
// is free to ignore it.
func buildPrompt(queryText string, queryCtx *QueryContext) string {
	var b strings.Builder
	b.WriteString(queryText)

	names := make([]string, 0, len(queryCtx.Competitors)+1)
	if queryCtx.Client.Name != "" {
		names = append(names, queryCtx.Client.Name)
	}
	for _, comp := range queryCtx.Competitors {
		if comp.Name != "" {
			names = append(names, comp.Name)
		}
	}

	if len(names) > 0 {
		b.WriteString("\n\nWhere relevant, consider providers such as ")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(" alongside any others you would normally recommend. Cite the sources you rely on.")
	}

	return b.String()
}
