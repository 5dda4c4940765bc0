// services/analytics_service.go
package services

import (
	"context"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

type analyticsService struct {
	repos *RepositoryManager
}

// NewAnalyticsService creates the run metrics service.
func NewAnalyticsService(repos *RepositoryManager) AnalyticsService {
	return &analyticsService{repos: repos}
}

// ComputeRunMetrics folds a run's persisted queries and citations into
// run-level visibility metrics.
func (s *analyticsService) ComputeRunMetrics(ctx context.Context, runID uuid.UUID) (*analysis.RunMetrics, error) {
	queries, err := s.repos.QueryRepo.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries for run %s: %w", runID, err)
	}

	citations, err := s.repos.CitationRepo.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load citations for run %s: %w", runID, err)
	}

	citationsByQuery := make(map[uuid.UUID][]*models.Citation)
	for _, citation := range citations {
		citationsByQuery[citation.AnalysisQueryID] = append(citationsByQuery[citation.AnalysisQueryID], citation)
	}

	results := make([]analysis.QueryResult, 0, len(queries))
	for _, query := range queries {
		results = append(results, analysis.QueryResult{
			Query:     query,
			Citations: citationsByQuery[query.AnalysisQueryID],
		})
	}

	metrics := analysis.FoldRun(results)
	fmt.Printf("[AnalyticsService] 📊 Run %s: %d queries, %d citations, mention rate %.2f\n",
		runID, metrics.TotalQueries, metrics.TotalCitations, metrics.BrandMentionRate)
	return &metrics, nil
}
