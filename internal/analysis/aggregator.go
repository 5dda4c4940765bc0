// internal/analysis/aggregator.go
package analysis

import (
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
)

// QueryResult pairs a persisted query with its citations for aggregation
type QueryResult struct {
	Query     *models.AnalysisQuery
	Citations []*models.Citation
}

// QueryMetrics summarizes a single query
type QueryMetrics struct {
	CitationCount        int      `json:"citation_count"`
	BrandMentioned       bool     `json:"brand_mentioned"`
	CompetitorNames      []string `json:"competitor_mentioned_names"`
	AssociatedPagesCount int      `json:"associated_pages_count"`
}

// CompetitorVisibility aggregates one competitor's presence across a run
type CompetitorVisibility struct {
	MentionCount            int     `json:"mention_count"`
	AverageCitationPosition float64 `json:"average_citation_position"`
}

// RunMetrics summarizes a whole run. All rates guard the zero-denominator
// case and report 0 instead of NaN.
type RunMetrics struct {
	TotalQueries           int                             `json:"total_queries"`
	TotalCitations         int                             `json:"total_citations"`
	BrandMentionRate       float64                         `json:"brand_mention_rate"`
	CitationRate           float64                         `json:"citation_rate"`
	AveragePageSpeed       float64                         `json:"average_page_speed"`
	AverageDomainAuthority float64                         `json:"average_domain_authority"`
	CompetitorVisibility   map[string]CompetitorVisibility `json:"competitor_visibility"`
}

// FoldQuery computes per-query metrics from one result
func FoldQuery(result QueryResult) QueryMetrics {
	pages := make(map[string]bool)
	for _, citation := range result.Citations {
		pages[normalizeDedupKey(citation.URL)] = true
	}

	return QueryMetrics{
		CitationCount:        len(result.Citations),
		BrandMentioned:       result.Query.BrandMentioned,
		CompetitorNames:      result.Query.CompetitorNames,
		AssociatedPagesCount: len(pages),
	}
}

// FoldRun folds all query results of a run into run-level metrics
func FoldRun(results []QueryResult) RunMetrics {
	metrics := RunMetrics{
		TotalQueries:         len(results),
		CompetitorVisibility: make(map[string]CompetitorVisibility),
	}

	brandMentions := 0
	queriesWithClientCitation := 0
	var speedSum float64
	speedCount := 0
	var authoritySum float64
	authorityCount := 0

	competitorMentions := make(map[string]int)
	competitorPositionSum := make(map[string]float64)
	competitorPositionCount := make(map[string]int)

	for _, result := range results {
		metrics.TotalCitations += len(result.Citations)

		if result.Query.BrandMentioned {
			brandMentions++
			hasClientCitation := false
			for _, citation := range result.Citations {
				if citation.IsClientDomain {
					hasClientCitation = true
					break
				}
			}
			if hasClientCitation {
				queriesWithClientCitation++
			}
		}

		for _, name := range result.Query.CompetitorNames {
			competitorMentions[name]++
		}

		for _, citation := range result.Citations {
			if citation.PageSpeed != nil {
				speedSum += *citation.PageSpeed
				speedCount++
			}
			if citation.DomainAuthority != nil {
				authoritySum += *citation.DomainAuthority
				authorityCount++
			}
			if citation.IsCompetitorDomain {
				for _, name := range citation.CompetitorNames {
					competitorPositionSum[name] += float64(citation.Position)
					competitorPositionCount[name]++
				}
			}
		}
	}

	if metrics.TotalQueries > 0 {
		metrics.BrandMentionRate = float64(brandMentions) / float64(metrics.TotalQueries)
	}
	if brandMentions > 0 {
		metrics.CitationRate = float64(queriesWithClientCitation) / float64(brandMentions)
	}
	if speedCount > 0 {
		metrics.AveragePageSpeed = speedSum / float64(speedCount)
	}
	if authorityCount > 0 {
		metrics.AverageDomainAuthority = authoritySum / float64(authorityCount)
	}

	for name, count := range competitorMentions {
		visibility := CompetitorVisibility{MentionCount: count}
		if competitorPositionCount[name] > 0 {
			visibility.AverageCitationPosition = competitorPositionSum[name] / float64(competitorPositionCount[name])
		}
		metrics.CompetitorVisibility[name] = visibility
	}
	// Competitors that only show up through citation domains still get an
	// entry even if no query-level mention was recorded.
	for name, count := range competitorPositionCount {
		if _, exists := metrics.CompetitorVisibility[name]; !exists {
			metrics.CompetitorVisibility[name] = CompetitorVisibility{
				MentionCount:            count,
				AverageCitationPosition: competitorPositionSum[name] / float64(count),
			}
		}
	}

	return metrics
}
