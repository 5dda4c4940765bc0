// internal/repositories/analysis_query_repo.go
package repositories

import (
	"context"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type analysisQueryRepo struct {
	db *sqlx.DB
}

// NewAnalysisQueryRepository creates a Postgres-backed query repository.
func NewAnalysisQueryRepository(db *sqlx.DB) AnalysisQueryRepository {
	return &analysisQueryRepo{db: db}
}

const createQuerySQL = `
	INSERT INTO analysis_queries (
		analysis_query_id, analysis_run_id, query_id, query_text, keyword, intent,
		platform, model_response, citation_count, brand_mentioned, brand_sentiment,
		input_tokens, output_tokens, total_cost, status, error_message,
		created_at, completed_at
	) VALUES (
		:analysis_query_id, :analysis_run_id, :query_id, :query_text, :keyword, :intent,
		:platform, :model_response, :citation_count, :brand_mentioned, :brand_sentiment,
		:input_tokens, :output_tokens, :total_cost, :status, :error_message,
		NOW(), :completed_at
	)`

func (r *analysisQueryRepo) Create(ctx context.Context, query *models.AnalysisQuery) error {
	if query.AnalysisQueryID == uuid.Nil {
		query.AnalysisQueryID = uuid.New()
	}

	if _, err := r.db.NamedExecContext(ctx, createQuerySQL, query); err != nil {
		return fmt.Errorf("failed to create analysis query: %w", err)
	}
	return nil
}

const getQueriesByRunSQL = `
	SELECT analysis_query_id, analysis_run_id, query_id, query_text, keyword, intent,
		platform, model_response, citation_count, brand_mentioned, brand_sentiment,
		input_tokens, output_tokens, total_cost, status, error_message,
		created_at, completed_at
	FROM analysis_queries
	WHERE analysis_run_id = $1
	ORDER BY created_at`

const getMentionsByRunSQL = `
	SELECT m.analysis_query_id, m.competitor_name
	FROM query_competitor_mentions m
	JOIN analysis_queries q ON q.analysis_query_id = m.analysis_query_id
	WHERE q.analysis_run_id = $1`

func (r *analysisQueryRepo) GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.AnalysisQuery, error) {
	var queries []*models.AnalysisQuery
	if err := r.db.SelectContext(ctx, &queries, getQueriesByRunSQL, runID); err != nil {
		return nil, fmt.Errorf("failed to get queries for run: %w", err)
	}

	// Competitor mentions live in a join table; fold them back onto the
	// query structs.
	var mentions []struct {
		AnalysisQueryID uuid.UUID `db:"analysis_query_id"`
		CompetitorName  string    `db:"competitor_name"`
	}
	if err := r.db.SelectContext(ctx, &mentions, getMentionsByRunSQL, runID); err != nil {
		return nil, fmt.Errorf("failed to get competitor mentions for run: %w", err)
	}

	byQuery := make(map[uuid.UUID][]string)
	for _, m := range mentions {
		byQuery[m.AnalysisQueryID] = append(byQuery[m.AnalysisQueryID], m.CompetitorName)
	}
	for _, q := range queries {
		q.CompetitorNames = byQuery[q.AnalysisQueryID]
	}

	return queries, nil
}

const deleteQuerySQL = `DELETE FROM analysis_queries WHERE analysis_query_id = $1`

func (r *analysisQueryRepo) Delete(ctx context.Context, queryID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, deleteQuerySQL, queryID); err != nil {
		return fmt.Errorf("failed to delete analysis query: %w", err)
	}
	return nil
}

const deleteQueryByQueryIDSQL = `DELETE FROM analysis_queries WHERE query_id = $1`

func (r *analysisQueryRepo) DeleteByQueryID(ctx context.Context, queryID string) error {
	if _, err := r.db.ExecContext(ctx, deleteQueryByQueryIDSQL, queryID); err != nil {
		return fmt.Errorf("failed to delete analysis queries for query id: %w", err)
	}
	return nil
}

const saveMentionSQL = `
	INSERT INTO query_competitor_mentions (analysis_query_id, competitor_name)
	VALUES ($1, $2)
	ON CONFLICT DO NOTHING`

func (r *analysisQueryRepo) SaveCompetitorMentions(ctx context.Context, queryID uuid.UUID, names []string) error {
	for _, name := range names {
		if _, err := r.db.ExecContext(ctx, saveMentionSQL, queryID, name); err != nil {
			return fmt.Errorf("failed to save competitor mention %q: %w", name, err)
		}
	}
	return nil
}
