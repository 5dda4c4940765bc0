// internal/repositories/citation_repo.go
package repositories

import (
	"context"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type citationRepo struct {
	db *sqlx.DB
}

// NewCitationRepository creates a Postgres-backed citation repository.
func NewCitationRepository(db *sqlx.DB) CitationRepository {
	return &citationRepo{db: db}
}

const createCitationSQL = `
	INSERT INTO citations (
		citation_id, analysis_query_id, url, domain, position,
		is_client_domain, is_competitor_domain, page_speed, domain_authority, created_at
	) VALUES (
		:citation_id, :analysis_query_id, :url, :domain, :position,
		:is_client_domain, :is_competitor_domain, :page_speed, :domain_authority, NOW()
	)
	ON CONFLICT (analysis_query_id, url) DO NOTHING`

func (r *citationRepo) CreateBatch(ctx context.Context, citations []*models.Citation) error {
	if len(citations) == 0 {
		return nil
	}

	for _, citation := range citations {
		if citation.CitationID == uuid.Nil {
			citation.CitationID = uuid.New()
		}
	}

	if _, err := r.db.NamedExecContext(ctx, createCitationSQL, citations); err != nil {
		return fmt.Errorf("failed to create citations: %w", err)
	}
	return nil
}

const getCitationsByRunSQL = `
	SELECT c.citation_id, c.analysis_query_id, c.url, c.domain, c.position,
		c.is_client_domain, c.is_competitor_domain, c.page_speed, c.domain_authority,
		c.created_at
	FROM citations c
	JOIN analysis_queries q ON q.analysis_query_id = c.analysis_query_id
	WHERE q.analysis_run_id = $1
	ORDER BY c.analysis_query_id, c.position`

func (r *citationRepo) GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.Citation, error) {
	var citations []*models.Citation
	if err := r.db.SelectContext(ctx, &citations, getCitationsByRunSQL, runID); err != nil {
		return nil, fmt.Errorf("failed to get citations for run: %w", err)
	}
	return citations, nil
}
