// internal/repositories/client_repo.go
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type clientRepo struct {
	db *sqlx.DB
}

// NewClientRepository creates a Postgres-backed client repository.
func NewClientRepository(db *sqlx.DB) ClientRepository {
	return &clientRepo{db: db}
}

const getClientSQL = `
	SELECT client_id, name, domain
	FROM clients
	WHERE client_id = $1`

func (r *clientRepo) GetByID(ctx context.Context, clientID uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.GetContext(ctx, &client, getClientSQL, clientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

const listCompetitorsSQL = `
	SELECT competitor_id, client_id, name, domain_pattern
	FROM competitors
	WHERE client_id = $1
	ORDER BY name`

func (r *clientRepo) ListCompetitors(ctx context.Context, clientID uuid.UUID) ([]*models.Competitor, error) {
	var competitors []*models.Competitor
	if err := r.db.SelectContext(ctx, &competitors, listCompetitorsSQL, clientID); err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}
	return competitors, nil
}
