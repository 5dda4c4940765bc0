// services/interfaces.go
package services

import (
	"context"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/database"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/brandlens-ai/brandlens-workflows/internal/repositories"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RepositoryManager manages all database repositories
type RepositoryManager struct {
	db           *database.Client
	RunRepo      repositories.AnalysisRunRepository
	QueryRepo    repositories.AnalysisQueryRepository
	CitationRepo repositories.CitationRepository
	ClientRepo   repositories.ClientRepository
}

// NewRepositoryManager creates a new repository manager with all repositories
func NewRepositoryManager(db *database.Client) *RepositoryManager {
	return &RepositoryManager{
		db:           db,
		RunRepo:      repositories.NewAnalysisRunRepository(db.DB),
		QueryRepo:    repositories.NewAnalysisQueryRepository(db.DB),
		CitationRepo: repositories.NewCitationRepository(db.DB),
		ClientRepo:   repositories.NewClientRepository(db.DB),
	}
}

// BeginTx starts a database transaction
func (rm *RepositoryManager) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return rm.db.BeginTxx(ctx, nil)
}

// QueryContext carries the brand setup one query executes under
type QueryContext struct {
	Client      *models.Client
	Competitors []*models.Competitor
}

// QueryOutcome is the fully analyzed result of one executed item
type QueryOutcome struct {
	Query     *models.AnalysisQuery
	Citations []*models.Citation
}

// QueryExecutor sends one prompt to one platform and returns the normalized,
// classified outcome. No retries here; retry policy lives in the queue layer.
type QueryExecutor interface {
	Execute(ctx context.Context, item *models.QueueItem, queryCtx *QueryContext) (*QueryOutcome, error)
}

// SubmitRunRequest is the input to start an analysis run. Either an explicit
// Queries list or a Keywords x Intents cross-product; Platforms fan each
// query out per platform.
type SubmitRunRequest struct {
	ClientID  uuid.UUID `json:"client_id"`
	Keywords  []string  `json:"keywords"`
	Intents   []string  `json:"intents"`
	Platforms []string  `json:"platforms"`
	Queries   []string  `json:"queries,omitempty"`
}

// Orchestrator drives the run state machine around the queue.
type Orchestrator interface {
	// StartRun creates the run, expands its work items, and seeds the queue.
	StartRun(ctx context.Context, req *SubmitRunRequest) (*models.AnalysisRun, error)

	// RunWorkerCycle claims one batch and processes it, continue-on-error
	// per item. Returns the number of items processed (0 = queue drained).
	RunWorkerCycle(ctx context.Context) (int, error)

	// RetryFailed re-opens a run's failed items and returns the run to
	// running. Returns the number of items reset.
	RetryFailed(ctx context.Context, runID uuid.UUID) (int, error)
}

// AnalyticsService recomputes run-level metrics from persisted data.
type AnalyticsService interface {
	ComputeRunMetrics(ctx context.Context, runID uuid.UUID) (*analysis.RunMetrics, error)
}
