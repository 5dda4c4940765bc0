// internal/repositories/interfaces.go
package repositories

import (
	"context"
	"errors"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repositories: not found")

// AnalysisRunRepository persists run lifecycle state. Status transitions are
// guarded in SQL so a terminal run can never move again.
type AnalysisRunRepository interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
	GetByID(ctx context.Context, runID uuid.UUID) (*models.AnalysisRun, error)

	// MarkRunning transitions pending -> running. No-op if already running.
	MarkRunning(ctx context.Context, runID uuid.UUID) error

	// IncrementProgress atomically bumps completion counters and run cost.
	IncrementProgress(ctx context.Context, runID uuid.UUID, completedDelta, failedDelta int, costDelta float64) error

	// Finalize stamps a terminal status and completed_at. Guarded against
	// double-finalization.
	Finalize(ctx context.Context, runID uuid.UUID, status models.RunStatus, errMsg *string) error

	// ReopenForRetry returns a terminal run to running after a retry-failed
	// reset, rolling back the failed counter by the number of reset items.
	ReopenForRetry(ctx context.Context, runID uuid.UUID, retried int) error
}

// AnalysisQueryRepository persists executed queries and their classification.
type AnalysisQueryRepository interface {
	Create(ctx context.Context, query *models.AnalysisQuery) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.AnalysisQuery, error)
	SaveCompetitorMentions(ctx context.Context, queryID uuid.UUID, names []string) error

	// Delete removes a query and its dependents. Used to abandon a result
	// whose queue lease lapsed before the terminal write.
	Delete(ctx context.Context, queryID uuid.UUID) error

	// DeleteByQueryID removes any rows keyed to a queue item's query_id.
	// Used before a reclaimed item persists its result, so a worker that
	// crashed mid-persist can't leave a duplicate row behind.
	DeleteByQueryID(ctx context.Context, queryID string) error
}

// CitationRepository persists extracted citations.
type CitationRepository interface {
	CreateBatch(ctx context.Context, citations []*models.Citation) error
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]*models.Citation, error)
}

// ClientRepository reads brand and competitor configuration. Read-only to
// the pipeline.
type ClientRepository interface {
	GetByID(ctx context.Context, clientID uuid.UUID) (*models.Client, error)
	ListCompetitors(ctx context.Context, clientID uuid.UUID) ([]*models.Competitor, error)
}
