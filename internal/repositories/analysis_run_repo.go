// internal/repositories/analysis_run_repo.go
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

type analysisRunRepo struct {
	db *sqlx.DB
}

// NewAnalysisRunRepository creates a Postgres-backed run repository.
func NewAnalysisRunRepository(db *sqlx.DB) AnalysisRunRepository {
	return &analysisRunRepo{db: db}
}

const createRunSQL = `
	INSERT INTO analysis_runs (
		analysis_run_id, client_id, status, queries_total,
		queries_completed, queries_failed, total_cost, created_at, updated_at
	) VALUES (
		:analysis_run_id, :client_id, :status, :queries_total,
		:queries_completed, :queries_failed, :total_cost, NOW(), NOW()
	)`

func (r *analysisRunRepo) Create(ctx context.Context, run *models.AnalysisRun) error {
	if run.AnalysisRunID == uuid.Nil {
		run.AnalysisRunID = uuid.New()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}

	if _, err := r.db.NamedExecContext(ctx, createRunSQL, run); err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}
	return nil
}

const getRunSQL = `
	SELECT analysis_run_id, client_id, status, queries_total, queries_completed,
		queries_failed, total_cost, error_message, created_at, updated_at, completed_at
	FROM analysis_runs
	WHERE analysis_run_id = $1`

func (r *analysisRunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	if err := r.db.GetContext(ctx, &run, getRunSQL, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return &run, nil
}

const markRunningSQL = `
	UPDATE analysis_runs SET
		status = 'running',
		updated_at = NOW()
	WHERE analysis_run_id = $1
	  AND status IN ('pending', 'running')`

func (r *analysisRunRepo) MarkRunning(ctx context.Context, runID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, markRunningSQL, runID); err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}
	return nil
}

const incrementProgressSQL = `
	UPDATE analysis_runs SET
		queries_completed = queries_completed + $2,
		queries_failed = queries_failed + $3,
		total_cost = total_cost + $4,
		updated_at = NOW()
	WHERE analysis_run_id = $1`

func (r *analysisRunRepo) IncrementProgress(ctx context.Context, runID uuid.UUID, completedDelta, failedDelta int, costDelta float64) error {
	if _, err := r.db.ExecContext(ctx, incrementProgressSQL, runID, completedDelta, failedDelta, costDelta); err != nil {
		return fmt.Errorf("failed to increment run progress: %w", err)
	}
	return nil
}

const finalizeRunSQL = `
	UPDATE analysis_runs SET
		status = $2,
		error_message = $3,
		completed_at = NOW(),
		updated_at = NOW()
	WHERE analysis_run_id = $1
	  AND status IN ('pending', 'running')`

func (r *analysisRunRepo) Finalize(ctx context.Context, runID uuid.UUID, status models.RunStatus, errMsg *string) error {
	result, err := r.db.ExecContext(ctx, finalizeRunSQL, runID, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Already terminal; finalization raced another worker and lost.
		fmt.Printf("[AnalysisRunRepo] Run %s already finalized, skipping\n", runID)
	}
	return nil
}

const reopenForRetrySQL = `
	UPDATE analysis_runs SET
		status = 'running',
		queries_failed = GREATEST(queries_failed - $2, 0),
		error_message = NULL,
		completed_at = NULL,
		updated_at = NOW()
	WHERE analysis_run_id = $1`

func (r *analysisRunRepo) ReopenForRetry(ctx context.Context, runID uuid.UUID, retried int) error {
	if _, err := r.db.ExecContext(ctx, reopenForRetrySQL, runID, retried); err != nil {
		return fmt.Errorf("failed to reopen run for retry: %w", err)
	}
	return nil
}
