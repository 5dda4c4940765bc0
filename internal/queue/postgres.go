// internal/queue/postgres.go
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// postgresStore implements Store on Postgres. The claim is a single
// UPDATE...RETURNING over a locked subselect, so concurrent workers skip
// each other's rows instead of blocking or double-claiming.
type postgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a Postgres-backed queue store.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

const enqueueSQL = `
	INSERT INTO queue_items (
		queue_item_id, analysis_run_id, query_text, keyword, intent, platform,
		status, attempts, max_attempts, created_at, updated_at
	) VALUES (
		:queue_item_id, :analysis_run_id, :query_text, :keyword, :intent, :platform,
		:status, :attempts, :max_attempts, NOW(), NOW()
	)`

func (s *postgresStore) Enqueue(ctx context.Context, items []*models.QueueItem) error {
	for _, item := range items {
		if item.QueueItemID == uuid.Nil {
			item.QueueItemID = uuid.New()
		}
		if item.Status == "" {
			item.Status = models.ItemStatusPending
		}
	}

	if _, err := s.db.NamedExecContext(ctx, enqueueSQL, items); err != nil {
		return fmt.Errorf("failed to enqueue items: %w", err)
	}
	return nil
}

const claimBatchSQL = `
	UPDATE queue_items SET
		status = 'claimed',
		attempts = attempts + 1,
		claimed_by = $1,
		claimed_at = NOW(),
		lease_expires_at = NOW() + ($2 * INTERVAL '1 second'),
		updated_at = NOW()
	WHERE queue_item_id IN (
		SELECT queue_item_id FROM queue_items
		WHERE attempts < max_attempts
		  AND (
			status = 'pending'
			OR (status IN ('claimed', 'processing') AND lease_expires_at <= NOW())
		  )
		ORDER BY created_at, queue_item_id
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING queue_item_id, analysis_run_id, query_text, keyword, intent, platform,
		status, attempts, max_attempts, claimed_by, claimed_at, lease_expires_at,
		error_message, error_details, analysis_query_id, created_at, updated_at`

func (s *postgresStore) ClaimBatch(ctx context.Context, workerID string, batchSize int, leaseDuration time.Duration) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	err := s.db.SelectContext(ctx, &items, claimBatchSQL, workerID, int(leaseDuration.Seconds()), batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}
	return items, nil
}

// guardedUpdate runs an ownership-guarded UPDATE and maps a zero row count
// to ErrLeaseExpired.
func (s *postgresStore) guardedUpdate(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("guarded queue update failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrLeaseExpired
	}
	return nil
}

const markProcessingSQL = `
	UPDATE queue_items SET
		status = 'processing',
		updated_at = NOW()
	WHERE queue_item_id = $1
	  AND claimed_by = $2
	  AND status IN ('claimed', 'processing')
	  AND lease_expires_at > NOW()`

func (s *postgresStore) MarkProcessing(ctx context.Context, itemID uuid.UUID, workerID string) error {
	return s.guardedUpdate(ctx, markProcessingSQL, itemID, workerID)
}

const completeItemSQL = `
	UPDATE queue_items SET
		status = 'completed',
		analysis_query_id = $3,
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE queue_item_id = $1
	  AND claimed_by = $2
	  AND status IN ('claimed', 'processing')
	  AND lease_expires_at > NOW()`

func (s *postgresStore) CompleteItem(ctx context.Context, itemID uuid.UUID, workerID string, queryID uuid.UUID) error {
	return s.guardedUpdate(ctx, completeItemSQL, itemID, workerID, queryID)
}

const failItemSQL = `
	UPDATE queue_items SET
		status = 'failed',
		error_message = $3,
		error_details = NULLIF($4, ''),
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE queue_item_id = $1
	  AND claimed_by = $2
	  AND status IN ('claimed', 'processing')
	  AND lease_expires_at > NOW()`

func (s *postgresStore) FailItem(ctx context.Context, itemID uuid.UUID, workerID string, errMsg, errDetails string) error {
	return s.guardedUpdate(ctx, failItemSQL, itemID, workerID, errMsg, errDetails)
}

const releaseItemSQL = `
	UPDATE queue_items SET
		status = 'pending',
		claimed_by = NULL,
		claimed_at = NULL,
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE queue_item_id = $1
	  AND claimed_by = $2
	  AND status IN ('claimed', 'processing')
	  AND lease_expires_at > NOW()`

func (s *postgresStore) ReleaseItem(ctx context.Context, itemID uuid.UUID, workerID string) error {
	return s.guardedUpdate(ctx, releaseItemSQL, itemID, workerID)
}

const sweepExhaustedSQL = `
	UPDATE queue_items SET
		status = 'failed',
		error_message = $1,
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE queue_item_id IN (
		SELECT queue_item_id FROM queue_items
		WHERE status IN ('claimed', 'processing')
		  AND lease_expires_at <= NOW()
		  AND attempts >= max_attempts
		FOR UPDATE SKIP LOCKED
	)
	RETURNING queue_item_id, analysis_run_id, query_text, keyword, intent, platform,
		status, attempts, max_attempts, claimed_by, claimed_at, lease_expires_at,
		error_message, error_details, analysis_query_id, created_at, updated_at`

func (s *postgresStore) SweepExhausted(ctx context.Context) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	if err := s.db.SelectContext(ctx, &items, sweepExhaustedSQL, exhaustedLeaseMessage); err != nil {
		return nil, fmt.Errorf("failed to sweep exhausted items: %w", err)
	}
	return items, nil
}

const resetFailedSQL = `
	UPDATE queue_items SET
		status = 'pending',
		max_attempts = attempts + $2,
		error_message = NULL,
		error_details = NULL,
		claimed_by = NULL,
		claimed_at = NULL,
		lease_expires_at = NULL,
		updated_at = NOW()
	WHERE analysis_run_id = $1
	  AND status = 'failed'`

func (s *postgresStore) ResetFailed(ctx context.Context, runID uuid.UUID, extraAttempts int) (int, error) {
	result, err := s.db.ExecContext(ctx, resetFailedSQL, runID, extraAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed items: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(rows), nil
}

const pendingCountSQL = `
	SELECT COUNT(*) FROM queue_items
	WHERE analysis_run_id = $1
	  AND status IN ('pending', 'claimed', 'processing')`

func (s *postgresStore) PendingCount(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, pendingCountSQL, runID); err != nil {
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}
	return count, nil
}

const deleteForRunSQL = `DELETE FROM queue_items WHERE analysis_run_id = $1`

func (s *postgresStore) DeleteForRun(ctx context.Context, runID uuid.UUID) (int, error) {
	result, err := s.db.ExecContext(ctx, deleteForRunSQL, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items for run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(rows), nil
}
