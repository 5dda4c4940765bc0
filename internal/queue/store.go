// internal/queue/store.go
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

// ErrLeaseExpired is returned by guarded writes when the caller no longer
// owns the item: the lease lapsed, another worker reclaimed it, or the item
// already reached a terminal state. The caller must abandon its result.
var ErrLeaseExpired = errors.New("queue: lease expired or item not owned by worker")

// exhaustedLeaseMessage is stamped on items failed by SweepExhausted.
const exhaustedLeaseMessage = "lease expired on final attempt"

// Store is the queue persistence contract. All methods are safe for
// concurrent use; ClaimBatch is a single atomic read-modify-write so two
// workers never receive the same item.
type Store interface {
	// Enqueue inserts new pending items.
	Enqueue(ctx context.Context, items []*models.QueueItem) error

	// ClaimBatch atomically claims up to batchSize eligible items for the
	// worker. Eligible: status pending, or claimed/processing with an
	// expired lease, and attempts below max_attempts. Each claimed item has
	// attempts incremented and a fresh lease stamped.
	ClaimBatch(ctx context.Context, workerID string, batchSize int, leaseDuration time.Duration) ([]*models.QueueItem, error)

	// MarkProcessing transitions a claimed item to processing. Guarded by
	// claim ownership; returns ErrLeaseExpired on a guard miss.
	MarkProcessing(ctx context.Context, itemID uuid.UUID, workerID string) error

	// CompleteItem terminally marks an item completed and binds the
	// persisted analysis query. Guarded; ErrLeaseExpired on a miss.
	CompleteItem(ctx context.Context, itemID uuid.UUID, workerID string, queryID uuid.UUID) error

	// FailItem terminally marks an item failed with error context.
	// Guarded; ErrLeaseExpired on a miss.
	FailItem(ctx context.Context, itemID uuid.UUID, workerID string, errMsg, errDetails string) error

	// ReleaseItem returns a non-terminally-failed item to pending so another
	// claim can pick it up. Guarded; ErrLeaseExpired on a miss.
	ReleaseItem(ctx context.Context, itemID uuid.UUID, workerID string) error

	// SweepExhausted terminally fails items whose lease expired on their
	// final attempt. Such items are ineligible for automatic reclaim, and
	// without the sweep a worker crash on the last attempt would leave them
	// claimed forever, invisible to ResetFailed. Returns the swept items.
	SweepExhausted(ctx context.Context) ([]*models.QueueItem, error)

	// ResetFailed returns a run's failed items to pending, clears their
	// error and claim fields, and extends max_attempts by extraAttempts on
	// top of the cumulative attempts count. Returns the number reset.
	ResetFailed(ctx context.Context, runID uuid.UUID, extraAttempts int) (int, error)

	// PendingCount reports how many of a run's items are not yet terminal.
	PendingCount(ctx context.Context, runID uuid.UUID) (int, error)

	// DeleteForRun removes a run's items once the run is terminal.
	DeleteForRun(ctx context.Context, runID uuid.UUID) (int, error)
}
