// internal/queue/coordinator.go
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

// Coordinator binds a Store to one worker identity and its tuning. Claim
// conflicts never surface to callers: a contended claim simply returns a
// smaller (possibly empty) batch.
type Coordinator struct {
	store       Store
	workerID    string
	batchSize   int
	lease       time.Duration
	maxAttempts int
}

// NewCoordinator creates a queue coordinator with a unique worker identity.
func NewCoordinator(store Store, batchSize, leaseSeconds, maxAttempts int) *Coordinator {
	return &Coordinator{
		store:       store,
		workerID:    fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		batchSize:   batchSize,
		lease:       time.Duration(leaseSeconds) * time.Second,
		maxAttempts: maxAttempts,
	}
}

// WorkerID returns this coordinator's worker identity.
func (c *Coordinator) WorkerID() string {
	return c.workerID
}

// Seed enqueues the expanded work items for a run.
func (c *Coordinator) Seed(ctx context.Context, items []*models.QueueItem) error {
	for _, item := range items {
		if item.MaxAttempts == 0 {
			item.MaxAttempts = c.maxAttempts
		}
	}

	if err := c.store.Enqueue(ctx, items); err != nil {
		return fmt.Errorf("failed to seed queue: %w", err)
	}

	fmt.Printf("[QueueCoordinator] 📥 Seeded %d items\n", len(items))
	return nil
}

// Claim atomically claims the next batch of work for this worker.
func (c *Coordinator) Claim(ctx context.Context) ([]*models.QueueItem, error) {
	items, err := c.store.ClaimBatch(ctx, c.workerID, c.batchSize, c.lease)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}

	if len(items) > 0 {
		fmt.Printf("[QueueCoordinator] 🔒 Worker %s claimed %d items\n", c.workerID, len(items))
	}
	return items, nil
}

// SweepExhausted fails items stranded by a worker crash on their final
// attempt, so ResetFailed can reach them and their runs can finalize.
func (c *Coordinator) SweepExhausted(ctx context.Context) ([]*models.QueueItem, error) {
	items, err := c.store.SweepExhausted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep exhausted items: %w", err)
	}

	if len(items) > 0 {
		fmt.Printf("[QueueCoordinator] 🧹 Swept %d exhausted items to failed\n", len(items))
	}
	return items, nil
}

// MarkProcessing flags a claimed item as actively executing.
func (c *Coordinator) MarkProcessing(ctx context.Context, itemID uuid.UUID) error {
	return c.store.MarkProcessing(ctx, itemID, c.workerID)
}

// Complete terminally records a successful item with its persisted query.
func (c *Coordinator) Complete(ctx context.Context, itemID, queryID uuid.UUID) error {
	return c.store.CompleteItem(ctx, itemID, c.workerID, queryID)
}

// Fail terminally records a failed item with its error context.
func (c *Coordinator) Fail(ctx context.Context, itemID uuid.UUID, errMsg, errDetails string) error {
	return c.store.FailItem(ctx, itemID, c.workerID, errMsg, errDetails)
}

// Release returns an item to pending after a transient failure.
func (c *Coordinator) Release(ctx context.Context, itemID uuid.UUID) error {
	return c.store.ReleaseItem(ctx, itemID, c.workerID)
}

// RetryFailed re-opens a run's failed items with a fresh attempts window.
func (c *Coordinator) RetryFailed(ctx context.Context, runID uuid.UUID) (int, error) {
	count, err := c.store.ResetFailed(ctx, runID, c.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("failed to retry failed items: %w", err)
	}

	fmt.Printf("[QueueCoordinator] 🔁 Reset %d failed items for run %s\n", count, runID)
	return count, nil
}

// Outstanding reports how many of a run's items are not yet terminal.
func (c *Coordinator) Outstanding(ctx context.Context, runID uuid.UUID) (int, error) {
	return c.store.PendingCount(ctx, runID)
}

// Archive drops a terminal run's queue rows.
func (c *Coordinator) Archive(ctx context.Context, runID uuid.UUID) (int, error) {
	return c.store.DeleteForRun(ctx, runID)
}
