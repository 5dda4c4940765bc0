// internal/queue/memory.go
package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
)

// memoryStore is a mutex-guarded Store used by tests and local development.
// It mirrors the Postgres store's claim semantics exactly.
type memoryStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.QueueItem
	now   func() time.Time
}

// NewMemoryStore creates an in-memory queue store.
func NewMemoryStore() Store {
	return newMemoryStore(time.Now)
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{
		items: make(map[uuid.UUID]*models.QueueItem),
		now:   now,
	}
}

func (s *memoryStore) Enqueue(ctx context.Context, items []*models.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, item := range items {
		stored := *item
		if stored.QueueItemID == uuid.Nil {
			stored.QueueItemID = uuid.New()
		}
		if stored.Status == "" {
			stored.Status = models.ItemStatusPending
		}
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		s.items[stored.QueueItemID] = &stored
		item.QueueItemID = stored.QueueItemID
	}
	return nil
}

func claimable(item *models.QueueItem, now time.Time) bool {
	if item.Attempts >= item.MaxAttempts {
		return false
	}
	switch item.Status {
	case models.ItemStatusPending:
		return true
	case models.ItemStatusClaimed, models.ItemStatusProcessing:
		// Crashed worker: an expired lease makes the item pending again.
		return item.LeaseExpiresAt != nil && !item.LeaseExpiresAt.After(now)
	}
	return false
}

// owned reports whether the worker still holds a live claim on the item.
func owned(item *models.QueueItem, workerID string, now time.Time) bool {
	if item.ClaimedBy == nil || *item.ClaimedBy != workerID {
		return false
	}
	if item.Status != models.ItemStatusClaimed && item.Status != models.ItemStatusProcessing {
		return false
	}
	return item.LeaseExpiresAt != nil && item.LeaseExpiresAt.After(now)
}

func (s *memoryStore) ClaimBatch(ctx context.Context, workerID string, batchSize int, leaseDuration time.Duration) ([]*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	var eligible []*models.QueueItem
	for _, item := range s.items {
		if claimable(item, now) {
			eligible = append(eligible, item)
		}
	}

	// Oldest first, ID as tiebreaker, matching the SQL store's ordering.
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].QueueItemID.String() < eligible[j].QueueItemID.String()
	})

	if len(eligible) > batchSize {
		eligible = eligible[:batchSize]
	}

	claimed := make([]*models.QueueItem, 0, len(eligible))
	expires := now.Add(leaseDuration)
	for _, item := range eligible {
		worker := workerID
		claimedAt := now
		leaseAt := expires

		item.Status = models.ItemStatusClaimed
		item.Attempts++
		item.ClaimedBy = &worker
		item.ClaimedAt = &claimedAt
		item.LeaseExpiresAt = &leaseAt
		item.UpdatedAt = now

		snapshot := *item
		claimed = append(claimed, &snapshot)
	}

	return claimed, nil
}

func (s *memoryStore) MarkProcessing(ctx context.Context, itemID uuid.UUID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item, ok := s.items[itemID]
	if !ok || !owned(item, workerID, now) {
		return ErrLeaseExpired
	}

	item.Status = models.ItemStatusProcessing
	item.UpdatedAt = now
	return nil
}

func (s *memoryStore) CompleteItem(ctx context.Context, itemID uuid.UUID, workerID string, queryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item, ok := s.items[itemID]
	if !ok || !owned(item, workerID, now) {
		return ErrLeaseExpired
	}

	qid := queryID
	item.Status = models.ItemStatusCompleted
	item.AnalysisQueryID = &qid
	item.LeaseExpiresAt = nil
	item.UpdatedAt = now
	return nil
}

func (s *memoryStore) FailItem(ctx context.Context, itemID uuid.UUID, workerID string, errMsg, errDetails string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item, ok := s.items[itemID]
	if !ok || !owned(item, workerID, now) {
		return ErrLeaseExpired
	}

	item.Status = models.ItemStatusFailed
	item.ErrorMessage = &errMsg
	if errDetails != "" {
		item.ErrorDetails = &errDetails
	}
	item.LeaseExpiresAt = nil
	item.UpdatedAt = now
	return nil
}

func (s *memoryStore) ReleaseItem(ctx context.Context, itemID uuid.UUID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item, ok := s.items[itemID]
	if !ok || !owned(item, workerID, now) {
		return ErrLeaseExpired
	}

	item.Status = models.ItemStatusPending
	item.ClaimedBy = nil
	item.ClaimedAt = nil
	item.LeaseExpiresAt = nil
	item.UpdatedAt = now
	return nil
}

func (s *memoryStore) SweepExhausted(ctx context.Context) ([]*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var swept []*models.QueueItem
	for _, item := range s.items {
		if item.Status != models.ItemStatusClaimed && item.Status != models.ItemStatusProcessing {
			continue
		}
		if item.LeaseExpiresAt == nil || item.LeaseExpiresAt.After(now) {
			continue
		}
		if item.Attempts < item.MaxAttempts {
			continue // still reclaimable through ClaimBatch
		}

		msg := exhaustedLeaseMessage
		item.Status = models.ItemStatusFailed
		item.ErrorMessage = &msg
		item.LeaseExpiresAt = nil
		item.UpdatedAt = now

		snapshot := *item
		swept = append(swept, &snapshot)
	}
	return swept, nil
}

func (s *memoryStore) ResetFailed(ctx context.Context, runID uuid.UUID, extraAttempts int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, item := range s.items {
		if item.AnalysisRunID != runID || item.Status != models.ItemStatusFailed {
			continue
		}

		// Attempts stay cumulative: each manual reset grants exactly one
		// more bounded retry window.
		item.Status = models.ItemStatusPending
		item.MaxAttempts = item.Attempts + extraAttempts
		item.ErrorMessage = nil
		item.ErrorDetails = nil
		item.ClaimedBy = nil
		item.ClaimedAt = nil
		item.LeaseExpiresAt = nil
		item.UpdatedAt = now
		count++
	}
	return count, nil
}

func (s *memoryStore) PendingCount(ctx context.Context, runID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		if item.AnalysisRunID != runID {
			continue
		}
		switch item.Status {
		case models.ItemStatusPending, models.ItemStatusClaimed, models.ItemStatusProcessing:
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) DeleteForRun(ctx context.Context, runID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, item := range s.items {
		if item.AnalysisRunID == runID {
			delete(s.items, id)
			count++
		}
	}
	return count, nil
}

// getItem returns a snapshot of one item, for tests.
func (s *memoryStore) getItem(itemID uuid.UUID) (models.QueueItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return models.QueueItem{}, false
	}
	return *item, true
}
