package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return NewPostgresStore(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestPostgresClaimBatchQuery(t *testing.T) {
	store, mock := newMockStore(t)

	itemID := uuid.New()
	runID := uuid.New()
	worker := "worker-abc"
	now := time.Now()
	lease := now.Add(time.Minute)

	rows := sqlmock.NewRows([]string{
		"queue_item_id", "analysis_run_id", "query_text", "keyword", "intent", "platform",
		"status", "attempts", "max_attempts", "claimed_by", "claimed_at", "lease_expires_at",
		"error_message", "error_details", "analysis_query_id", "created_at", "updated_at",
	}).AddRow(
		itemID, runID, "best crm tools", "crm", "commercial", "openai",
		"claimed", 1, 3, worker, now, lease,
		nil, nil, nil, now, now,
	)

	// The claim must be a locked-subselect UPDATE so concurrent workers
	// skip each other's rows.
	mock.ExpectQuery(`UPDATE queue_items SET(.|\n)+FOR UPDATE SKIP LOCKED(.|\n)+RETURNING`).
		WithArgs(worker, 60, 5).
		WillReturnRows(rows)

	items, err := store.ClaimBatch(context.Background(), worker, 5, time.Minute)
	if err != nil {
		t.Fatalf("ClaimBatch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("claimed %d items, want 1", len(items))
	}
	if items[0].QueueItemID != itemID {
		t.Errorf("QueueItemID = %s, want %s", items[0].QueueItemID, itemID)
	}
	if items[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", items[0].Attempts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresCompleteItemGuard(t *testing.T) {
	store, mock := newMockStore(t)

	itemID := uuid.New()
	queryID := uuid.New()

	// Guard hit: one row updated.
	mock.ExpectExec(`UPDATE queue_items SET(.|\n)+status = 'completed'(.|\n)+lease_expires_at > NOW\(\)`).
		WithArgs(itemID, "w1", queryID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.CompleteItem(context.Background(), itemID, "w1", queryID); err != nil {
		t.Fatalf("CompleteItem() error = %v", err)
	}

	// Guard miss: zero rows means the lease lapsed or ownership changed.
	mock.ExpectExec(`UPDATE queue_items SET(.|\n)+status = 'completed'`).
		WithArgs(itemID, "w1", queryID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.CompleteItem(context.Background(), itemID, "w1", queryID)
	if !errors.Is(err, ErrLeaseExpired) {
		t.Errorf("CompleteItem() on guard miss = %v, want ErrLeaseExpired", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresFailItemGuardMiss(t *testing.T) {
	store, mock := newMockStore(t)

	itemID := uuid.New()
	mock.ExpectExec(`UPDATE queue_items SET(.|\n)+status = 'failed'`).
		WithArgs(itemID, "w1", "provider error", "status 500").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.FailItem(context.Background(), itemID, "w1", "provider error", "status 500")
	if !errors.Is(err, ErrLeaseExpired) {
		t.Errorf("FailItem() on guard miss = %v, want ErrLeaseExpired", err)
	}
}

func TestPostgresSweepExhausted(t *testing.T) {
	store, mock := newMockStore(t)

	itemID := uuid.New()
	runID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"queue_item_id", "analysis_run_id", "query_text", "keyword", "intent", "platform",
		"status", "attempts", "max_attempts", "claimed_by", "claimed_at", "lease_expires_at",
		"error_message", "error_details", "analysis_query_id", "created_at", "updated_at",
	}).AddRow(
		itemID, runID, "best crm tools", "crm", "commercial", "openai",
		"failed", 1, 1, "w1", now, nil,
		exhaustedLeaseMessage, nil, nil, now, now,
	)

	// Only expired leases at the attempts ceiling may be swept to failed.
	mock.ExpectQuery(`UPDATE queue_items SET(.|\n)+status = 'failed'(.|\n)+lease_expires_at <= NOW\(\)(.|\n)+attempts >= max_attempts(.|\n)+RETURNING`).
		WithArgs(exhaustedLeaseMessage).
		WillReturnRows(rows)

	swept, err := store.SweepExhausted(context.Background())
	if err != nil {
		t.Fatalf("SweepExhausted() error = %v", err)
	}
	if len(swept) != 1 {
		t.Fatalf("swept %d items, want 1", len(swept))
	}
	if swept[0].AnalysisRunID != runID {
		t.Errorf("AnalysisRunID = %s, want %s", swept[0].AnalysisRunID, runID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresResetFailed(t *testing.T) {
	store, mock := newMockStore(t)

	runID := uuid.New()
	mock.ExpectExec(`UPDATE queue_items SET(.|\n)+max_attempts = attempts \+ \$2(.|\n)+status = 'failed'`).
		WithArgs(runID, 3).
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := store.ResetFailed(context.Background(), runID, 3)
	if err != nil {
		t.Fatalf("ResetFailed() error = %v", err)
	}
	if count != 4 {
		t.Errorf("ResetFailed() = %d, want 4", count)
	}
}

func TestPostgresPendingCount(t *testing.T) {
	store, mock := newMockStore(t)

	runID := uuid.New()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM queue_items`).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.PendingCount(context.Background(), runID)
	if err != nil {
		t.Fatalf("PendingCount() error = %v", err)
	}
	if count != 7 {
		t.Errorf("PendingCount() = %d, want 7", count)
	}
}
