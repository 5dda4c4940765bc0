package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func newMockRepo(t *testing.T) (AnalysisRunRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return NewAnalysisRunRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestRunRepoGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)

	runID := uuid.New()
	clientID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"analysis_run_id", "client_id", "status", "queries_total", "queries_completed",
		"queries_failed", "total_cost", "error_message", "created_at", "updated_at", "completed_at",
	}).AddRow(runID, clientID, "running", 12, 5, 1, 0.042, nil, now, now, nil)

	mock.ExpectQuery(`SELECT(.|\n)+FROM analysis_runs`).
		WithArgs(runID).
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if run.Status != models.RunStatusRunning {
		t.Errorf("Status = %s, want running", run.Status)
	}
	if run.QueriesTotal != 12 || run.QueriesCompleted != 5 || run.QueriesFailed != 1 {
		t.Errorf("counters = %d/%d/%d, want 12/5/1", run.QueriesTotal, run.QueriesCompleted, run.QueriesFailed)
	}
}

func TestRunRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	runID := uuid.New()
	mock.ExpectQuery(`SELECT(.|\n)+FROM analysis_runs`).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"analysis_run_id"}))

	_, err := repo.GetByID(context.Background(), runID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() = %v, want ErrNotFound", err)
	}
}

func TestRunRepoIncrementProgress(t *testing.T) {
	repo, mock := newMockRepo(t)

	runID := uuid.New()
	mock.ExpectExec(`UPDATE analysis_runs SET(.|\n)+queries_completed = queries_completed \+ \$2`).
		WithArgs(runID, 1, 0, 0.0015).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.IncrementProgress(context.Background(), runID, 1, 0, 0.0015); err != nil {
		t.Fatalf("IncrementProgress() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunRepoFinalizeGuard(t *testing.T) {
	repo, mock := newMockRepo(t)

	runID := uuid.New()

	// Finalize only fires from a non-terminal status; a zero row count
	// (already terminal) is not an error.
	mock.ExpectExec(`UPDATE analysis_runs SET(.|\n)+status IN \('pending', 'running'\)`).
		WithArgs(runID, models.RunStatusCompleted, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Finalize(context.Background(), runID, models.RunStatusCompleted, nil); err != nil {
		t.Fatalf("Finalize() on already-terminal run error = %v", err)
	}
}
