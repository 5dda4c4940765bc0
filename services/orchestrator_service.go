// services/orchestrator_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/brandlens-ai/brandlens-workflows/internal/queue"
	"github.com/brandlens-ai/brandlens-workflows/internal/repositories"
	"github.com/google/uuid"
)

type orchestratorService struct {
	repos       *RepositoryManager
	coordinator *queue.Coordinator
	executor    QueryExecutor
}

// NewOrchestrator creates the run orchestration service.
func NewOrchestrator(repos *RepositoryManager, coordinator *queue.Coordinator, executor QueryExecutor) Orchestrator {
	return &orchestratorService{
		repos:       repos,
		coordinator: coordinator,
		executor:    executor,
	}
}

// Query templates per search intent. Unknown intents fall through to the
// generic template.
var intentTemplates = map[string]string{
	"informational": "What is %s and how does it work?",
	"commercial":    "What are the best %s providers available today?",
	"comparison":    "How do the leading %s options compare?",
	"transactional": "Where can I buy or sign up for %s?",
}

const genericTemplate = "Tell me about %s and recommend the best options."

func queryTextFor(keyword, intent string) string {
	template, ok := intentTemplates[intent]
	if !ok {
		template = genericTemplate
	}
	return fmt.Sprintf(template, keyword)
}

func (s *orchestratorService) StartRun(ctx context.Context, req *SubmitRunRequest) (*models.AnalysisRun, error) {
	if len(req.Platforms) == 0 {
		return nil, &common.ConfigurationError{Message: "run has no platforms"}
	}

	// Client must exist before any work is enqueued.
	client, err := s.repos.ClientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &common.ConfigurationError{Message: fmt.Sprintf("client %s not found", req.ClientID)}
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}

	items := expandItems(req)
	if len(items) == 0 {
		return nil, &common.ConfigurationError{Message: "run expands to zero queries"}
	}

	run := &models.AnalysisRun{
		AnalysisRunID: uuid.New(),
		ClientID:      client.ClientID,
		Platforms:     req.Platforms,
		Status:        models.RunStatusPending,
		QueriesTotal:  len(items),
	}
	if err := s.repos.RunRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	for _, item := range items {
		item.AnalysisRunID = run.AnalysisRunID
	}
	if err := s.coordinator.Seed(ctx, items); err != nil {
		// Setup failure after creation is fatal to the whole run.
		msg := err.Error()
		if finErr := s.repos.RunRepo.Finalize(ctx, run.AnalysisRunID, models.RunStatusFailed, &msg); finErr != nil {
			fmt.Printf("[Orchestrator] ⚠️ Failed to finalize run after seed error: %v\n", finErr)
		}
		return nil, fmt.Errorf("failed to seed run %s: %w", run.AnalysisRunID, err)
	}

	fmt.Printf("[Orchestrator] 🚀 Run %s started with %d items across %d platforms\n",
		run.AnalysisRunID, len(items), len(req.Platforms))
	return run, nil
}

// expandItems turns the request into concrete queue items: the explicit
// query list when given, otherwise the keywords x intents cross-product,
// fanned out per platform either way.
func expandItems(req *SubmitRunRequest) []*models.QueueItem {
	var items []*models.QueueItem

	addItem := func(queryText, keyword, intent, platform string) {
		items = append(items, &models.QueueItem{
			QueryText: queryText,
			Keyword:   keyword,
			Intent:    intent,
			Platform:  models.Platform(platform),
			Status:    models.ItemStatusPending,
		})
	}

	if len(req.Queries) > 0 {
		for _, query := range req.Queries {
			for _, platform := range req.Platforms {
				addItem(query, "", "", platform)
			}
		}
		return items
	}

	for _, keyword := range req.Keywords {
		for _, intent := range req.Intents {
			for _, platform := range req.Platforms {
				addItem(queryTextFor(keyword, intent), keyword, intent, platform)
			}
		}
	}
	return items
}

// runContext caches per-run client/competitor lookups within one cycle.
type runContext struct {
	run      *models.AnalysisRun
	queryCtx *QueryContext
}

func (s *orchestratorService) loadRunContext(ctx context.Context, cache map[uuid.UUID]*runContext, runID uuid.UUID) (*runContext, error) {
	if rc, ok := cache[runID]; ok {
		return rc, nil
	}

	run, err := s.repos.RunRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	client, err := s.repos.ClientRepo.GetByID(ctx, run.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client for run %s: %w", runID, err)
	}

	competitors, err := s.repos.ClientRepo.ListCompetitors(ctx, run.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitors for run %s: %w", runID, err)
	}

	if err := s.repos.RunRepo.MarkRunning(ctx, runID); err != nil {
		return nil, err
	}

	rc := &runContext{
		run:      run,
		queryCtx: &QueryContext{Client: client, Competitors: competitors},
	}
	cache[runID] = rc
	return rc, nil
}

func (s *orchestratorService) RunWorkerCycle(ctx context.Context) (int, error) {
	if err := s.sweepExhausted(ctx); err != nil {
		return 0, err
	}

	items, err := s.coordinator.Claim(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	cache := make(map[uuid.UUID]*runContext)
	processed := 0

	for _, item := range items {
		// A single item's failure never aborts the cycle.
		if err := s.processItem(ctx, cache, item); err != nil {
			fmt.Printf("[Orchestrator] ⚠️ Item %s: %v\n", item.QueueItemID, err)
		}
		processed++
	}

	return processed, nil
}

// sweepExhausted fails items stranded by a worker crash on their final
// attempt and records the failures on their runs. Without this, such an
// item stays claimed forever and its run never finalizes.
func (s *orchestratorService) sweepExhausted(ctx context.Context) error {
	swept, err := s.coordinator.SweepExhausted(ctx)
	if err != nil {
		return err
	}

	for _, item := range swept {
		if err := s.repos.RunRepo.IncrementProgress(ctx, item.AnalysisRunID, 0, 1, 0); err != nil {
			fmt.Printf("[Orchestrator] ⚠️ Failed to record swept failure for run %s: %v\n", item.AnalysisRunID, err)
			continue
		}
		if err := s.finalizeIfDone(ctx, item.AnalysisRunID); err != nil {
			fmt.Printf("[Orchestrator] ⚠️ Failed to finalize run %s after sweep: %v\n", item.AnalysisRunID, err)
		}
	}
	return nil
}

func (s *orchestratorService) processItem(ctx context.Context, cache map[uuid.UUID]*runContext, item *models.QueueItem) error {
	rc, err := s.loadRunContext(ctx, cache, item.AnalysisRunID)
	if err != nil {
		// Run setup is broken (e.g. client deleted): fatal to the run.
		s.failItemAndRun(ctx, item, err)
		return err
	}

	if err := s.coordinator.MarkProcessing(ctx, item.QueueItemID); err != nil {
		if errors.Is(err, queue.ErrLeaseExpired) {
			return nil // reclaimed by someone else, nothing to do
		}
		return err
	}

	outcome, err := s.executor.Execute(ctx, item, rc.queryCtx)
	if err != nil {
		var confErr *common.ConfigurationError
		if errors.As(err, &confErr) {
			s.failItemAndRun(ctx, item, err)
			return err
		}

		// Provider failures are retryable until the attempts budget is
		// spent; only the final attempt fails the item terminally.
		if item.Attempts < item.MaxAttempts {
			fmt.Printf("[Orchestrator] 🔄 Releasing item %s for retry (attempt %d/%d): %v\n",
				item.QueueItemID, item.Attempts, item.MaxAttempts, err)
			if relErr := s.coordinator.Release(ctx, item.QueueItemID); relErr != nil && !errors.Is(relErr, queue.ErrLeaseExpired) {
				return relErr
			}
			return nil
		}
		return s.recordItemFailure(ctx, item, err)
	}

	return s.recordItemSuccess(ctx, item, outcome)
}

// recordItemSuccess persists the outcome, then writes the guarded terminal
// state. A lease miss abandons the persisted result.
func (s *orchestratorService) recordItemSuccess(ctx context.Context, item *models.QueueItem, outcome *QueryOutcome) error {
	// A worker that crashed after persisting but before completing leaves an
	// orphan row keyed to this item; purge it so the reclaim doesn't
	// double-count the item in analytics.
	if err := s.repos.QueryRepo.DeleteByQueryID(ctx, item.QueueItemID.String()); err != nil {
		return fmt.Errorf("failed to purge orphan query rows: %w", err)
	}

	if err := s.repos.QueryRepo.Create(ctx, outcome.Query); err != nil {
		return s.recordItemFailure(ctx, item, fmt.Errorf("failed to persist query: %w", err))
	}
	if err := s.repos.QueryRepo.SaveCompetitorMentions(ctx, outcome.Query.AnalysisQueryID, outcome.Query.CompetitorNames); err != nil {
		return fmt.Errorf("failed to persist competitor mentions: %w", err)
	}
	if err := s.repos.CitationRepo.CreateBatch(ctx, outcome.Citations); err != nil {
		return fmt.Errorf("failed to persist citations: %w", err)
	}

	if err := s.coordinator.Complete(ctx, item.QueueItemID, outcome.Query.AnalysisQueryID); err != nil {
		if errors.Is(err, queue.ErrLeaseExpired) {
			// Another worker owns the item now; abandon our result.
			fmt.Printf("[Orchestrator] ⏰ Lease lost on item %s, abandoning result\n", item.QueueItemID)
			if delErr := s.repos.QueryRepo.Delete(ctx, outcome.Query.AnalysisQueryID); delErr != nil {
				fmt.Printf("[Orchestrator] ⚠️ Failed to remove abandoned query: %v\n", delErr)
			}
			return nil
		}
		return err
	}

	cost := 0.0
	if outcome.Query.TotalCost != nil {
		cost = *outcome.Query.TotalCost
	}
	if err := s.repos.RunRepo.IncrementProgress(ctx, item.AnalysisRunID, 1, 0, cost); err != nil {
		return err
	}

	return s.finalizeIfDone(ctx, item.AnalysisRunID)
}

func (s *orchestratorService) recordItemFailure(ctx context.Context, item *models.QueueItem, itemErr error) error {
	var details string
	var provErr *common.ProviderError
	if errors.As(itemErr, &provErr) && provErr.StatusCode != 0 {
		details = fmt.Sprintf("status %d", provErr.StatusCode)
	}

	if err := s.coordinator.Fail(ctx, item.QueueItemID, itemErr.Error(), details); err != nil {
		if errors.Is(err, queue.ErrLeaseExpired) {
			return nil
		}
		return err
	}

	if err := s.repos.RunRepo.IncrementProgress(ctx, item.AnalysisRunID, 0, 1, 0); err != nil {
		return err
	}

	if err := s.finalizeIfDone(ctx, item.AnalysisRunID); err != nil {
		return err
	}
	return itemErr
}

// failItemAndRun handles run-level configuration failures: the item is
// terminally failed and the whole run flips to failed.
func (s *orchestratorService) failItemAndRun(ctx context.Context, item *models.QueueItem, cause error) {
	if err := s.coordinator.Fail(ctx, item.QueueItemID, cause.Error(), ""); err != nil && !errors.Is(err, queue.ErrLeaseExpired) {
		fmt.Printf("[Orchestrator] ⚠️ Failed to fail item %s: %v\n", item.QueueItemID, err)
	}
	if err := s.repos.RunRepo.IncrementProgress(ctx, item.AnalysisRunID, 0, 1, 0); err != nil {
		fmt.Printf("[Orchestrator] ⚠️ Failed to record failure for run %s: %v\n", item.AnalysisRunID, err)
	}

	msg := cause.Error()
	if err := s.repos.RunRepo.Finalize(ctx, item.AnalysisRunID, models.RunStatusFailed, &msg); err != nil {
		fmt.Printf("[Orchestrator] ⚠️ Failed to finalize run %s: %v\n", item.AnalysisRunID, err)
	}
}

// finalizeIfDone flips a run to its terminal status once every item has
// resolved: completed with zero failures, completed_with_errors otherwise.
func (s *orchestratorService) finalizeIfDone(ctx context.Context, runID uuid.UUID) error {
	run, err := s.repos.RunRepo.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return nil
	}
	if run.QueriesCompleted+run.QueriesFailed < run.QueriesTotal {
		return nil
	}

	status := models.RunStatusCompleted
	var errMsg *string
	if run.QueriesFailed > 0 {
		status = models.RunStatusCompletedWithErrors
		msg := fmt.Sprintf("%d of %d queries failed", run.QueriesFailed, run.QueriesTotal)
		errMsg = &msg
	}

	if err := s.repos.RunRepo.Finalize(ctx, runID, status, errMsg); err != nil {
		return err
	}
	fmt.Printf("[Orchestrator] 🏁 Run %s finalized as %s\n", runID, status)

	// Fully clean runs no longer need their queue rows. Runs with failures
	// keep them so a retry-failed reset has something to re-open.
	if status == models.RunStatusCompleted {
		if _, err := s.coordinator.Archive(ctx, runID); err != nil {
			fmt.Printf("[Orchestrator] ⚠️ Failed to archive queue rows for run %s: %v\n", runID, err)
		}
	}
	return nil
}

func (s *orchestratorService) RetryFailed(ctx context.Context, runID uuid.UUID) (int, error) {
	// Stranded final-attempt items must become failed before the reset can
	// see them.
	if err := s.sweepExhausted(ctx); err != nil {
		return 0, err
	}

	count, err := s.coordinator.RetryFailed(ctx, runID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.repos.RunRepo.ReopenForRetry(ctx, runID, count); err != nil {
		return count, err
	}

	fmt.Printf("[Orchestrator] 🔁 Run %s reopened with %d retried items\n", runID, count)
	return count, nil
}
