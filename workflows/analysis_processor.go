// workflows/analysis_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/services"
	"github.com/google/uuid"
)

// AnalysisProcessor wires the run orchestration into inngest triggers. The
// decision of when these fire lives in inngest; the processor only drives
// the claim/execute/complete cycle.
type AnalysisProcessor struct {
	orchestrator services.Orchestrator
	analytics    services.AnalyticsService
	client       inngestgo.Client
	cfg          *config.Config
}

func NewAnalysisProcessor(
	orchestrator services.Orchestrator,
	analytics services.AnalyticsService,
	cfg *config.Config,
) *AnalysisProcessor {
	return &AnalysisProcessor{
		orchestrator: orchestrator,
		analytics:    analytics,
		cfg:          cfg,
	}
}

func (p *AnalysisProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// RunSubmittedEvent is the input for a new analysis run
type RunSubmittedEvent struct {
	ClientID  string   `json:"client_id"`
	Keywords  []string `json:"keywords"`
	Intents   []string `json:"intents"`
	Platforms []string `json:"platforms"`
	Queries   []string `json:"queries,omitempty"`
}

// WorkerPollEvent triggers one worker cycle batch
type WorkerPollEvent struct {
	RunID string `json:"run_id,omitempty"`
}

// RetryFailedEvent re-opens a run's failed items
type RetryFailedEvent struct {
	RunID string `json:"run_id"`
}

// RunMetricsEvent requests the aggregate rollup for a finished run
type RunMetricsEvent struct {
	RunID string `json:"run_id"`
}

// ProcessRunSubmitted seeds a run and kicks off the first worker poll.
func (p *AnalysisProcessor) ProcessRunSubmitted() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "analysis-run-submitted",
			Name:    "Analysis Run - Seed Queue",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.run.submitted", nil),
		func(ctx context.Context, input inngestgo.Input[RunSubmittedEvent]) (any, error) {
			data := input.Event.Data
			fmt.Printf("[ProcessRunSubmitted] Starting analysis run for client: %s\n", data.ClientID)

			run, err := step.Run(ctx, "start-run", func(ctx context.Context) (interface{}, error) {
				clientID, err := uuid.Parse(data.ClientID)
				if err != nil {
					return nil, fmt.Errorf("invalid client ID: %w", err)
				}

				run, err := p.orchestrator.StartRun(ctx, &services.SubmitRunRequest{
					ClientID:  clientID,
					Keywords:  data.Keywords,
					Intents:   data.Intents,
					Platforms: data.Platforms,
					Queries:   data.Queries,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to start run: %w", err)
				}

				return map[string]interface{}{
					"run_id":        run.AnalysisRunID.String(),
					"queries_total": run.QueriesTotal,
				}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("step start-run failed: %w", err)
			}

			_, err = step.Run(ctx, "kick-worker", func(ctx context.Context) (interface{}, error) {
				_, sendErr := p.client.Send(ctx, inngestgo.Event{
					Name: "analysis.worker.poll",
					Data: map[string]interface{}{},
				})
				if sendErr != nil {
					return nil, fmt.Errorf("failed to send worker poll event: %w", sendErr)
				}
				return "worker poll sent", nil
			})
			if err != nil {
				return nil, fmt.Errorf("step kick-worker failed: %w", err)
			}

			return map[string]interface{}{
				"status": "seeded",
				"run":    run,
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create run-submitted function: %v\n", err)
	}
	return fn
}

// ProcessWorkerPoll runs claim/execute/complete cycles until the queue
// drains or the per-invocation budget is spent, then re-arms itself.
func (p *AnalysisProcessor) ProcessWorkerPoll() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "analysis-worker-poll",
			Name:    "Analysis Worker - Process Queue Batches",
			Retries: inngestgo.IntPtr(1),
		},
		inngestgo.EventTrigger("analysis.worker.poll", nil),
		func(ctx context.Context, input inngestgo.Input[WorkerPollEvent]) (any, error) {
			processed, err := step.Run(ctx, "run-worker-cycles", func(ctx context.Context) (int, error) {
				maxCycles := p.cfg.Worker.MaxCyclesPerInvoke
				if maxCycles <= 0 {
					maxCycles = 1
				}

				total := 0
				for cycle := 0; cycle < maxCycles; cycle++ {
					n, err := p.orchestrator.RunWorkerCycle(ctx)
					if err != nil {
						return total, fmt.Errorf("worker cycle failed: %w", err)
					}
					if n == 0 {
						break
					}
					total += n
				}
				return total, nil
			})
			if err != nil {
				return nil, fmt.Errorf("step run-worker-cycles failed: %w", err)
			}

			// A full invocation likely left work behind; hand the queue to
			// a fresh invocation instead of running unbounded here.
			if processed > 0 {
				_, err = step.Run(ctx, "rearm-worker", func(ctx context.Context) (interface{}, error) {
					_, sendErr := p.client.Send(ctx, inngestgo.Event{
						Name: "analysis.worker.poll",
						Data: map[string]interface{}{},
					})
					if sendErr != nil {
						return nil, fmt.Errorf("failed to re-arm worker: %w", sendErr)
					}
					return "re-armed", nil
				})
				if err != nil {
					return nil, fmt.Errorf("step rearm-worker failed: %w", err)
				}
			}

			return map[string]interface{}{
				"status":          "done",
				"items_processed": processed,
				"completed_at":    time.Now().UTC(),
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create worker-poll function: %v\n", err)
	}
	return fn
}

// ProcessRetryFailed performs the bulk failed-item reset for one run.
func (p *AnalysisProcessor) ProcessRetryFailed() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "analysis-run-retry-failed",
			Name:    "Analysis Run - Retry Failed Items",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.run.retry_failed", nil),
		func(ctx context.Context, input inngestgo.Input[RetryFailedEvent]) (any, error) {
			runIDStr := input.Event.Data.RunID

			count, err := step.Run(ctx, "reset-failed-items", func(ctx context.Context) (int, error) {
				runID, err := uuid.Parse(runIDStr)
				if err != nil {
					return 0, fmt.Errorf("invalid run ID: %w", err)
				}
				return p.orchestrator.RetryFailed(ctx, runID)
			})
			if err != nil {
				return nil, fmt.Errorf("step reset-failed-items failed: %w", err)
			}

			if count > 0 {
				_, err = step.Run(ctx, "kick-worker", func(ctx context.Context) (interface{}, error) {
					_, sendErr := p.client.Send(ctx, inngestgo.Event{
						Name: "analysis.worker.poll",
						Data: map[string]interface{}{},
					})
					if sendErr != nil {
						return nil, fmt.Errorf("failed to send worker poll event: %w", sendErr)
					}
					return "worker poll sent", nil
				})
				if err != nil {
					return nil, fmt.Errorf("step kick-worker failed: %w", err)
				}
			}

			return map[string]interface{}{
				"run_id":      runIDStr,
				"items_reset": count,
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create retry-failed function: %v\n", err)
	}
	return fn
}

// ProcessRunMetrics folds a run's persisted queries and citations into the
// visibility/citation rollup consumed by the dashboard.
func (p *AnalysisProcessor) ProcessRunMetrics() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "analysis-run-metrics",
			Name:    "Analysis Run - Compute Metrics",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.run.metrics.requested", nil),
		func(ctx context.Context, input inngestgo.Input[RunMetricsEvent]) (any, error) {
			runIDStr := input.Event.Data.RunID
			fmt.Printf("[ProcessRunMetrics] Computing metrics for run: %s\n", runIDStr)

			metrics, err := step.Run(ctx, "compute-metrics", func(ctx context.Context) (interface{}, error) {
				runID, err := uuid.Parse(runIDStr)
				if err != nil {
					return nil, fmt.Errorf("invalid run ID: %w", err)
				}
				return p.analytics.ComputeRunMetrics(ctx, runID)
			})
			if err != nil {
				return nil, fmt.Errorf("step compute-metrics failed: %w", err)
			}

			return map[string]interface{}{
				"run_id":  runIDStr,
				"metrics": metrics,
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create run-metrics function: %v\n", err)
	}
	return fn
}
