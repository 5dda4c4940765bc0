// main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"

	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/database"
	"github.com/brandlens-ai/brandlens-workflows/internal/queue"
	"github.com/brandlens-ai/brandlens-workflows/services"
	"github.com/brandlens-ai/brandlens-workflows/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		} else {
			log.Printf("Loaded dev.env file for local development")
		}
	} else {
		log.Printf("Loaded .env file")
	}

	cfg := config.Load()

	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Database Host: %s", cfg.Database.Host)
	log.Printf("Database Name: %s", cfg.Database.Name)

	if cfg.OpenAIAPIKey == "" {
		log.Printf("WARNING: OpenAI API key not loaded!")
	} else {
		log.Printf("OpenAI API key loaded (length: %d)", len(cfg.OpenAIAPIKey))
	}
	if cfg.AnthropicAPIKey == "" {
		log.Printf("WARNING: Anthropic API key not loaded!")
	} else {
		log.Printf("Anthropic API key loaded (length: %d)", len(cfg.AnthropicAPIKey))
	}
	if cfg.PerplexityAPIKey == "" {
		log.Printf("WARNING: Perplexity API key not loaded!")
	} else {
		log.Printf("Perplexity API key loaded (length: %d)", len(cfg.PerplexityAPIKey))
	}

	ctx := context.Background()
	dbClient, err := database.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	log.Printf("Successfully connected to database")

	repoManager := services.NewRepositoryManager(dbClient)
	log.Printf("Repository manager initialized")

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Printf("Running in development mode - signing key verification disabled")
	}

	// Queue coordinator owns the claim/lease protocol over Postgres
	store := queue.NewPostgresStore(dbClient.DB)
	coordinator := queue.NewCoordinator(store, cfg.Worker.BatchSize, cfg.Worker.LeaseSeconds, cfg.Worker.MaxAttempts)
	log.Printf("Queue coordinator initialized (batch=%d, lease=%ds, max_attempts=%d)",
		cfg.Worker.BatchSize, cfg.Worker.LeaseSeconds, cfg.Worker.MaxAttempts)

	// Initialize services with repository manager and proper dependencies
	costService := services.NewCostService()
	queryExecutor := services.NewQueryExecutor(cfg, costService)
	orchestrator := services.NewOrchestrator(repoManager, coordinator, queryExecutor)
	analyticsService := services.NewAnalyticsService(repoManager)
	log.Printf("Services initialized")

	// Create Inngest client
	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "brandlens-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatalf("Failed to create Inngest client: %v", err)
	}

	// Initialize and register workflows
	log.Printf("Initializing and registering workflows...")

	analysisProcessor := workflows.NewAnalysisProcessor(orchestrator, analyticsService, cfg)
	analysisProcessor.SetClient(client)
	analysisProcessor.ProcessRunSubmitted()
	analysisProcessor.ProcessWorkerPoll()
	analysisProcessor.ProcessRetryFailed()
	analysisProcessor.ProcessRunMetrics()

	log.Printf("All processors initialized and functions registered")

	log.Printf("Starting Inngest client...")
	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)
	log.Printf("Inngest client started successfully...")

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"brandlens-workflows","status":"running"}`))
	})

	// Health check verifies the database connection too
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := dbClient.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(fmt.Sprintf(`{"status":"unhealthy","error":"%v"}`, err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req workflows.RunSubmittedEvent
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(fmt.Sprintf(`{"error":"invalid request body: %v"}`, err)))
			return
		}

		evt := inngestgo.Event{
			Name: "analysis.run.submitted",
			Data: map[string]interface{}{
				"client_id": req.ClientID,
				"keywords":  req.Keywords,
				"intents":   req.Intents,
				"platforms": req.Platforms,
				"queries":   req.Queries,
			},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Printf("Failed to send test event: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		log.Printf("Test event sent successfully: %+v", result)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","message":"Analysis run submitted for client %s","event_ids":["%s"]}`, req.ClientID, result)))
	})

	// Start server
	port := cfg.Port
	log.Printf("Starting BrandLens Workflows service on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}
