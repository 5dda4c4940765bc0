// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Platform identifies which AI platform a query runs against
type Platform string

const (
	PlatformOpenAI     Platform = "openai"
	PlatformAnthropic  Platform = "anthropic"
	PlatformPerplexity Platform = "perplexity"
)

// RunStatus is the lifecycle state of an AnalysisRun. Transitions are monotone:
// pending -> running -> {completed, completed_with_errors, failed}.
type RunStatus string

const (
	RunStatusPending             RunStatus = "pending"
	RunStatusRunning             RunStatus = "running"
	RunStatusCompleted           RunStatus = "completed"
	RunStatusCompletedWithErrors RunStatus = "completed_with_errors"
	RunStatusFailed              RunStatus = "failed"
)

// IsTerminal reports whether a run can no longer change state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusCompletedWithErrors || s == RunStatusFailed
}

// ItemStatus is the lifecycle state of a QueueItem:
// pending -> claimed -> processing -> {completed, failed}.
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusClaimed    ItemStatus = "claimed"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Sentiment labels produced by the lexicon classifier
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// AnalysisRun represents one batch of brand questions submitted for a client
type AnalysisRun struct {
	AnalysisRunID    uuid.UUID  `db:"analysis_run_id" json:"analysis_run_id"`
	ClientID         uuid.UUID  `db:"client_id" json:"client_id"`
	Platforms        []string   `db:"-" json:"platforms"`
	Status           RunStatus  `db:"status" json:"status"`
	QueriesTotal     int        `db:"queries_total" json:"queries_total"`
	QueriesCompleted int        `db:"queries_completed" json:"queries_completed"`
	QueriesFailed    int        `db:"queries_failed" json:"queries_failed"`
	TotalCost        float64    `db:"total_cost" json:"total_cost"`
	ErrorMessage     *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// QueueItem is one claimable (keyword, intent, platform) unit of work.
// At most one worker holds a non-expired lease on an item at any time.
type QueueItem struct {
	QueueItemID     uuid.UUID  `db:"queue_item_id" json:"queue_item_id"`
	AnalysisRunID   uuid.UUID  `db:"analysis_run_id" json:"analysis_run_id"`
	QueryText       string     `db:"query_text" json:"query_text"`
	Keyword         string     `db:"keyword" json:"keyword"`
	Intent          string     `db:"intent" json:"intent"`
	Platform        Platform   `db:"platform" json:"platform"`
	Status          ItemStatus `db:"status" json:"status"`
	Attempts        int        `db:"attempts" json:"attempts"`
	MaxAttempts     int        `db:"max_attempts" json:"max_attempts"`
	ClaimedBy       *string    `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt       *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	LeaseExpiresAt  *time.Time `db:"lease_expires_at" json:"lease_expires_at,omitempty"`
	ErrorMessage    *string    `db:"error_message" json:"error_message,omitempty"`
	ErrorDetails    *string    `db:"error_details" json:"error_details,omitempty"`
	AnalysisQueryID *uuid.UUID `db:"analysis_query_id" json:"analysis_query_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// AnalysisQuery is the realized query issued to a platform and its outcome.
// Immutable once status is terminal; corrective re-runs create new records.
type AnalysisQuery struct {
	AnalysisQueryID uuid.UUID  `db:"analysis_query_id" json:"analysis_query_id"`
	AnalysisRunID   uuid.UUID  `db:"analysis_run_id" json:"analysis_run_id"`
	QueryID         string     `db:"query_id" json:"query_id"`
	QueryText       string     `db:"query_text" json:"query_text"`
	Keyword         string     `db:"keyword" json:"keyword"`
	Intent          string     `db:"intent" json:"intent"`
	Platform        Platform   `db:"platform" json:"platform"`
	ModelResponse   *string    `db:"model_response" json:"model_response,omitempty"`
	CitationCount   int        `db:"citation_count" json:"citation_count"`
	BrandMentioned  bool       `db:"brand_mentioned" json:"brand_mentioned"`
	BrandSentiment  *string    `db:"brand_sentiment" json:"brand_sentiment,omitempty"`
	CompetitorNames []string   `db:"-" json:"competitor_mentioned_names"`
	InputTokens     *int       `db:"input_tokens" json:"input_tokens,omitempty"`
	OutputTokens    *int       `db:"output_tokens" json:"output_tokens,omitempty"`
	TotalCost       *float64   `db:"total_cost" json:"total_cost,omitempty"`
	Status          string     `db:"status" json:"status"`
	ErrorMessage    *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Citation is one URL extracted from a response, bound to a query.
// Unique by (query, normalized url); Position reflects first-seen order.
type Citation struct {
	CitationID         uuid.UUID `db:"citation_id" json:"citation_id"`
	AnalysisQueryID    uuid.UUID `db:"analysis_query_id" json:"analysis_query_id"`
	URL                string    `db:"url" json:"url"`
	Domain             string    `db:"domain" json:"domain"`
	Position           int       `db:"position" json:"position"`
	IsClientDomain     bool      `db:"is_client_domain" json:"is_client_domain"`
	IsCompetitorDomain bool      `db:"is_competitor_domain" json:"is_competitor_domain"`
	CompetitorNames    []string  `db:"-" json:"competitor_names,omitempty"`
	PageSpeed          *float64  `db:"page_speed" json:"page_speed,omitempty"`
	DomainAuthority    *float64  `db:"domain_authority" json:"domain_authority,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Client is the brand whose visibility is being analyzed
type Client struct {
	ClientID uuid.UUID `db:"client_id" json:"client_id"`
	Name     string    `db:"name" json:"name"`
	Domain   string    `db:"domain" json:"domain"`
}

// Competitor is a name + domain pattern tracked for a client. Read-only to
// the pipeline.
type Competitor struct {
	CompetitorID  uuid.UUID `db:"competitor_id" json:"competitor_id"`
	ClientID      uuid.UUID `db:"client_id" json:"client_id"`
	Name          string    `db:"name" json:"name"`
	DomainPattern string    `db:"domain_pattern" json:"domain_pattern"`
}
