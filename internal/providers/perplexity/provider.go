package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
)

const (
	defaultModel   = "sonar"
	defaultBaseURL = "https://api.perplexity.ai"
)

// HTTPDoer is the subset of http.Client the provider needs. Injectable so
// tests can swap in a recorder.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider implements the AIProvider interface against the Perplexity chat
// completions API. Perplexity has no official Go SDK, so this talks to the
// OpenAI-compatible endpoint directly and reads the citations array it adds.
type Provider struct {
	apiKey      string
	model       string
	baseURL     string
	costService common.CostService
	httpClient  HTTPDoer
}

func NewProvider(cfg *config.Config, costService common.CostService) *Provider {
	return &Provider{
		apiKey:      cfg.PerplexityAPIKey,
		model:       defaultModel,
		baseURL:     defaultBaseURL,
		costService: costService,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// NewProviderWithClient is used by tests to inject a fake HTTP client.
func NewProviderWithClient(cfg *config.Config, costService common.CostService, client HTTPDoer, baseURL string) *Provider {
	p := NewProvider(cfg, costService)
	p.httpClient = client
	if baseURL != "" {
		p.baseURL = baseURL
	}
	return p
}

func (p *Provider) GetProviderName() string {
	return "perplexity"
}

// SupportsWebSearch returns true: every Perplexity completion runs a live
// web search and returns ranked citations.
func (p *Provider) SupportsWebSearch() bool {
	return true
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *Provider) RunQuery(ctx context.Context, prompt string) (*common.AIResponse, error) {
	fmt.Printf("[PerplexityProvider] 🚀 Running query against model %s\n", p.model)

	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Be precise and cite your sources."},
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &common.ProviderError{
			Platform: p.GetProviderName(),
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &common.ProviderError{
			Platform:   p.GetProviderName(),
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		// A 200 with an undecodable body is a malformed response, not a
		// platform outage: retrying won't help.
		return nil, &analysis.ExtractionError{
			Reason: "malformed response body",
			Err:    err,
		}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &common.ProviderError{
			Platform: p.GetProviderName(),
			Message:  "no response choices returned",
		}
	}

	fmt.Printf("[PerplexityProvider] ✅ Query completed with %d citations\n", len(chatResp.Citations))

	return &common.AIResponse{
		Response:     chatResp.Choices[0].Message.Content,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
		Cost:         p.costService.CalculateCost(p.GetProviderName(), p.model, chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, true),
		Citations:    chatResp.Citations,
		WebSearch:    true,
	}, nil
}
