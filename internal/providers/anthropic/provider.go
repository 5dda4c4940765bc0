package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
)

const defaultModel = "claude-sonnet-4-20250514"

// Provider implements the AIProvider interface against the Anthropic
// messages API. The SDK has no structured-output mode, so the JSON shape
// is requested through the prompt and parsed leniently.
type Provider struct {
	client      *anthropic.Client
	model       string
	costService common.CostService
}

func NewProvider(cfg *config.Config, costService common.CostService) *Provider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	return &Provider{
		client:      &client,
		model:       defaultModel,
		costService: costService,
	}
}

func (p *Provider) GetProviderName() string {
	return "anthropic"
}

func (p *Provider) SupportsWebSearch() bool {
	return false
}

func (p *Provider) RunQuery(ctx context.Context, prompt string) (*common.AIResponse, error) {
	fmt.Printf("[AnthropicProvider] 🚀 Running query against model %s\n", p.model)

	structuredPrompt := fmt.Sprintf(`You are a knowledgeable assistant providing accurate answers with sources.

Please answer the following question, returning ONLY a valid JSON object with this structure:

{
  "answer": "Your detailed answer here",
  "sources": ["https://example.com/source-1", "https://example.com/source-2"]
}

List the source URLs you relied on in the sources array, most relevant first.

Question: %s

Remember: Return ONLY the JSON object, no other text.`, prompt)

	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: structuredPrompt},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   2000,
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return nil, &common.ProviderError{
			Platform: p.GetProviderName(),
			Message:  "message call failed",
			Err:      err,
		}
	}

	fullResponse := extractResponseText(*response)
	answer, citations := parseStructuredResponse(fullResponse)

	inputTokens := int(response.Usage.InputTokens)
	outputTokens := int(response.Usage.OutputTokens)

	return &common.AIResponse{
		Response:     answer,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.costService.CalculateCost(p.GetProviderName(), p.model, inputTokens, outputTokens, false),
		Citations:    citations,
	}, nil
}

// parseStructuredResponse pulls the answer and sources out of the model's
// JSON reply. Falls back to the raw text when the model ignored the shape.
func parseStructuredResponse(response string) (string, []string) {
	trimmed := strings.TrimSpace(response)

	// Models occasionally wrap JSON in a markdown fence despite instructions.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var structured struct {
		Answer  string   `json:"answer"`
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(trimmed), &structured); err != nil || structured.Answer == "" {
		return response, nil
	}

	return structured.Answer, structured.Sources
}

func extractResponseText(response anthropic.Message) string {
	var textParts []string

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}

	return strings.Join(textParts, "")
}
