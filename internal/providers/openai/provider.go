package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultModel = "gpt-4.1"

// Provider implements the AIProvider interface against the OpenAI chat API.
type Provider struct {
	client      *openai.Client
	model       string
	costService common.CostService
}

func NewProvider(cfg *config.Config, costService common.CostService) *Provider {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)

	return &Provider{
		client:      &client,
		model:       defaultModel,
		costService: costService,
	}
}

func (p *Provider) GetProviderName() string {
	return "openai"
}

func (p *Provider) SupportsWebSearch() bool {
	return false
}

// AnswerResponse is the structured output shape requested from the model.
// Sources carry the URLs the model grounded its answer on, in rank order.
type AnswerResponse struct {
	Answer  string   `json:"answer" jsonschema_description:"The comprehensive answer to the question"`
	Sources []string `json:"sources" jsonschema_description:"URLs of sources referenced in the answer, most relevant first"`
}

var answerResponseSchema = common.GenerateSchema[AnswerResponse]()

func (p *Provider) RunQuery(ctx context.Context, prompt string) (*common.AIResponse, error) {
	fmt.Printf("[OpenAIProvider] 🚀 Running query against model %s\n", p.model)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "answer_response",
		Description: openai.String("Structured answer with cited sources"),
		Schema:      answerResponseSchema,
		Strict:      openai.Bool(true),
	}

	response, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant that provides accurate, comprehensive answers and always lists the source URLs you relied on."),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(p.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		return nil, &common.ProviderError{
			Platform: p.GetProviderName(),
			Message:  "chat completion failed",
			Err:      err,
		}
	}

	if len(response.Choices) == 0 {
		return nil, &common.ProviderError{
			Platform: p.GetProviderName(),
			Message:  "no response choices returned",
		}
	}

	responseContent := response.Choices[0].Message.Content
	var citations []string

	var structured AnswerResponse
	if err := json.Unmarshal([]byte(responseContent), &structured); err == nil && structured.Answer != "" {
		responseContent = structured.Answer
		citations = structured.Sources
	}

	inputTokens := int(response.Usage.PromptTokens)
	outputTokens := int(response.Usage.CompletionTokens)

	return &common.AIResponse{
		Response:     responseContent,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         p.costService.CalculateCost(p.GetProviderName(), p.model, inputTokens, outputTokens, false),
		Citations:    citations,
	}, nil
}
