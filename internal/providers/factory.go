package providers

import (
	"fmt"
	"strings"

	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/anthropic"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/openai"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/perplexity"
)

// NewProvider creates the appropriate AI provider for a platform. Unknown
// platforms fail fast with a ConfigurationError.
func NewProvider(platform models.Platform, cfg *config.Config, costService common.CostService) (AIProvider, error) {
	platformLower := strings.ToLower(string(platform))

	if strings.Contains(platformLower, "openai") || strings.Contains(platformLower, "gpt") {
		if cfg.OpenAIAPIKey == "" {
			return nil, &common.ConfigurationError{Message: "OpenAI API key is empty in config"}
		}
		fmt.Printf("[ProviderFactory] Selected OpenAI provider for platform: %s\n", platform)
		return openai.NewProvider(cfg, costService), nil
	}

	if strings.Contains(platformLower, "anthropic") || strings.Contains(platformLower, "claude") {
		if cfg.AnthropicAPIKey == "" {
			return nil, &common.ConfigurationError{Message: "Anthropic API key is empty in config"}
		}
		fmt.Printf("[ProviderFactory] Selected Anthropic provider for platform: %s\n", platform)
		return anthropic.NewProvider(cfg, costService), nil
	}

	if strings.Contains(platformLower, "perplexity") || strings.Contains(platformLower, "sonar") {
		if cfg.PerplexityAPIKey == "" {
			return nil, &common.ConfigurationError{Message: "Perplexity API key is empty in config"}
		}
		fmt.Printf("[ProviderFactory] Selected Perplexity provider for platform: %s\n", platform)
		return perplexity.NewProvider(cfg, costService), nil
	}

	return nil, &common.ConfigurationError{Message: fmt.Sprintf("unsupported platform: %s", platform)}
}
