package providers

import (
	"errors"
	"testing"

	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/models"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		OpenAIAPIKey:     "test-openai-key",
		AnthropicAPIKey:  "test-anthropic-key",
		PerplexityAPIKey: "test-perplexity-key",
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		platform models.Platform
		wantName string
		wantErr  bool
	}{
		{
			name:     "openai platform",
			platform: models.PlatformOpenAI,
			wantName: "openai",
		},
		{
			name:     "anthropic platform",
			platform: models.PlatformAnthropic,
			wantName: "anthropic",
		},
		{
			name:     "perplexity platform",
			platform: models.PlatformPerplexity,
			wantName: "perplexity",
		},
		{
			name:     "model alias maps to platform",
			platform: models.Platform("claude"),
			wantName: "anthropic",
		},
		{
			name:     "unknown platform",
			platform: models.Platform("gemini"),
			wantErr:  true,
		},
		{
			name:     "empty platform",
			platform: models.Platform(""),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.platform, testConfig(), testutil.NewMockCostService())

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for platform %q, got provider %v", tt.platform, provider)
				}
				var confErr *common.ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("expected ConfigurationError, got %T", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := provider.GetProviderName(); got != tt.wantName {
				t.Errorf("GetProviderName() = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestNewProviderMissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.AnthropicAPIKey = ""

	_, err := NewProvider(models.PlatformAnthropic, cfg, testutil.NewMockCostService())
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}

	var confErr *common.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}
