package services

import (
	"math"
	"testing"
)

func TestCalculateCost(t *testing.T) {
	svc := NewCostService()

	tests := []struct {
		name         string
		provider     string
		model        string
		inputTokens  int
		outputTokens int
		websearch    bool
		want         float64
	}{
		{
			name:     "gpt-4.1 token pricing",
			provider: "openai", model: "gpt-4.1",
			inputTokens: 1_000_000, outputTokens: 1_000_000,
			want: 15.00,
		},
		{
			name:     "sonar with web search surcharge",
			provider: "perplexity", model: "sonar",
			inputTokens: 1_000_000, outputTokens: 0,
			websearch: true,
			want:      1.00 + 8.00/1000.0,
		},
		{
			name:     "unknown model falls back to gpt-4.1",
			provider: "openai", model: "gpt-99",
			inputTokens: 1_000_000, outputTokens: 0,
			want: 3.00,
		},
		{
			name:     "zero usage is free",
			provider: "anthropic", model: "claude-sonnet-4-20250514",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.CalculateCost(tt.provider, tt.model, tt.inputTokens, tt.outputTokens, tt.websearch)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateCost() = %f, want %f", got, tt.want)
			}
		})
	}
}
