package common

// AIResponse contains the normalized response from an AI platform.
// Defined here to avoid import cycles between the provider
// implementations and the service layer.
type AIResponse struct {
	Response     string
	InputTokens  int
	OutputTokens int
	Cost         float64
	Citations    []string // source URLs in the platform's rank order, when provided
	WebSearch    bool
}

// CostService prices a provider call from its token usage
type CostService interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int, webSearch bool) float64
}
