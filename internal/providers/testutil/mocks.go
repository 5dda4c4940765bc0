package testutil

import (
	"context"
	"net/http"

	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
)

// MockCostService is a mock implementation of CostService for testing
type MockCostService struct {
	CalculateCostFunc func(provider, model string, inputTokens, outputTokens int, websearch bool) float64
}

func (m *MockCostService) CalculateCost(provider, model string, inputTokens, outputTokens int, websearch bool) float64 {
	if m.CalculateCostFunc != nil {
		return m.CalculateCostFunc(provider, model, inputTokens, outputTokens, websearch)
	}
	return 0.0015 // Default mock cost
}

// NewMockCostService creates a new mock cost service
func NewMockCostService() *MockCostService {
	return &MockCostService{}
}

// MockHTTPDoer is a mock HTTP client for testing
type MockHTTPDoer struct {
	DoFunc   func(req *http.Request) (*http.Response, error)
	Requests []*http.Request
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req)
	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	return nil, nil
}

// MockProvider is a scriptable AIProvider for service-layer tests
type MockProvider struct {
	Name          string
	WebSearch     bool
	RunQueryFunc  func(ctx context.Context, prompt string) (*common.AIResponse, error)
	ReceivedCalls []string
}

func (m *MockProvider) RunQuery(ctx context.Context, prompt string) (*common.AIResponse, error) {
	m.ReceivedCalls = append(m.ReceivedCalls, prompt)
	if m.RunQueryFunc != nil {
		return m.RunQueryFunc(ctx, prompt)
	}
	return &common.AIResponse{
		Response:     "mock response",
		InputTokens:  100,
		OutputTokens: 200,
		Cost:         0.0015,
	}, nil
}

func (m *MockProvider) GetProviderName() string {
	if m.Name != "" {
		return m.Name
	}
	return "mock"
}

func (m *MockProvider) SupportsWebSearch() bool {
	return m.WebSearch
}
