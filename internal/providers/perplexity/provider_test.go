package perplexity

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/brandlens-ai/brandlens-workflows/internal/analysis"
	"github.com/brandlens-ai/brandlens-workflows/internal/config"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
	"github.com/brandlens-ai/brandlens-workflows/internal/providers/testutil"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestRunQuery(t *testing.T) {
	doer := &testutil.MockHTTPDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{
				"choices": [{"message": {"content": "Acme leads the market."}}],
				"citations": ["https://acme.com/report", "https://example.com/review"],
				"usage": {"prompt_tokens": 50, "completion_tokens": 120}
			}`), nil
		},
	}

	cfg := &config.Config{PerplexityAPIKey: "test-key"}
	provider := NewProviderWithClient(cfg, testutil.NewMockCostService(), doer, "")

	resp, err := provider.RunQuery(context.Background(), "Who leads the market?")
	if err != nil {
		t.Fatalf("RunQuery() error = %v", err)
	}

	if resp.Response != "Acme leads the market." {
		t.Errorf("Response = %q", resp.Response)
	}
	if len(resp.Citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(resp.Citations))
	}
	if resp.Citations[0] != "https://acme.com/report" {
		t.Errorf("citation order not preserved: %v", resp.Citations)
	}
	if resp.InputTokens != 50 || resp.OutputTokens != 120 {
		t.Errorf("token usage = %d/%d, want 50/120", resp.InputTokens, resp.OutputTokens)
	}
	if !resp.WebSearch {
		t.Error("expected WebSearch to be true")
	}

	if len(doer.Requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(doer.Requests))
	}
	req := doer.Requests[0]
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization header = %q", got)
	}
	if req.URL.Path != "/chat/completions" {
		t.Errorf("request path = %q", req.URL.Path)
	}
}

func TestRunQueryHTTPError(t *testing.T) {
	doer := &testutil.MockHTTPDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{"error": "rate limited"}`), nil
		},
	}

	cfg := &config.Config{PerplexityAPIKey: "test-key"}
	provider := NewProviderWithClient(cfg, testutil.NewMockCostService(), doer, "")

	_, err := provider.RunQuery(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}

	var provErr *common.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", provErr.StatusCode)
	}
}

func TestRunQueryEmptyChoices(t *testing.T) {
	doer := &testutil.MockHTTPDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"choices": [], "usage": {}}`), nil
		},
	}

	cfg := &config.Config{PerplexityAPIKey: "test-key"}
	provider := NewProviderWithClient(cfg, testutil.NewMockCostService(), doer, "")

	_, err := provider.RunQuery(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}

	var provErr *common.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
}

func TestRunQueryMalformedBody(t *testing.T) {
	doer := &testutil.MockHTTPDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `<html>not json</html>`), nil
		},
	}

	cfg := &config.Config{PerplexityAPIKey: "test-key"}
	provider := NewProviderWithClient(cfg, testutil.NewMockCostService(), doer, "")

	_, err := provider.RunQuery(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for undecodable body")
	}

	// Malformed bodies are extraction failures, not provider outages: the
	// caller records them instead of retrying.
	var extErr *analysis.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %T", err)
	}
	var provErr *common.ProviderError
	if errors.As(err, &provErr) {
		t.Error("malformed body must not classify as ProviderError")
	}
}

func TestRunQueryTransportError(t *testing.T) {
	doer := &testutil.MockHTTPDoer{
		DoFunc: func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		},
	}

	cfg := &config.Config{PerplexityAPIKey: "test-key"}
	provider := NewProviderWithClient(cfg, testutil.NewMockCostService(), doer, "")

	_, err := provider.RunQuery(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error for transport failure")
	}

	var provErr *common.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
}
