package providers

import (
	"context"

	"github.com/brandlens-ai/brandlens-workflows/internal/providers/common"
)

// AIProvider is the single contract every platform adapter implements.
// Platform-specific request/response shapes never leak past this boundary.
type AIProvider interface {
	RunQuery(ctx context.Context, prompt string) (*common.AIResponse, error)
	GetProviderName() string
	SupportsWebSearch() bool
}
