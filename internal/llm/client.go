package llm

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-analyzer/internal/logger"
)

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates free text (used for YAML responses)
	GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON generates a JSON document, with code fences removed
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GetModel returns the model name configured for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates the provider client named by config and wraps it with
// the configured per-call timeout and retry budget.
func NewClient(ctx context.Context, config *Config, apiKey string, log *logger.Logger) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var (
		base Client
		err  error
	)
	switch config.Provider {
	case ProviderGemini, "":
		base, err = NewGeminiClient(ctx, config, apiKey)
	case ProviderGenAI:
		base, err = NewGenAIClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRetryingClient(base, config.Timeout, config.MaxRetries, log), nil
}
