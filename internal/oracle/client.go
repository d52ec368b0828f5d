// Package oracle provides the LLM transports behind the evaluation engine
// and the error taxonomy the engine's retry loop consumes.
package oracle

import (
	"context"
	"fmt"
	"time"
)

// LLMClient is the transport contract the engine calls through.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and configures a provider transport.
type Config struct {
	Provider string // "gemini" or "anthropic"
	APIKey   string
	Model    string // optional model override
	BaseURL  string // optional, anthropic only
	Timeout  time.Duration
}

// New builds the transport for the configured provider.
func New(ctx context.Context, cfg Config) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key not configured")
	}
	switch cfg.Provider {
	case "gemini", "":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
