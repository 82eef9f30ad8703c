package ai

import (
	"fmt"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "anthropic", "ollama" or "auto"

	AnthropicAPIKey string

	OllamaBaseURL string
	OllamaModel   string
}

// NewResponder creates a Responder based on the config. "auto" prefers
// Anthropic with Ollama as a fallback when both are configured.
func NewResponder(cfg Config, logger *zap.Logger) (Responder, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return NewAnthropicService(cfg.AnthropicAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		if cfg.AnthropicAPIKey != "" {
			anthropic := NewAnthropicService(cfg.AnthropicAPIKey)
			if cfg.OllamaBaseURL != "" {
				return NewFallbackService(anthropic, NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), logger), nil
			}
			return anthropic, nil
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	}
}
