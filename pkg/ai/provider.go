package ai

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ProviderConfig selects and configures the evaluator backend.
type ProviderConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// NewEvaluator builds the evaluator for the configured provider.
func NewEvaluator(cfg ProviderConfig, logger zerolog.Logger) (Evaluator, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIEvaluator(OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.Model,
			Logger: logger,
		})
	case "anthropic":
		return NewAnthropicEvaluator(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
