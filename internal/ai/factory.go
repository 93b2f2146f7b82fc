package ai

import (
	"fmt"
	"time"

	"github.com/Yassen717/Chatly/internal/config"
)

// NewProvider selects a provider from configuration. With provider
// "auto" the first configured credential wins, preferring OpenAI;
// without any credential the mock provider is used so the app stays
// functional offline.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return newOpenAIFromConfig(cfg), nil
	case "gemini":
		if cfg.AI.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return newGeminiFromConfig(cfg), nil
	case "", "auto":
		if cfg.AI.OpenAI.APIKey != "" {
			return newOpenAIFromConfig(cfg), nil
		}
		if cfg.AI.Gemini.APIKey != "" {
			return newGeminiFromConfig(cfg), nil
		}
		return NewMockProvider(time.Now().UnixNano()), nil
	case "mock":
		return NewMockProvider(time.Now().UnixNano()), nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
}

func newOpenAIFromConfig(cfg *config.Config) *OpenAIProvider {
	return NewOpenAIProvider(OpenAIOptions{
		APIKey:  cfg.AI.OpenAI.APIKey,
		BaseURL: cfg.AI.OpenAI.BaseURL,
		ModelID: cfg.AI.OpenAI.Model,
	})
}

func newGeminiFromConfig(cfg *config.Config) *GeminiProvider {
	return NewGeminiProvider(GeminiOptions{
		APIKey:  cfg.AI.Gemini.APIKey,
		ModelID: cfg.AI.Gemini.Model,
	})
}
