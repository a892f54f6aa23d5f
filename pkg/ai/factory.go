package ai

import (
	"context"

	"go.uber.org/zap"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string
	GeminiModel  string

	// Ollama is read on every call so the settings endpoint can change it
	// while the process runs. Nil or an empty base URL disables Ollama.
	Ollama *OllamaSettings
}

// NewTextGenerator builds the generator chain for cfg.Provider. It returns nil
// when no provider is configured; callers then use the template fallback.
func NewTextGenerator(ctx context.Context, cfg Config, logger *zap.Logger) TextGenerator {
	var gemini TextGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Gemini disabled", zap.Error(err))
		} else {
			gemini = g
		}
	}

	var ollama TextGenerator
	if cfg.Ollama != nil && cfg.Ollama.BaseURL() != "" {
		ollama = NewOllamaGeneratorWithGetters(cfg.Ollama.BaseURL, cfg.Ollama.Model)
	}

	chain := NewFallbackGenerator(logger)
	switch cfg.Provider {
	case ProviderGemini:
		chain.Add("gemini", gemini)
	case ProviderOllama:
		chain.Add("ollama", ollama)
	default:
		// Gemini first for quality, local model as backup
		chain.Add("gemini", gemini).Add("ollama", ollama)
	}

	if chain.Len() == 0 {
		return nil
	}
	return chain
}
