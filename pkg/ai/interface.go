package ai

import "context"

// TextGenerator turns a prompt into free text.
// Implement this interface to add new AI providers.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
