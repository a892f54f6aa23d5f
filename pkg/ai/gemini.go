package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiGenerator generates text through the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}
