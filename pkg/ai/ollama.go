package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaGenerator implements TextGenerator using an Ollama server
type OllamaGenerator struct {
	getBaseURL func() string // Dynamic getter for BaseURL
	getModel   func() string // Dynamic getter for Model
	client     *http.Client
}

// NewOllamaGenerator creates a generator with fixed settings
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return NewOllamaGeneratorWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaGeneratorWithGetters reads base URL and model on every call so
// settings changed at runtime take effect immediately.
func NewOllamaGeneratorWithGetters(getBaseURL, getModel func() string) *OllamaGenerator {
	return &OllamaGenerator{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		client:     &http.Client{Timeout: 90 * time.Second},
	}
}

func (o *OllamaGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	url := o.getBaseURL() + "/api/generate"

	payload := map[string]interface{}{
		"model":  o.getModel(),
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.4,
			"num_predict": 400,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Response, nil
}

// Ping checks that the server answers and the configured model is pulled.
func (o *OllamaGenerator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.getBaseURL()+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error (%d)", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to parse tags: %w", err)
	}

	model := o.getModel()
	for _, m := range tags.Models {
		if m.Name == model || m.Name == model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %q not available on %s", model, o.getBaseURL())
}
