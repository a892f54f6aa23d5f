package ai

import (
	"strings"
	"sync"
)

// OllamaSettings holds the Ollama endpoint and model. The settings API changes
// them while generators built from the same store keep running.
type OllamaSettings struct {
	mu      sync.RWMutex
	baseURL string
	model   string
}

func NewOllamaSettings(baseURL, model string) *OllamaSettings {
	return &OllamaSettings{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

func (s *OllamaSettings) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

func (s *OllamaSettings) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// Snapshot returns base URL and model read together
func (s *OllamaSettings) Snapshot() (baseURL, model string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL, s.model
}

// Update replaces the base URL. An empty model keeps the current one.
func (s *OllamaSettings) Update(baseURL, model string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = strings.TrimRight(baseURL, "/")
	if model != "" {
		s.model = model
	}
	return s.baseURL, s.model
}
