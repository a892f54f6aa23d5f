package api

import (
	"context"
	"net/http"
	"time"

	"crm-backend/pkg/ai"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ollamaPingTimeout = 5 * time.Second

// RuntimeConfig is the JSON shape of the Ollama settings
type RuntimeConfig struct {
	OllamaBaseURL string `json:"ollama_base_url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// UpdateOllamaSettingsRequest represents the request body for updating Ollama settings
type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GetOllamaSettings returns current Ollama configuration
// GET /settings/ollama
func (h *Handler) GetOllamaSettings(c *gin.Context) {
	baseURL, model := h.ollama.Snapshot()
	c.JSON(http.StatusOK, RuntimeConfig{OllamaBaseURL: baseURL, OllamaModel: model})
}

// UpdateOllamaSettings updates Ollama configuration at runtime
// PUT /settings/ollama
func (h *Handler) UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	baseURL, model := h.ollama.Update(req.OllamaBaseURL, req.OllamaModel)
	h.logger.Info("Ollama settings updated", zap.String("base_url", baseURL), zap.String("model", model))

	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": baseURL,
		"ollama_model":    model,
	})
}

// TestOllamaConnection checks that the server answers and has the model
// POST /settings/ollama/test
func (h *Handler) TestOllamaConnection(c *gin.Context) {
	var req RuntimeConfig
	// no body means: test the current settings
	_ = c.ShouldBindJSON(&req)

	baseURL, model := h.ollama.Snapshot()
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = baseURL
	}
	if req.OllamaModel == "" {
		req.OllamaModel = model
	}
	if req.OllamaBaseURL == "" {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, "ollama_base_url is not set"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ollamaPingTimeout)
	defer cancel()

	if err := ai.NewOllamaGenerator(req.OllamaBaseURL, req.OllamaModel).Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
		"ollama_model":    req.OllamaModel,
	})
}
