package api

import (
	contactDelivery "crm-backend/internal/contact/delivery"
	deviceDelivery "crm-backend/internal/device/delivery"
	mailDelivery "crm-backend/internal/mail/delivery"
	suggestionDelivery "crm-backend/internal/suggestion/delivery"
	"crm-backend/pkg/ai"
	"crm-backend/pkg/config"
	"crm-backend/pkg/logger"

	corsmw "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler groups the HTTP handlers of every module
type Handler struct {
	Contacts    *contactDelivery.ContactHandler
	Mail        *mailDelivery.MailHandler
	Suggestions *suggestionDelivery.SuggestionHandler
	// Devices is nil when push notifications are not configured
	Devices *deviceDelivery.DeviceHandler

	ollama *ai.OllamaSettings
	config *config.Config
	logger *zap.Logger
}

func NewHandler(
	contacts *contactDelivery.ContactHandler,
	mail *mailDelivery.MailHandler,
	suggestions *suggestionDelivery.SuggestionHandler,
	devices *deviceDelivery.DeviceHandler,
	ollama *ai.OllamaSettings,
	cfg *config.Config,
	log *zap.Logger,
) *Handler {
	return &Handler{
		Contacts:    contacts,
		Mail:        mail,
		Suggestions: suggestions,
		Devices:     devices,
		ollama:      ollama,
		config:      cfg,
		logger:      log,
	}
}

// Router builds the gin engine with middleware and routes
func (h *Handler) Router() *gin.Engine {
	if h.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logger.Recovery(h.logger), logger.RequestLogger(h.logger))
	// Without an allow list the API is same-origin only
	if len(h.config.CORSOrigins) > 0 {
		r.Use(cors(h.config.CORSOrigins))
	}

	SetupRoutes(r, h, h.config)
	return r
}

func cors(origins []string) gin.HandlerFunc {
	config := corsmw.DefaultConfig()
	config.AllowOrigins = origins
	config.AllowCredentials = true
	config.AddAllowHeaders("Authorization", "Cache-Control", "X-Requested-With", logger.RequestIDHeader)
	config.AddExposeHeaders(logger.RequestIDHeader)
	return corsmw.New(config)
}
