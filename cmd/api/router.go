package api

import (
	"net/http"

	authDelivery "crm-backend/internal/auth/delivery"
	"crm-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

const (
	healthPath   = "/health"
	callbackPath = "/gmail/oauth2callback"
)

func SetupRoutes(r *gin.Engine, h *Handler, cfg *config.Config) {
	// Health check and the OAuth redirect target stay reachable without credentials
	r.Use(authDelivery.AccessMiddleware(cfg.AccessPasswordHash, healthPath, callbackPath))

	r.GET(healthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Dashboard
	r.GET("/", h.Contacts.Dashboard)

	contacts := r.Group("/contacts")
	{
		contacts.POST("", h.Contacts.CreateContact)
		contacts.POST("/upload", h.Contacts.UploadContacts)
		contacts.GET("/:id", h.Contacts.GetContact)
		contacts.PUT("/:id", h.Contacts.UpdateContact)
		contacts.DELETE("/:id", h.Contacts.DeleteContact)
	}

	actions := r.Group("/actions")
	{
		actions.POST("/new/:contact_id", h.Contacts.AddAction)
		actions.POST("/:id/complete", h.Contacts.CompleteAction)
	}

	gmail := r.Group("/gmail")
	{
		gmail.GET("/status", h.Mail.Status)
		gmail.GET("/connect", h.Mail.Connect)
		gmail.GET("/oauth2callback", h.Mail.OAuthCallback)
		gmail.POST("/disconnect", h.Mail.Disconnect)
		gmail.POST("/sync", h.Mail.Sync)
	}

	emails := r.Group("/emails")
	{
		emails.GET("/suggestions", h.Suggestions.Inbox)
		emails.POST("/suggestions", h.Suggestions.Review)
		emails.POST("/suggestions/generate/:contact_id", h.Suggestions.Generate)
		emails.POST("/suggestions/refresh/:suggestion_id", h.Suggestions.Refresh)
		emails.GET("/scheduled", h.Suggestions.Scheduled)
	}

	// Device registration for push notifications
	if h.Devices != nil {
		fcm := r.Group("/fcm")
		{
			fcm.POST("/register", h.Devices.Register)
			fcm.DELETE("/:token", h.Devices.Unregister)
		}
	}

	// Runtime configuration
	settings := r.Group("/settings")
	{
		settings.GET("/ollama", h.GetOllamaSettings)
		settings.PUT("/ollama", h.UpdateOllamaSettings)
		settings.POST("/ollama/test", h.TestOllamaConnection)
	}
}
