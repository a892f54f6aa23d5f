package delivery

import (
	"fmt"
	"net/http"

	"crm-backend/internal/mail/usecase"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	stateCookie    = "gmail_oauth_state"
	stateCookieAge = 600
)

// MailHandler handles Gmail connection and sync requests
type MailHandler struct {
	mailUsecase  usecase.MailUsecase
	secureCookie bool
	redirectTo   string
	logger       *zap.Logger
}

func NewMailHandler(mailUsecase usecase.MailUsecase, secureCookie bool, logger *zap.Logger) *MailHandler {
	return &MailHandler{
		mailUsecase:  mailUsecase,
		secureCookie: secureCookie,
		redirectTo:   "/",
		logger:       logger,
	}
}

// Status GET /gmail/status
func (h *MailHandler) Status(c *gin.Context) {
	status, err := h.mailUsecase.Status()
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Connect redirects the browser to Google's consent page
// GET /gmail/connect
func (h *MailHandler) Connect(c *gin.Context) {
	url, state, err := h.mailUsecase.AuthURL()
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, stateCookieAge, "/gmail", "", h.secureCookie, true)
	c.Redirect(http.StatusFound, url)
}

// OAuthCallback GET /gmail/oauth2callback?state=&code=
func (h *MailHandler) OAuthCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, "authorization denied: "+errParam))
		return
	}

	issued, _ := c.Cookie(stateCookie)
	c.SetCookie(stateCookie, "", -1, "/gmail", "", h.secureCookie, true)

	if _, err := h.mailUsecase.Callback(c.Request.Context(), c.Query("state"), issued, c.Query("code")); err != nil {
		h.logger.Warn("Gmail OAuth callback failed", zap.Error(err))
		apperrors.Respond(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.redirectTo)
}

// Disconnect POST /gmail/disconnect
func (h *MailHandler) Disconnect(c *gin.Context) {
	if err := h.mailUsecase.Disconnect(); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Gmail disconnected"})
}

// Sync POST /gmail/sync
func (h *MailHandler) Sync(c *gin.Context) {
	result, err := h.mailUsecase.Sync(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": syncMessage(len(result.Stored)),
		"stored":  len(result.Stored),
		"skipped": result.Skipped,
	})
}

func syncMessage(n int) string {
	if n == 1 {
		return "Synced 1 message"
	}
	return fmt.Sprintf("Synced %d messages", n)
}
