package delivery

import (
	"net/http"
	"strings"
	"time"

	"crm-backend/internal/suggestion/domain"
	"crm-backend/internal/suggestion/usecase"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// SuggestionHandler handles the suggestion inbox and scheduled sends
type SuggestionHandler struct {
	suggestionUsecase usecase.SuggestionUsecase
}

func NewSuggestionHandler(suggestionUsecase usecase.SuggestionUsecase) *SuggestionHandler {
	return &SuggestionHandler{suggestionUsecase: suggestionUsecase}
}

// ReviewRequest is the approval form of one suggestion
type ReviewRequest struct {
	SuggestionID    string `json:"suggestion_id" form:"suggestion_id" binding:"required"`
	Subject         string `json:"subject" form:"subject"`
	Body            string `json:"body" form:"body"`
	SuggestedSendAt string `json:"suggested_send_at" form:"suggested_send_at"`
	Status          string `json:"status" form:"status" binding:"required"`
}

// InboxEntry is a suggestion as shown in the inbox
type InboxEntry struct {
	*domain.Suggestion
	ContactName string `json:"contact_name"`
	// Decision preselected on the review form
	DefaultDecision usecase.Decision `json:"default_decision"`
}

// Inbox GET /emails/suggestions
func (h *SuggestionHandler) Inbox(c *gin.Context) {
	suggestions, err := h.suggestionUsecase.Inbox()
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	entries := make([]InboxEntry, 0, len(suggestions))
	for _, s := range suggestions {
		decision := usecase.DecisionApproved
		if s.Status == domain.SuggestionStatusNeedsReview {
			decision = usecase.DecisionNeedsReview
		}
		entries = append(entries, InboxEntry{Suggestion: s, ContactName: s.ContactName(), DefaultDecision: decision})
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": entries})
}

// Review approves or sends back a suggestion
// POST /emails/suggestions
func (h *SuggestionHandler) Review(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	sendAt, err := parseSendAt(req.SuggestedSendAt)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	s, err := h.suggestionUsecase.Review(c.Request.Context(), usecase.ReviewInput{
		SuggestionID: req.SuggestionID,
		Subject:      req.Subject,
		Body:         req.Body,
		SendAt:       sendAt,
		Decision:     usecase.Decision(req.Status),
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	message := "Suggestion approved and scheduled"
	if s.Status == domain.SuggestionStatusNeedsReview {
		message = "Suggestion marked for review"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "suggestion": s})
}

// Generate POST /emails/suggestions/generate/:contact_id
func (h *SuggestionHandler) Generate(c *gin.Context) {
	s, err := h.suggestionUsecase.GenerateForContact(c.Request.Context(), c.Param("contact_id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Generated suggestion", "suggestion": s})
}

// Refresh POST /emails/suggestions/refresh/:suggestion_id
func (h *SuggestionHandler) Refresh(c *gin.Context) {
	s, err := h.suggestionUsecase.Refresh(c.Request.Context(), c.Param("suggestion_id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Suggestion refreshed", "suggestion": s})
}

// Scheduled GET /emails/scheduled
func (h *SuggestionHandler) Scheduled(c *gin.Context) {
	records, err := h.suggestionUsecase.ListScheduled()
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled": records})
}

// parseSendAt accepts the datetime-local form value or RFC 3339. Empty is nil.
func parseSendAt(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewBadRequest(apperrors.CodeValidation, "invalid send time: "+value)
}
