package delivery

import (
	"net/http"
	"strings"
	"time"

	"crm-backend/internal/contact/usecase"
	"crm-backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// MailStatusFunc reports the mailbox connection shown on the dashboard
type MailStatusFunc func() (connected bool, account string)

// ContactHandler handles contact and action HTTP requests
type ContactHandler struct {
	contactUsecase usecase.ContactUsecase
	mailStatus     MailStatusFunc
}

func NewContactHandler(contactUsecase usecase.ContactUsecase) *ContactHandler {
	return &ContactHandler{contactUsecase: contactUsecase}
}

func (h *ContactHandler) SetMailStatus(fn MailStatusFunc) {
	h.mailStatus = fn
}

// ContactRequest is the create/edit form. NextAction and DueDate are only
// used on create.
type ContactRequest struct {
	usecase.ContactInput
	NextAction string `json:"next_action" form:"next_action"`
	DueDate    string `json:"due_date" form:"due_date"`
}

type ActionRequest struct {
	Title   string `json:"title" form:"title" binding:"required"`
	DueDate string `json:"due_date" form:"due_date"`
}

type CompleteActionRequest struct {
	CompletionNotes string `json:"completion_notes" form:"completion_notes"`
	NewTitle        string `json:"new_title" form:"new_title"`
	NewDueDate      string `json:"new_due_date" form:"new_due_date"`
}

// Dashboard lists contacts by next action
// GET /?q=
func (h *ContactHandler) Dashboard(c *gin.Context) {
	dash, err := h.contactUsecase.Dashboard(c.Query("q"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	resp := gin.H{
		"q":                dash.Query,
		"contacts":         dash.Contacts,
		"upcoming_actions": dash.Upcoming,
	}
	if h.mailStatus != nil {
		connected, account := h.mailStatus()
		resp["gmail"] = gin.H{"connected": connected, "account_email": account}
	}
	c.JSON(http.StatusOK, resp)
}

// CreateContact creates a contact with an optional first action
// POST /contacts
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	due, err := parseDate(req.DueDate)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	var first *usecase.ActionInput
	if strings.TrimSpace(req.NextAction) != "" {
		first = &usecase.ActionInput{Title: req.NextAction, DueDate: due}
	}

	contact, err := h.contactUsecase.CreateContact(req.ContactInput, first)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Contact created", "contact": contact})
}

// GetContact returns a contact with its actions
// GET /contacts/:id
func (h *ContactHandler) GetContact(c *gin.Context) {
	contact, err := h.contactUsecase.GetContact(c.Param("id"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contact": contact, "next_action": contact.NextAction()})
}

// UpdateContact edits a contact
// PUT /contacts/:id
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req usecase.ContactInput
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	contact, err := h.contactUsecase.UpdateContact(c.Param("id"), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact updated", "contact": contact})
}

// DeleteContact removes a contact and everything attached to it
// DELETE /contacts/:id
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	if err := h.contactUsecase.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contact deleted"})
}

// UploadContacts imports a CSV file
// POST /contacts/upload (multipart field "file")
func (h *ContactHandler) UploadContacts(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, "CSV file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.Respond(c, apperrors.Wrap(err, "unable to read upload"))
		return
	}
	defer file.Close()

	imported, err := h.contactUsecase.ImportCSV(file)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Imported contacts",
		"imported": imported,
	})
}

// AddAction adds a follow-up action to a contact
// POST /actions/new/:contact_id
func (h *ContactHandler) AddAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, "title is required"))
		return
	}

	due, err := parseDate(req.DueDate)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	action, err := h.contactUsecase.AddAction(c.Param("contact_id"), usecase.ActionInput{Title: req.Title, DueDate: due})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Action added", "action": action})
}

// CompleteAction completes an action and creates the next one
// POST /actions/:id/complete
func (h *ContactHandler) CompleteAction(c *gin.Context) {
	var req CompleteActionRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.Respond(c, apperrors.NewBadRequest(apperrors.CodeValidation, err.Error()))
		return
	}

	due, err := parseDate(req.NewDueDate)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	action, already, err := h.contactUsecase.CompleteAction(c.Param("id"), usecase.CompleteInput{
		Notes:       req.CompletionNotes,
		NextTitle:   req.NewTitle,
		NextDueDate: due,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	if already {
		c.JSON(http.StatusOK, gin.H{"message": "Action already completed", "level": "info", "action": action})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Action completed and next action scheduled", "action": action})
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty is nil.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.NewBadRequest(apperrors.CodeValidation, "invalid date: "+value)
}
