package domain

import (
	"time"

	contactdomain "crm-backend/internal/contact/domain"
)

// SuggestionStatus represents where a drafted follow-up is in its lifecycle
type SuggestionStatus string

const (
	SuggestionStatusCreated     SuggestionStatus = "created"
	SuggestionStatusApproved    SuggestionStatus = "approved"
	SuggestionStatusScheduled   SuggestionStatus = "scheduled"
	SuggestionStatusSent        SuggestionStatus = "sent"
	SuggestionStatusNeedsReview SuggestionStatus = "needs_review"
)

// CanApprove reports whether a suggestion in this state may be (re)approved.
// Sent suggestions are final.
func (s SuggestionStatus) CanApprove() bool {
	switch s {
	case SuggestionStatusCreated, SuggestionStatusApproved, SuggestionStatusScheduled, SuggestionStatusNeedsReview:
		return true
	default:
		return false
	}
}

// IsOutstanding reports whether the suggestion is approved and waiting to go out
func (s SuggestionStatus) IsOutstanding() bool {
	return s == SuggestionStatusApproved || s == SuggestionStatusScheduled
}

// Generation sources recorded in Suggestion.Metadata
const (
	SourceModel    = "model"
	SourceTemplate = "template"
)

// Suggestion is a drafted follow-up email waiting for a human decision
type Suggestion struct {
	ID                string            `json:"id" gorm:"primaryKey"`
	ContactID         string            `json:"contact_id" gorm:"index;not null"`
	ActionID          *string           `json:"action_id,omitempty" gorm:"index"`
	Subject           string            `json:"subject"`
	Body              string            `json:"body" gorm:"type:text"`
	SuggestedSendAt   *time.Time        `json:"suggested_send_at,omitempty"`
	Status            SuggestionStatus  `json:"status" gorm:"size:16;default:created;not null;index"`
	ScheduledFor      *time.Time        `json:"scheduled_for,omitempty"`
	ApprovedAt        *time.Time        `json:"approved_at,omitempty"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	ExternalMessageID string            `json:"external_message_id,omitempty"`
	Rationale         string            `json:"rationale,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	Contact *contactdomain.Contact `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
	Action  *contactdomain.Action  `json:"action,omitempty" gorm:"foreignKey:ActionID"`
}

func (Suggestion) TableName() string {
	return "email_suggestions"
}

// MarkScheduled records an approval that will go out at sendAt
func (s *Suggestion) MarkScheduled(subject, body string, sendAt, approvedAt time.Time) {
	s.Subject = subject
	s.Body = body
	s.Status = SuggestionStatusScheduled
	s.ApprovedAt = &approvedAt
	s.ScheduledFor = &sendAt
}

// MarkNeedsReview sends the suggestion back to the human
func (s *Suggestion) MarkNeedsReview() {
	s.Status = SuggestionStatusNeedsReview
	s.ApprovedAt = nil
	s.ScheduledFor = nil
}

func (s *Suggestion) MarkSent(messageID string, at time.Time) {
	s.Status = SuggestionStatusSent
	s.SentAt = &at
	s.ExternalMessageID = messageID
}

// ContactName is the display name used by the inbox
func (s *Suggestion) ContactName() string {
	if s.Contact == nil {
		return ""
	}
	return s.Contact.Name
}
