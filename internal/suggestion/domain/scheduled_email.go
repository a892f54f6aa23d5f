package domain

import (
	"time"

	contactdomain "crm-backend/internal/contact/domain"
)

// ScheduleStatus is the state of a timed send
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusSent      ScheduleStatus = "sent"
	ScheduleStatusError     ScheduleStatus = "error"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// IsTerminal reports whether the record will never fire again
func (s ScheduleStatus) IsTerminal() bool {
	switch s {
	case ScheduleStatusSent, ScheduleStatusError, ScheduleStatusCancelled:
		return true
	default:
		return false
	}
}

// ScheduledEmail is one timed send of a suggestion
type ScheduledEmail struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	ContactID      string         `json:"contact_id" gorm:"index;not null"`
	SuggestionID   *string        `json:"suggestion_id,omitempty" gorm:"index"`
	ScheduledFor   time.Time      `json:"scheduled_for" gorm:"not null"`
	Status         ScheduleStatus `json:"status" gorm:"size:16;default:pending;not null;index"`
	GmailMessageID string         `json:"gmail_message_id,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Contact    *contactdomain.Contact `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
	Suggestion *Suggestion            `json:"suggestion,omitempty" gorm:"foreignKey:SuggestionID"`
}

func (ScheduledEmail) TableName() string {
	return "scheduled_emails"
}

// JobKey is the timer job identifier for this record
func (e *ScheduledEmail) JobKey() string {
	return JobKey(e.ID)
}

func JobKey(scheduleID string) string {
	return "scheduled-email-" + scheduleID
}

func (e *ScheduledEmail) MarkSent(messageID string) {
	e.Status = ScheduleStatusSent
	e.GmailMessageID = messageID
	e.ErrorMessage = ""
}

func (e *ScheduledEmail) MarkError(err error) {
	e.Status = ScheduleStatusError
	e.ErrorMessage = err.Error()
}

func (e *ScheduledEmail) Cancel() {
	e.Status = ScheduleStatusCancelled
}
