package domain

import "time"

// ActionStatus represents the current state of a follow-up action
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusCompleted ActionStatus = "completed"
)

// CanComplete reports whether an action in this state may be completed.
// Completion is terminal.
func (s ActionStatus) CanComplete() bool {
	return s == ActionStatusPending
}

// Action is a follow-up task attached to a contact
type Action struct {
	ID              string       `json:"id" gorm:"primaryKey"`
	ContactID       string       `json:"contact_id" gorm:"index;not null"`
	Title           string       `json:"title" gorm:"not null"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	Status          ActionStatus `json:"status" gorm:"size:16;default:pending;not null"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CompletionNotes string       `json:"completion_notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	Contact *Contact `json:"contact,omitempty" gorm:"foreignKey:ContactID"`
}

func (Action) TableName() string {
	return "contact_actions"
}

// MarkComplete moves the action to completed
func (a *Action) MarkComplete(notes string, at time.Time) {
	a.Status = ActionStatusCompleted
	a.CompletedAt = &at
	a.CompletionNotes = notes
}

func (a *Action) dueBefore(other *Action) bool {
	switch {
	case a.DueDate == nil:
		return false
	case other.DueDate == nil:
		return true
	default:
		return a.DueDate.Before(*other.DueDate)
	}
}
