package usecase

import (
	"context"
	"io"
	"time"

	"crm-backend/internal/contact/domain"
)

// ContactUsecase defines the business logic for contacts and their actions
type ContactUsecase interface {
	// CreateContact creates a contact and, when first is given, its first action
	CreateContact(input ContactInput, first *ActionInput) (*domain.Contact, error)

	GetContact(id string) (*domain.Contact, error)
	UpdateContact(id string, input ContactInput) (*domain.Contact, error)

	// DeleteContact removes the contact, its actions and everything registered cleaners own
	DeleteContact(ctx context.Context, id string) error

	// Dashboard filters by q and orders contacts by next action
	Dashboard(q string) (*Dashboard, error)

	// ImportCSV creates contacts from a CSV file and returns how many were imported
	ImportCSV(r io.Reader) (int, error)

	AddAction(contactID string, input ActionInput) (*domain.Action, error)

	// CompleteAction completes the action and schedules the next one. An action
	// that is already completed is returned unchanged with alreadyCompleted set.
	CompleteAction(actionID string, input CompleteInput) (action *domain.Action, alreadyCompleted bool, err error)

	// AddCleaner registers a hook run before a contact is deleted
	AddCleaner(cleaner ContactCleaner)
}

// ContactCleaner removes data other modules keep for a contact
type ContactCleaner interface {
	PurgeContact(ctx context.Context, contactID string) error
}

type ContactInput struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Company  string `json:"company" form:"company"`
	Phone    string `json:"phone" form:"phone"`
	Timezone string `json:"timezone" form:"timezone"`
	Tags     string `json:"tags" form:"tags"`
	Notes    string `json:"notes" form:"notes"`
}

type ActionInput struct {
	Title   string
	DueDate *time.Time
}

type CompleteInput struct {
	Notes       string
	NextTitle   string
	NextDueDate *time.Time
}

// DashboardEntry pairs a contact with its next action
type DashboardEntry struct {
	Contact    *domain.Contact `json:"contact"`
	NextAction *domain.Action  `json:"next_action"`
}

type Dashboard struct {
	Query    string           `json:"q"`
	Contacts []DashboardEntry `json:"contacts"`
	Upcoming []*domain.Action `json:"upcoming_actions"`
}
