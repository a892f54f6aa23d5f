package usecase

import (
	"context"
	"time"

	contactdomain "crm-backend/internal/contact/domain"
	maildomain "crm-backend/internal/mail/domain"
	"crm-backend/internal/suggestion/domain"
)

// SuggestionUsecase drafts follow-up emails and moves them through review
// and scheduling
type SuggestionUsecase interface {
	// Generate drafts a new suggestion for the contact. A nil action drafts a
	// general check-in.
	Generate(ctx context.Context, contactID string, action *contactdomain.Action) (*domain.Suggestion, error)

	// GenerateForContact drafts a suggestion for the contact's next pending action
	GenerateForContact(ctx context.Context, contactID string) (*domain.Suggestion, error)

	// Refresh replaces a suggestion with a newly drafted one
	Refresh(ctx context.Context, suggestionID string) (*domain.Suggestion, error)

	// Inbox returns the most recent suggestions, newest first
	Inbox() ([]*domain.Suggestion, error)

	Review(ctx context.Context, input ReviewInput) (*domain.Suggestion, error)

	// Approve schedules the suggestion to be sent at sendAt, or now when nil
	Approve(ctx context.Context, id, subject, body string, sendAt *time.Time) (*domain.Suggestion, *domain.ScheduledEmail, error)

	// Reject sends the suggestion back for review and cancels its pending send
	Reject(ctx context.Context, id string) (*domain.Suggestion, error)

	// ContactReplied invalidates the contact's approved follow-ups
	ContactReplied(ctx context.Context, contactID string) error

	// ListScheduled returns schedule records, soonest first
	ListScheduled() ([]*domain.ScheduledEmail, error)

	PurgeContact(ctx context.Context, contactID string) error

	SetReviewNotifier(notifier ReviewNotifier)
}

// Decision is the outcome of a human review
type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionNeedsReview Decision = "needs_review"
)

type ReviewInput struct {
	SuggestionID string
	Subject      string
	Body         string
	SendAt       *time.Time
	Decision     Decision
}

// HistoryReader returns logged mail for a contact, newest first
type HistoryReader interface {
	RecentForContact(contactID string, limit int) ([]*maildomain.Message, error)
}

// Scheduler registers and cancels timed sends
type Scheduler interface {
	Enqueue(record *domain.ScheduledEmail) error
	Cancel(scheduleIDs ...string)
}

// ReviewNotifier is told when a reply sent approved follow-ups back for review
type ReviewNotifier interface {
	SuggestionsInvalidated(ctx context.Context, contactID string, count int)
}
