package usecase

import (
	"context"

	contactdomain "crm-backend/internal/contact/domain"
	"crm-backend/internal/mail/domain"
)

// MailUsecase covers the Gmail connection, inbox sync and outgoing mail
type MailUsecase interface {
	Status() (*Status, error)

	// AuthURL returns the consent URL and the signed state it carries
	AuthURL() (url string, state string, err error)

	// Callback checks state against the value issued to the browser, exchanges
	// the code and stores the credential
	Callback(ctx context.Context, state, issuedState, code string) (*domain.Credential, error)

	Disconnect() error

	// Sync pulls recent inbox messages into the mail log
	Sync(ctx context.Context) (*SyncResult, error)

	// SendToContact sends a plain-text mail, logs it and returns the provider message id
	SendToContact(ctx context.Context, contact *contactdomain.Contact, subject, body string) (string, error)

	// RecentForContact returns up to limit logged messages, newest first
	RecentForContact(contactID string, limit int) ([]*domain.Message, error)

	// Watch registers push notifications for the inbox on a Pub/Sub topic
	Watch(ctx context.Context, topicName string) (uint64, error)

	// PurgeContact drops the mail log of a deleted contact
	PurgeContact(ctx context.Context, contactID string) error

	SetReplyObserver(observer ReplyObserver)
}

// ReplyObserver is told about contacts that sent a new message
type ReplyObserver interface {
	ContactReplied(ctx context.Context, contactID string) error
}

type Status struct {
	Configured   bool   `json:"configured"`
	Connected    bool   `json:"connected"`
	AccountEmail string `json:"account_email,omitempty"`
}

type SyncResult struct {
	Stored  []*domain.Message `json:"stored"`
	Skipped int               `json:"skipped"`
}
