package domain

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// InboxMessage is a fetched provider message with the fields sync needs.
type InboxMessage struct {
	ID         string
	ThreadID   string
	Subject    string
	From       string
	To         string
	Snippet    string
	Body       string
	ReceivedAt *time.Time
}

// OutgoingMessage is a plain-text mail to a single recipient.
type OutgoingMessage struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	Body      string
}

// SentMessage identifies a message accepted by the provider.
type SentMessage struct {
	ID       string
	ThreadID string
}

// MailProvider is the OAuth mail API used for connecting, syncing and sending.
type MailProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, token *oauth2.Token, onTokenRefresh TokenUpdateFunc) (string, error)
	ListInbox(ctx context.Context, token *oauth2.Token, limit int64, onTokenRefresh TokenUpdateFunc) ([]string, error)
	GetMessage(ctx context.Context, token *oauth2.Token, id string, onTokenRefresh TokenUpdateFunc) (*InboxMessage, error)
	Send(ctx context.Context, token *oauth2.Token, msg *OutgoingMessage, onTokenRefresh TokenUpdateFunc) (*SentMessage, error)
	Watch(ctx context.Context, token *oauth2.Token, topicName string, onTokenRefresh TokenUpdateFunc) (uint64, error)
}
