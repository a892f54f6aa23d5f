package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	maildomain "crm-backend/internal/mail/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user       = "me"
	inboxLabel = "INBOX"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = maildomain.TokenUpdateFunc

type Service struct {
	oauth    *oauth2.Config
	endpoint string // overrides the API base URL; empty uses Google's
	logger   *zap.Logger
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
	logger   *zap.Logger
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			s.logger.Warn("Failed to persist refreshed token", zap.Error(err))
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret, redirectURL string, scopes []string, logger *zap.Logger) *Service {
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// AuthCodeURL returns the consent page URL. Offline access plus a forced
// consent prompt make Google return a refresh token.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
	}
	return token, nil
}

// GetGmailService creates a Gmail client that refreshes token as needed
func (s *Service) GetGmailService(ctx context.Context, token *oauth2.Token, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	wrappedSource := &notifyTokenSource{
		src:      s.oauth.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
		logger:   s.logger,
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, wrappedSource))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// Profile returns the mailbox address of the authorised account
func (s *Service) Profile(ctx context.Context, token *oauth2.Token, onTokenRefresh TokenUpdateFunc) (string, error) {
	srv, err := s.GetGmailService(ctx, token, onTokenRefresh)
	if err != nil {
		return "", err
	}

	profile, err := srv.Users.GetProfile(user).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// ListInbox returns the ids of the most recent inbox messages, newest first
func (s *Service) ListInbox(ctx context.Context, token *oauth2.Token, limit int64, onTokenRefresh TokenUpdateFunc) ([]string, error) {
	srv, err := s.GetGmailService(ctx, token, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Users.Messages.List(user).
		LabelIds(inboxLabel).
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage fetches the full message and flattens it
func (s *Service) GetMessage(ctx context.Context, token *oauth2.Token, id string, onTokenRefresh TokenUpdateFunc) (*maildomain.InboxMessage, error) {
	srv, err := s.GetGmailService(ctx, token, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message %s: %w", id, err)
	}
	return convertMessage(msg), nil
}

// Send delivers a plain-text message and returns the ids Gmail assigned
func (s *Service) Send(ctx context.Context, token *oauth2.Token, out *maildomain.OutgoingMessage, onTokenRefresh TokenUpdateFunc) (*maildomain.SentMessage, error) {
	srv, err := s.GetGmailService(ctx, token, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if err := composeMessage(&raw, out, time.Now()); err != nil {
		return nil, err
	}

	sent, err := srv.Users.Messages.Send(user, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to send message: %w", err)
	}

	return &maildomain.SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

// Watch sets up push notifications for the inbox and returns the starting history id
func (s *Service) Watch(ctx context.Context, token *oauth2.Token, topicName string, onTokenRefresh TokenUpdateFunc) (uint64, error) {
	srv, err := s.GetGmailService(ctx, token, onTokenRefresh)
	if err != nil {
		return 0, err
	}

	// Only one push client is allowed per user; clear any previous watch
	_ = srv.Users.Stop(user).Context(ctx).Do()

	resp, err := srv.Users.Watch(user, &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{inboxLabel},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	s.logger.Info("Mailbox watch started",
		zap.String("topic", topicName),
		zap.Int64("expiration", resp.Expiration),
		zap.Uint64("history_id", resp.HistoryId),
	)
	return resp.HistoryId, nil
}
