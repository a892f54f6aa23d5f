package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps Firebase Cloud Messaging functionality
type Client struct {
	messagingClient *messaging.Client
	logger          *zap.Logger
}

// NewClient creates a new FCM client using the provided credentials file
func NewClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	logger.Info("FCM client initialized")
	return &Client{
		messagingClient: messagingClient,
		logger:          logger,
	}, nil
}

// NotificationData contains the data to send in a push notification
type NotificationData struct {
	Title string
	Body  string
	Data  map[string]string // Custom data payload
	Link  string            // Page to open when the notification is clicked
}

// SendToDevices sends a push notification to multiple device tokens.
// It returns the tokens FCM reported as no longer registered.
func (c *Client) SendToDevices(ctx context.Context, tokens []string, notification NotificationData) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	webpush := &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Title: notification.Title,
			Body:  notification.Body,
			Icon:  "/icon-192.svg",
		},
	}
	if notification.Link != "" {
		webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: notification.Link}
	}

	response, err := c.messagingClient.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data:    notification.Data,
		Webpush: webpush,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send FCM multicast message: %w", err)
	}

	c.logger.Debug("Multicast sent",
		zap.Int("success", response.SuccessCount),
		zap.Int("failure", response.FailureCount),
	)

	var stale []string
	for i, resp := range response.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) {
			stale = append(stale, tokens[i])
			continue
		}
		c.logger.Warn("Failed to send to device", zap.String("token", redact(tokens[i])), zap.Error(resp.Error))
	}

	return stale, nil
}

func redact(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:12] + "..."
}
