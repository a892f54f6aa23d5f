package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mailusecase "crm-backend/internal/mail/usecase"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes for a mailbox change
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Syncer pulls new inbox messages into the mail log
type Syncer interface {
	Sync(ctx context.Context) (*mailusecase.SyncResult, error)
}

// Service listens for Gmail push notifications and runs a mail sync for each
// new mailbox history id
type Service struct {
	pubsubClient *pubsub.Client
	syncer       Syncer
	projectID    string
	topicName    string
	subName      string
	logger       *zap.Logger

	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(ctx context.Context, projectID, topicName, credentialsFile string, syncer Syncer, logger *zap.Logger) (*Service, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return newService(client, projectID, topicName, syncer, logger), nil
}

func newService(client *pubsub.Client, projectID, topicName string, syncer Syncer, logger *zap.Logger) *Service {
	return &Service{
		pubsubClient:  client,
		syncer:        syncer,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		logger:        logger,
		lastHistoryID: make(map[string]uint64),
	}
}

// TopicPath is the fully qualified topic name Gmail publishes to
func (s *Service) TopicPath() string {
	return fmt.Sprintf("projects/%s/topics/%s", s.projectID, s.topicName)
}

// Start receives notifications until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("Starting notification service", zap.String("topic", s.topicName), zap.String("subscription", s.subName))

	sub, err := s.ensureSubscription(ctx)
	if err != nil {
		s.logger.Error("Notification service disabled", zap.Error(err))
		return
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleData(ctx, msg.Data)
		msg.Ack()
	})
	if err != nil {
		s.logger.Error("Error receiving messages", zap.Error(err))
	}
	s.logger.Info("Notification service stopped")
}

func (s *Service) Close() error {
	return s.pubsubClient.Close()
}

func (s *Service) ensureSubscription(ctx context.Context) (*pubsub.Subscription, error) {
	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check subscription %s: %w", s.subName, err)
	}
	if exists {
		return sub, nil
	}

	topic := s.pubsubClient.Topic(s.topicName)
	topicExists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", s.topicName, err)
	}
	if !topicExists {
		return nil, fmt.Errorf("topic %s does not exist", s.topicName)
	}

	sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
		Topic:       topic,
		AckDeadline: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription %s: %w", s.subName, err)
	}
	s.logger.Info("Created subscription", zap.String("subscription", s.subName))
	return sub, nil
}

// handleData syncs once per new history id. Receive runs callbacks
// concurrently, so the dedup map is guarded.
func (s *Service) handleData(ctx context.Context, data []byte) {
	var notification GmailNotification
	if err := json.Unmarshal(data, &notification); err != nil {
		s.logger.Warn("Failed to unmarshal notification", zap.Error(err))
		return
	}

	account := strings.ToLower(notification.EmailAddress)
	if !s.markSeen(account, notification.HistoryID) {
		s.logger.Debug("Skipping duplicate notification",
			zap.String("account", account),
			zap.Uint64("history_id", notification.HistoryID),
		)
		return
	}

	result, err := s.syncer.Sync(ctx)
	if err != nil {
		s.logger.Error("Push-triggered sync failed", zap.Uint64("history_id", notification.HistoryID), zap.Error(err))
		return
	}
	s.logger.Info("Push-triggered sync finished",
		zap.Uint64("history_id", notification.HistoryID),
		zap.Int("stored", len(result.Stored)),
	)
}

func (s *Service) markSeen(account string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastHistoryID[account]; ok && historyID <= last {
		return false
	}
	s.lastHistoryID[account] = historyID
	return true
}
