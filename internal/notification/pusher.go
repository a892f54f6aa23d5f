package notification

import (
	"context"
	"fmt"

	devicerepo "crm-backend/internal/device/repository"
	"crm-backend/internal/suggestion/domain"
	"crm-backend/pkg/fcm"

	"go.uber.org/zap"
)

// DeviceSender delivers a push message and returns the tokens that are no longer registered
type DeviceSender interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// Pusher forwards scheduling events to every registered device
type Pusher struct {
	sender     DeviceSender
	deviceRepo devicerepo.DeviceRepository
	logger     *zap.Logger
}

func NewPusher(sender DeviceSender, deviceRepo devicerepo.DeviceRepository, logger *zap.Logger) *Pusher {
	return &Pusher{sender: sender, deviceRepo: deviceRepo, logger: logger}
}

// DispatchFinished reports the outcome of a scheduled send
func (p *Pusher) DispatchFinished(ctx context.Context, record *domain.ScheduledEmail) {
	contactName := "your contact"
	if record.Contact != nil {
		contactName = record.Contact.Name
	}

	n := fcm.NotificationData{
		Data: map[string]string{
			"type":        "scheduled_email",
			"schedule_id": record.ID,
			"status":      string(record.Status),
		},
		Link: "/emails/scheduled",
	}
	switch record.Status {
	case domain.ScheduleStatusSent:
		n.Title = "Follow-up sent"
		n.Body = fmt.Sprintf("Your follow-up to %s went out", contactName)
	default:
		n.Title = "Follow-up failed"
		n.Body = fmt.Sprintf("Sending to %s failed: %s", contactName, record.ErrorMessage)
	}

	p.push(ctx, n)
}

// SuggestionsInvalidated reports approved follow-ups pulled back after a reply
func (p *Pusher) SuggestionsInvalidated(ctx context.Context, contactID string, count int) {
	p.push(ctx, fcm.NotificationData{
		Title: "New reply received",
		Body:  fmt.Sprintf("%d approved follow-up(s) need review", count),
		Data: map[string]string{
			"type":       "needs_review",
			"contact_id": contactID,
		},
		Link: "/emails/suggestions",
	})
}

func (p *Pusher) push(ctx context.Context, n fcm.NotificationData) {
	tokens, err := p.deviceRepo.Tokens()
	if err != nil {
		p.logger.Error("Failed to load device tokens", zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	stale, err := p.sender.SendToDevices(ctx, tokens, n)
	if err != nil {
		p.logger.Error("Failed to send push notification", zap.Error(err))
		return
	}
	p.logger.Debug("Push notification sent", zap.Int("devices", len(tokens)))

	if len(stale) > 0 {
		if err := p.deviceRepo.Delete(stale...); err != nil {
			p.logger.Warn("Failed to prune device tokens", zap.Error(err))
		} else {
			p.logger.Info("Pruned device tokens", zap.Int("count", len(stale)))
		}
	}
}
