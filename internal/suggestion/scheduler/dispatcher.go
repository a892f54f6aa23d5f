package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	contactdomain "crm-backend/internal/contact/domain"
	"crm-backend/internal/suggestion/domain"
	"crm-backend/internal/suggestion/repository"

	"go.uber.org/zap"
)

const (
	defaultSubject  = "Follow up"
	dispatchTimeout = time.Minute
)

// JobQueue runs keyed one-shot jobs
type JobQueue interface {
	Schedule(key string, at time.Time, fn func()) error
	Cancel(key string)
	Has(key string) bool
}

// Mailer sends mail to a contact and returns the provider message id
type Mailer interface {
	SendToContact(ctx context.Context, contact *contactdomain.Contact, subject, body string) (string, error)
}

// OutcomeNotifier is told when a timed send finished, successfully or not
type OutcomeNotifier interface {
	DispatchFinished(ctx context.Context, record *domain.ScheduledEmail)
}

// Dispatcher owns the timer jobs of scheduled emails and sends them when they fire
type Dispatcher struct {
	scheduleRepo repository.ScheduledEmailRepository
	mailer       Mailer
	queue        JobQueue
	notifier     OutcomeNotifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewDispatcher(
	scheduleRepo repository.ScheduledEmailRepository,
	mailer Mailer,
	queue JobQueue,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		scheduleRepo: scheduleRepo,
		mailer:       mailer,
		queue:        queue,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) SetNotifier(notifier OutcomeNotifier) {
	d.notifier = notifier
}

// Enqueue registers the timer job for record, replacing any job with the same key
func (d *Dispatcher) Enqueue(record *domain.ScheduledEmail) error {
	id := record.ID
	err := d.queue.Schedule(record.JobKey(), record.ScheduledFor, func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.Dispatch(ctx, id); err != nil {
			d.logger.Error("Scheduled email dispatch failed", zap.String("schedule_id", id), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register send job: %w", err)
	}

	d.logger.Info("Email scheduled",
		zap.String("schedule_id", id),
		zap.Time("scheduled_for", record.ScheduledFor),
	)
	return nil
}

// Cancel removes the timer jobs of the given schedule records. Jobs that
// already fired or never existed are ignored.
func (d *Dispatcher) Cancel(scheduleIDs ...string) {
	for _, id := range scheduleIDs {
		d.queue.Cancel(domain.JobKey(id))
	}
}

// Dispatch sends a scheduled email. Missing records and records that already
// reached a final state are left alone, so a duplicate or late firing is harmless.
// A send failure is stored on the record and not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, scheduleID string) error {
	record, err := d.scheduleRepo.FindByID(scheduleID)
	if err != nil {
		return fmt.Errorf("failed to load scheduled email: %w", err)
	}
	if record == nil {
		d.logger.Warn("Scheduled email no longer exists", zap.String("schedule_id", scheduleID))
		return nil
	}
	if record.Status.IsTerminal() {
		d.logger.Debug("Scheduled email already handled",
			zap.String("schedule_id", scheduleID),
			zap.String("status", string(record.Status)),
		)
		return nil
	}

	subject, body := defaultSubject, ""
	if record.Suggestion != nil {
		subject, body = record.Suggestion.Subject, record.Suggestion.Body
	}

	var messageID string
	if record.Contact == nil {
		err = errors.New("contact not found")
	} else {
		messageID, err = d.mailer.SendToContact(ctx, record.Contact, subject, body)
	}

	if err != nil {
		record.MarkError(err)
		if updateErr := d.scheduleRepo.Update(record); updateErr != nil {
			return fmt.Errorf("failed to record send error: %w", updateErr)
		}
		d.logger.Error("Scheduled email failed",
			zap.String("schedule_id", scheduleID),
			zap.String("contact_id", record.ContactID),
			zap.Error(err),
		)
		d.notify(ctx, record)
		return nil
	}

	record.MarkSent(messageID)
	if record.Suggestion != nil {
		record.Suggestion.MarkSent(messageID, d.now())
	}
	if err := d.scheduleRepo.RecordSent(record, record.Suggestion); err != nil {
		return fmt.Errorf("failed to record sent email %s: %w", messageID, err)
	}

	d.logger.Info("Scheduled email sent",
		zap.String("schedule_id", scheduleID),
		zap.String("contact_id", record.ContactID),
		zap.String("message_id", messageID),
	)
	d.notify(ctx, record)
	return nil
}

// Restore registers timer jobs for every record still waiting to be sent.
// Records whose time has passed fire as soon as the queue runs.
func (d *Dispatcher) Restore(ctx context.Context) (int, error) {
	records, err := d.scheduleRepo.ListByStatus(domain.ScheduleStatusScheduled)
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled emails: %w", err)
	}

	restored := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		if err := d.Enqueue(record); err != nil {
			d.logger.Error("Failed to restore scheduled email", zap.String("schedule_id", record.ID), zap.Error(err))
			continue
		}
		restored++
	}

	d.logger.Info("Scheduled emails restored", zap.Int("count", restored))
	return restored, nil
}

func (d *Dispatcher) notify(ctx context.Context, record *domain.ScheduledEmail) {
	if d.notifier != nil {
		d.notifier.DispatchFinished(ctx, record)
	}
}
