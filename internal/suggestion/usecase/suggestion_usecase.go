package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	contactdomain "crm-backend/internal/contact/domain"
	contactrepo "crm-backend/internal/contact/repository"
	maildomain "crm-backend/internal/mail/domain"
	"crm-backend/internal/suggestion/domain"
	"crm-backend/internal/suggestion/repository"
	"crm-backend/pkg/ai"
	"crm-backend/pkg/apperrors"

	"go.uber.org/zap"
)

const (
	inboxLimit     = 50
	scheduledLimit = 100
	defaultLead    = 48 * time.Hour
)

type suggestionUsecase struct {
	suggestionRepo repository.SuggestionRepository
	scheduleRepo   repository.ScheduledEmailRepository
	contactRepo    contactrepo.ContactRepository
	history        HistoryReader
	scheduler      Scheduler
	generator      ai.TextGenerator
	notifier       ReviewNotifier
	senderName     string
	logger         *zap.Logger
	now            func() time.Time
}

// NewSuggestionUsecase wires the suggestion lifecycle. generator may be nil,
// in which case every draft comes from the template.
func NewSuggestionUsecase(
	suggestionRepo repository.SuggestionRepository,
	scheduleRepo repository.ScheduledEmailRepository,
	contactRepo contactrepo.ContactRepository,
	history HistoryReader,
	scheduler Scheduler,
	generator ai.TextGenerator,
	senderName string,
	logger *zap.Logger,
) SuggestionUsecase {
	return &suggestionUsecase{
		suggestionRepo: suggestionRepo,
		scheduleRepo:   scheduleRepo,
		contactRepo:    contactRepo,
		history:        history,
		scheduler:      scheduler,
		generator:      generator,
		senderName:     senderName,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (u *suggestionUsecase) SetReviewNotifier(notifier ReviewNotifier) {
	u.notifier = notifier
}

func (u *suggestionUsecase) Generate(ctx context.Context, contactID string, action *contactdomain.Action) (*domain.Suggestion, error) {
	contact, err := u.loadContact(contactID)
	if err != nil {
		return nil, err
	}
	return u.generate(ctx, contact, action)
}

func (u *suggestionUsecase) GenerateForContact(ctx context.Context, contactID string) (*domain.Suggestion, error) {
	contact, err := u.loadContact(contactID)
	if err != nil {
		return nil, err
	}
	return u.generate(ctx, contact, contact.NextAction())
}

func (u *suggestionUsecase) generate(ctx context.Context, contact *contactdomain.Contact, action *contactdomain.Action) (*domain.Suggestion, error) {
	history, err := u.history.RecentForContact(contact.ID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load mail history: %w", err)
	}

	d, source := u.draft(ctx, contact, action, history)

	sendAt := u.now().Add(defaultLead)
	if action != nil && action.DueDate != nil {
		sendAt = *action.DueDate
	}

	s := &domain.Suggestion{
		ContactID:       contact.ID,
		Subject:         d.Subject,
		Body:            d.Body,
		SuggestedSendAt: &sendAt,
		Status:          domain.SuggestionStatusCreated,
		Rationale:       d.Rationale,
		Metadata:        map[string]string{"source": source, "history": fmt.Sprint(len(history))},
	}
	if action != nil {
		actionID := action.ID
		s.ActionID = &actionID
		s.Metadata["action"] = action.Title
	}

	if err := u.suggestionRepo.Create(s); err != nil {
		return nil, fmt.Errorf("failed to save suggestion: %w", err)
	}
	s.Contact = contact

	u.logger.Info("Suggestion generated",
		zap.String("suggestion_id", s.ID),
		zap.String("contact_id", contact.ID),
		zap.String("source", source),
	)
	return s, nil
}

func (u *suggestionUsecase) draft(ctx context.Context, contact *contactdomain.Contact, action *contactdomain.Action, history []*maildomain.Message) (draft, string) {
	if u.generator == nil {
		return templateDraft(contact, action, u.senderName), domain.SourceTemplate
	}

	output, err := u.generator.GenerateText(ctx, buildPrompt(contact, action, history))
	if err != nil {
		u.logger.Warn("Text generation failed, using template",
			zap.String("contact_id", contact.ID),
			zap.Error(err),
		)
		return templateDraft(contact, action, u.senderName), domain.SourceTemplate
	}
	return parseDraft(output), domain.SourceModel
}

func (u *suggestionUsecase) Refresh(ctx context.Context, suggestionID string) (*domain.Suggestion, error) {
	old, err := u.loadSuggestion(suggestionID)
	if err != nil {
		return nil, err
	}

	contact, err := u.loadContact(old.ContactID)
	if err != nil {
		return nil, err
	}
	action := old.Action
	if action == nil {
		action = contact.NextAction()
	}

	fresh, err := u.generate(ctx, contact, action)
	if err != nil {
		return nil, err
	}

	removed, err := u.suggestionRepo.Delete(old.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove old suggestion: %w", err)
	}
	u.scheduler.Cancel(removed...)

	u.logger.Info("Suggestion refreshed",
		zap.String("old_suggestion_id", old.ID),
		zap.String("suggestion_id", fresh.ID),
		zap.Int("schedules_removed", len(removed)),
	)
	return fresh, nil
}

func (u *suggestionUsecase) Inbox() ([]*domain.Suggestion, error) {
	return u.suggestionRepo.ListRecent(inboxLimit)
}

func (u *suggestionUsecase) Review(ctx context.Context, input ReviewInput) (*domain.Suggestion, error) {
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, apperrors.NewBadRequest(apperrors.CodeValidation, "subject and body are required")
	}

	switch input.Decision {
	case DecisionApproved:
		s, _, err := u.Approve(ctx, input.SuggestionID, subject, body, input.SendAt)
		return s, err
	case DecisionNeedsReview:
		s, err := u.loadSuggestion(input.SuggestionID)
		if err != nil {
			return nil, err
		}
		s.Subject = subject
		s.Body = body
		if input.SendAt != nil {
			s.SuggestedSendAt = input.SendAt
		}
		return u.sendBack(s)
	default:
		return nil, apperrors.NewBadRequest(apperrors.CodeValidation, fmt.Sprintf("unknown decision %q", input.Decision))
	}
}

func (u *suggestionUsecase) Approve(ctx context.Context, id, subject, body string, sendAt *time.Time) (*domain.Suggestion, *domain.ScheduledEmail, error) {
	s, err := u.loadSuggestion(id)
	if err != nil {
		return nil, nil, err
	}
	if !s.Status.CanApprove() {
		return nil, nil, apperrors.NewConflict(fmt.Sprintf("suggestion is %s and cannot be approved", s.Status))
	}

	now := u.now()
	when := now
	if sendAt != nil {
		when = sendAt.UTC()
	}
	s.SuggestedSendAt = &when
	s.MarkScheduled(subject, body, when, now)

	record := &domain.ScheduledEmail{
		ContactID:    s.ContactID,
		SuggestionID: &s.ID,
		ScheduledFor: when,
		Status:       domain.ScheduleStatusScheduled,
	}

	removed, err := u.suggestionRepo.Approve(s, record)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to approve suggestion: %w", err)
	}
	u.scheduler.Cancel(removed...)

	if err := u.scheduler.Enqueue(record); err != nil {
		record.MarkError(err)
		if updateErr := u.scheduleRepo.Update(record); updateErr != nil {
			u.logger.Error("Failed to record scheduling error", zap.String("schedule_id", record.ID), zap.Error(updateErr))
		}
		return nil, nil, apperrors.Wrap(err, "failed to schedule email")
	}

	u.logger.Info("Suggestion approved",
		zap.String("suggestion_id", s.ID),
		zap.String("schedule_id", record.ID),
		zap.Time("scheduled_for", when),
		zap.Int("schedules_replaced", len(removed)),
	)
	return s, record, nil
}

func (u *suggestionUsecase) Reject(ctx context.Context, id string) (*domain.Suggestion, error) {
	s, err := u.loadSuggestion(id)
	if err != nil {
		return nil, err
	}
	return u.sendBack(s)
}

func (u *suggestionUsecase) sendBack(s *domain.Suggestion) (*domain.Suggestion, error) {
	if s.Status == domain.SuggestionStatusSent {
		return nil, apperrors.NewConflict("suggestion was already sent")
	}

	s.MarkNeedsReview()
	cancelled, err := u.suggestionRepo.SendBack(s)
	if err != nil {
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}
	u.scheduler.Cancel(cancelled...)

	u.logger.Info("Suggestion sent back for review",
		zap.String("suggestion_id", s.ID),
		zap.Int("schedules_cancelled", len(cancelled)),
	)
	return s, nil
}

func (u *suggestionUsecase) ContactReplied(ctx context.Context, contactID string) error {
	outstanding, err := u.suggestionRepo.ListOutstandingByContact(contactID)
	if err != nil {
		return fmt.Errorf("failed to list outstanding suggestions: %w", err)
	}
	if len(outstanding) == 0 {
		return nil
	}

	for _, s := range outstanding {
		s.MarkNeedsReview()
		cancelled, err := u.suggestionRepo.SendBack(s)
		if err != nil {
			return fmt.Errorf("failed to invalidate suggestion %s: %w", s.ID, err)
		}
		u.scheduler.Cancel(cancelled...)
	}

	u.logger.Info("Contact replied, follow-ups need review",
		zap.String("contact_id", contactID),
		zap.Int("suggestions", len(outstanding)),
	)
	if u.notifier != nil {
		u.notifier.SuggestionsInvalidated(ctx, contactID, len(outstanding))
	}
	return nil
}

func (u *suggestionUsecase) ListScheduled() ([]*domain.ScheduledEmail, error) {
	return u.scheduleRepo.List(scheduledLimit)
}

func (u *suggestionUsecase) PurgeContact(ctx context.Context, contactID string) error {
	removed, err := u.suggestionRepo.DeleteByContactID(contactID)
	if err != nil {
		return fmt.Errorf("failed to delete suggestions: %w", err)
	}
	u.scheduler.Cancel(removed...)
	return nil
}

func (u *suggestionUsecase) loadContact(id string) (*contactdomain.Contact, error) {
	contact, err := u.contactRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if contact == nil {
		return nil, apperrors.NewNotFound("contact not found")
	}
	return contact, nil
}

func (u *suggestionUsecase) loadSuggestion(id string) (*domain.Suggestion, error) {
	s, err := u.suggestionRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion: %w", err)
	}
	if s == nil {
		return nil, apperrors.NewNotFound("suggestion not found")
	}
	return s, nil
}
