package usecase

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"crm-backend/internal/contact/domain"
	"crm-backend/internal/contact/repository"
	"crm-backend/pkg/apperrors"

	"go.uber.org/zap"
)

const upcomingLimit = 5

type contactUsecase struct {
	contactRepo repository.ContactRepository
	actionRepo  repository.ActionRepository
	cleaners    []ContactCleaner
	logger      *zap.Logger
}

func NewContactUsecase(contactRepo repository.ContactRepository, actionRepo repository.ActionRepository, logger *zap.Logger) ContactUsecase {
	return &contactUsecase{
		contactRepo: contactRepo,
		actionRepo:  actionRepo,
		logger:      logger,
	}
}

func (u *contactUsecase) AddCleaner(cleaner ContactCleaner) {
	u.cleaners = append(u.cleaners, cleaner)
}

func (u *contactUsecase) CreateContact(input ContactInput, first *ActionInput) (*domain.Contact, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	contact := input.toContact()
	if first != nil && strings.TrimSpace(first.Title) != "" {
		contact.Actions = []domain.Action{{
			Title:   strings.TrimSpace(first.Title),
			DueDate: first.DueDate,
			Status:  domain.ActionStatusPending,
		}}
	}

	if err := u.contactRepo.Create(contact); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	u.logger.Info("Contact created", zap.String("contact_id", contact.ID), zap.Int("actions", len(contact.Actions)))
	return contact, nil
}

func (u *contactUsecase) GetContact(id string) (*domain.Contact, error) {
	contact, err := u.contactRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	if contact == nil {
		return nil, apperrors.NewNotFound("contact not found")
	}
	return contact, nil
}

func (u *contactUsecase) UpdateContact(id string, input ContactInput) (*domain.Contact, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	contact, err := u.GetContact(id)
	if err != nil {
		return nil, err
	}

	updated := input.toContact()
	contact.Name = updated.Name
	contact.Email = updated.Email
	contact.Company = updated.Company
	contact.Phone = updated.Phone
	contact.Timezone = updated.Timezone
	contact.Tags = updated.Tags
	contact.Notes = updated.Notes

	if err := u.contactRepo.Update(contact); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

func (u *contactUsecase) DeleteContact(ctx context.Context, id string) error {
	if _, err := u.GetContact(id); err != nil {
		return err
	}

	for _, cleaner := range u.cleaners {
		if err := cleaner.PurgeContact(ctx, id); err != nil {
			return fmt.Errorf("failed to purge contact data: %w", err)
		}
	}

	if err := u.contactRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	u.logger.Info("Contact deleted", zap.String("contact_id", id))
	return nil
}

func (u *contactUsecase) Dashboard(q string) (*Dashboard, error) {
	q = strings.TrimSpace(q)

	contacts, err := u.contactRepo.Search(q)
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}
	domain.SortByNextAction(contacts)

	upcoming, err := u.actionRepo.ListUpcoming(upcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming actions: %w", err)
	}

	entries := make([]DashboardEntry, 0, len(contacts))
	for _, c := range contacts {
		entries = append(entries, DashboardEntry{Contact: c, NextAction: c.NextAction()})
	}

	return &Dashboard{Query: q, Contacts: entries, Upcoming: upcoming}, nil
}

func (u *contactUsecase) AddAction(contactID string, input ActionInput) (*domain.Action, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest(apperrors.CodeValidation, "action title is required")
	}

	if _, err := u.GetContact(contactID); err != nil {
		return nil, err
	}

	action := &domain.Action{
		ContactID: contactID,
		Title:     title,
		DueDate:   input.DueDate,
		Status:    domain.ActionStatusPending,
	}
	if err := u.actionRepo.Create(action); err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}
	return action, nil
}

func (u *contactUsecase) CompleteAction(actionID string, input CompleteInput) (*domain.Action, bool, error) {
	action, err := u.actionRepo.FindByID(actionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load action: %w", err)
	}
	if action == nil {
		return nil, false, apperrors.NewNotFound("action not found")
	}
	if !action.Status.CanComplete() {
		return action, true, nil
	}

	nextTitle := strings.TrimSpace(input.NextTitle)
	if nextTitle == "" {
		return nil, false, apperrors.NewBadRequest(apperrors.CodeValidation, "next action title is required")
	}

	action.MarkComplete(strings.TrimSpace(input.Notes), time.Now().UTC())
	next := &domain.Action{
		ContactID: action.ContactID,
		Title:     nextTitle,
		DueDate:   input.NextDueDate,
		Status:    domain.ActionStatusPending,
	}

	if err := u.actionRepo.Complete(action, next); err != nil {
		return nil, false, fmt.Errorf("failed to complete action: %w", err)
	}

	u.logger.Info("Action completed",
		zap.String("action_id", action.ID),
		zap.String("next_action_id", next.ID),
	)
	return action, false, nil
}

func (in ContactInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.NewBadRequest(apperrors.CodeValidation, "name is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return apperrors.NewBadRequest(apperrors.CodeValidation, "invalid email address")
		}
	}
	return nil
}

func (in ContactInput) toContact() *domain.Contact {
	return &domain.Contact{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Company:  strings.TrimSpace(in.Company),
		Phone:    strings.TrimSpace(in.Phone),
		Timezone: strings.TrimSpace(in.Timezone),
		Tags:     strings.TrimSpace(in.Tags),
		Notes:    strings.TrimSpace(in.Notes),
	}
}
