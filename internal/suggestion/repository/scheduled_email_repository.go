package repository

import (
	"errors"
	"time"

	"crm-backend/internal/suggestion/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduledEmailRepository defines the interface for timed send records
type ScheduledEmailRepository interface {
	// FindByID returns the record with its contact and suggestion, or nil
	FindByID(id string) (*domain.ScheduledEmail, error)

	Update(record *domain.ScheduledEmail) error

	// RecordSent stores a successful send on both the record and its suggestion
	RecordSent(record *domain.ScheduledEmail, suggestion *domain.Suggestion) error

	// ListByStatus returns records in the given status, soonest first
	ListByStatus(status domain.ScheduleStatus) ([]*domain.ScheduledEmail, error)

	// List returns records soonest first, with contact and suggestion
	List(limit int) ([]*domain.ScheduledEmail, error)
}

type scheduledEmailRepository struct {
	db *gorm.DB
}

func NewScheduledEmailRepository(db *gorm.DB) ScheduledEmailRepository {
	return &scheduledEmailRepository{db: db}
}

func (r *scheduledEmailRepository) FindByID(id string) (*domain.ScheduledEmail, error) {
	var record domain.ScheduledEmail
	err := r.db.Preload("Contact").Preload("Suggestion").Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *scheduledEmailRepository) Update(record *domain.ScheduledEmail) error {
	record.UpdatedAt = time.Now().UTC()
	return r.db.Omit(clause.Associations).Save(record).Error
}

func (r *scheduledEmailRepository) RecordSent(record *domain.ScheduledEmail, suggestion *domain.Suggestion) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		record.UpdatedAt = now
		if err := tx.Omit(clause.Associations).Save(record).Error; err != nil {
			return err
		}
		if suggestion == nil {
			return nil
		}
		suggestion.UpdatedAt = now
		return tx.Omit(clause.Associations).Save(suggestion).Error
	})
}

func (r *scheduledEmailRepository) ListByStatus(status domain.ScheduleStatus) ([]*domain.ScheduledEmail, error) {
	var records []*domain.ScheduledEmail
	err := r.db.Where("status = ?", status).Order("scheduled_for ASC").Find(&records).Error
	return records, err
}

func (r *scheduledEmailRepository) List(limit int) ([]*domain.ScheduledEmail, error) {
	var records []*domain.ScheduledEmail
	err := r.db.Preload("Contact").Preload("Suggestion").
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
