package repository

import (
	"errors"
	"time"

	"crm-backend/internal/suggestion/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuggestionRepository defines the interface for suggestion persistence.
// Methods that touch schedules as well run in one transaction.
type SuggestionRepository interface {
	Create(s *domain.Suggestion) error

	// FindByID returns the suggestion with its contact and action, or nil
	FindByID(id string) (*domain.Suggestion, error)

	// ListRecent returns the newest suggestions first, with their contact
	ListRecent(limit int) ([]*domain.Suggestion, error)

	ListOutstandingByContact(contactID string) ([]*domain.Suggestion, error)

	// Approve saves s and replaces all of its schedule records with record.
	// It returns the ids of the removed records.
	Approve(s *domain.Suggestion, record *domain.ScheduledEmail) ([]string, error)

	// SendBack saves s and cancels its active schedule records, returning
	// the cancelled ids.
	SendBack(s *domain.Suggestion) ([]string, error)

	// Delete removes the suggestion and its schedule records, returning the
	// ids of the removed records.
	Delete(id string) ([]string, error)

	// DeleteByContactID removes every suggestion and schedule of a contact,
	// returning the ids of the removed schedule records.
	DeleteByContactID(contactID string) ([]string, error)
}

type suggestionRepository struct {
	db *gorm.DB
}

func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

func (r *suggestionRepository) Create(s *domain.Suggestion) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = domain.SuggestionStatusCreated
	}
	return r.db.Omit(clause.Associations).Create(s).Error
}

func (r *suggestionRepository) FindByID(id string) (*domain.Suggestion, error) {
	var s domain.Suggestion
	err := r.db.Preload("Contact").Preload("Action").Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *suggestionRepository) ListRecent(limit int) ([]*domain.Suggestion, error) {
	var suggestions []*domain.Suggestion
	err := r.db.Preload("Contact").
		Order("created_at DESC").
		Limit(limit).
		Find(&suggestions).Error
	return suggestions, err
}

func (r *suggestionRepository) ListOutstandingByContact(contactID string) ([]*domain.Suggestion, error) {
	var suggestions []*domain.Suggestion
	err := r.db.Where("contact_id = ? AND status IN ?", contactID, []domain.SuggestionStatus{
		domain.SuggestionStatusApproved, domain.SuggestionStatusScheduled,
	}).Order("created_at ASC").Find(&suggestions).Error
	return suggestions, err
}

func (r *suggestionRepository) Approve(s *domain.Suggestion, record *domain.ScheduledEmail) ([]string, error) {
	var removed []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = scheduleIDs(tx.Where("suggestion_id = ?", s.ID))
		if err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ?", s.ID).Delete(&domain.ScheduledEmail{}).Error; err != nil {
			return err
		}

		s.UpdatedAt = time.Now().UTC()
		if err := tx.Omit(clause.Associations).Save(s).Error; err != nil {
			return err
		}

		if record.ID == "" {
			record.ID = uuid.New().String()
		}
		return tx.Omit(clause.Associations).Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *suggestionRepository) SendBack(s *domain.Suggestion) ([]string, error) {
	var cancelled []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		active := tx.Where("suggestion_id = ? AND status IN ?", s.ID, activeScheduleStatuses)

		var err error
		cancelled, err = scheduleIDs(active)
		if err != nil {
			return err
		}
		if len(cancelled) > 0 {
			err = tx.Model(&domain.ScheduledEmail{}).
				Where("id IN ?", cancelled).
				Updates(map[string]interface{}{
					"status":     domain.ScheduleStatusCancelled,
					"updated_at": time.Now().UTC(),
				}).Error
			if err != nil {
				return err
			}
		}

		s.UpdatedAt = time.Now().UTC()
		return tx.Omit(clause.Associations).Save(s).Error
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (r *suggestionRepository) Delete(id string) ([]string, error) {
	var removed []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = scheduleIDs(tx.Where("suggestion_id = ?", id))
		if err != nil {
			return err
		}
		if err := tx.Where("suggestion_id = ?", id).Delete(&domain.ScheduledEmail{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Suggestion{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *suggestionRepository) DeleteByContactID(contactID string) ([]string, error) {
	var removed []string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = scheduleIDs(tx.Where("contact_id = ?", contactID))
		if err != nil {
			return err
		}
		if err := tx.Where("contact_id = ?", contactID).Delete(&domain.ScheduledEmail{}).Error; err != nil {
			return err
		}
		return tx.Where("contact_id = ?", contactID).Delete(&domain.Suggestion{}).Error
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

var activeScheduleStatuses = []domain.ScheduleStatus{
	domain.ScheduleStatusPending, domain.ScheduleStatusScheduled,
}

func scheduleIDs(query *gorm.DB) ([]string, error) {
	var ids []string
	err := query.Model(&domain.ScheduledEmail{}).Pluck("id", &ids).Error
	return ids, err
}
