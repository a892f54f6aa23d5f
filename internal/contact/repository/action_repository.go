package repository

import (
	"errors"
	"time"

	"crm-backend/internal/contact/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActionRepository defines the interface for follow-up action data access
type ActionRepository interface {
	Create(action *domain.Action) error
	FindByID(id string) (*domain.Action, error)

	// Complete saves the completed action and inserts its successor atomically
	Complete(done *domain.Action, next *domain.Action) error

	// ListUpcoming returns the earliest pending actions with their contact
	ListUpcoming(limit int) ([]*domain.Action, error)
}

type actionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) Create(action *domain.Action) error {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.Status == "" {
		action.Status = domain.ActionStatusPending
	}
	return r.db.Omit(clause.Associations).Create(action).Error
}

func (r *actionRepository) FindByID(id string) (*domain.Action, error) {
	var action domain.Action
	err := r.db.Where("id = ?", id).First(&action).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &action, nil
}

func (r *actionRepository) Complete(done *domain.Action, next *domain.Action) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		done.UpdatedAt = time.Now().UTC()
		if err := tx.Omit(clause.Associations).Save(done).Error; err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if next.ID == "" {
			next.ID = uuid.New().String()
		}
		if next.Status == "" {
			next.Status = domain.ActionStatusPending
		}
		return tx.Omit(clause.Associations).Create(next).Error
	})
}

func (r *actionRepository) ListUpcoming(limit int) ([]*domain.Action, error) {
	var actions []*domain.Action
	err := r.db.Preload("Contact").
		Where("status = ?", domain.ActionStatusPending).
		Scopes(orderByDueDate).
		Limit(limit).
		Find(&actions).Error
	return actions, err
}
