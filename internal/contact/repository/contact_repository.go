package repository

import (
	"errors"
	"strings"
	"time"

	"crm-backend/internal/contact/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactRepository defines the interface for contact data access
type ContactRepository interface {
	// Create inserts the contact together with any actions attached to it
	Create(contact *domain.Contact) error

	// CreateBatch inserts every contact and its actions in one transaction
	CreateBatch(contacts []*domain.Contact) error

	// FindByID loads a contact with its actions ordered by due date
	FindByID(id string) (*domain.Contact, error)

	// FindByEmail matches the stored address case-insensitively
	FindByEmail(email string) (*domain.Contact, error)

	// Search returns contacts whose name, email or company contain q, with actions
	Search(q string) ([]*domain.Contact, error)

	Update(contact *domain.Contact) error

	// Delete removes the contact and its actions
	Delete(id string) error

	TouchLastContacted(id string, at time.Time) error
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(contact *domain.Contact) error {
	prepareContact(contact)
	return r.db.Create(contact).Error
}

func (r *contactRepository) CreateBatch(contacts []*domain.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range contacts {
			prepareContact(c)
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *contactRepository) FindByID(id string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.Preload("Actions", orderByDueDate).Where("id = ?", id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) FindByEmail(email string) (*domain.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	// sqlite LOWER only folds ASCII, so compare in Go
	var candidates []*domain.Contact
	if err := r.db.Where("email <> ''").Order("created_at ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Email), email) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *contactRepository) Search(q string) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	if err := r.db.Preload("Actions", orderByDueDate).Find(&contacts).Error; err != nil {
		return nil, err
	}
	if strings.TrimSpace(q) == "" {
		return contacts, nil
	}

	matched := contacts[:0]
	for _, c := range contacts {
		if c.Matches(q) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (r *contactRepository) Update(contact *domain.Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	return r.db.Omit(clause.Associations).Save(contact).Error
}

func (r *contactRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&domain.Action{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Contact{}, "id = ?", id).Error
	})
}

func (r *contactRepository) TouchLastContacted(id string, at time.Time) error {
	return r.db.Model(&domain.Contact{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_contacted_at": at,
			"updated_at":        time.Now().UTC(),
		}).Error
}

func prepareContact(contact *domain.Contact) {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	for i := range contact.Actions {
		a := &contact.Actions[i]
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Status == "" {
			a.Status = domain.ActionStatusPending
		}
		a.ContactID = contact.ID
	}
}

// orderByDueDate sorts dated actions first, portable across sqlite and postgres
func orderByDueDate(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END, due_date ASC, created_at ASC")
}
