package repository

import (
	"crm-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for the mail log
type MessageRepository interface {
	ExistsByMessageID(messageID string) (bool, error)
	Create(msg *domain.Message) error

	// CreateBatch stores all messages or none
	CreateBatch(msgs []*domain.Message) error

	// RecentForContact returns the newest messages first
	RecentForContact(contactID string, limit int) ([]*domain.Message, error)

	DeleteByContactID(contactID string) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) ExistsByMessageID(messageID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).Where("message_id = ?", messageID).Count(&count).Error
	return count > 0, err
}

func (r *messageRepository) Create(msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	return r.db.Create(msg).Error
}

func (r *messageRepository) CreateBatch(msgs []*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, msg := range msgs {
			if msg.ID == "" {
				msg.ID = uuid.New().String()
			}
			if err := tx.Create(msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *messageRepository) RecentForContact(contactID string, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := r.db.Where("contact_id = ?", contactID).
		Order("CASE WHEN received_at IS NULL THEN 1 ELSE 0 END, received_at DESC, created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) DeleteByContactID(contactID string) error {
	return r.db.Where("contact_id = ?", contactID).Delete(&domain.Message{}).Error
}
