package repository

import (
	"errors"
	"time"

	"crm-backend/internal/mail/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository stores the single connected mailbox credential
type CredentialRepository interface {
	// Get returns the credential, or nil when no mailbox is connected
	Get() (*domain.Credential, error)
	Save(cred *domain.Credential) error
	Delete() error
}

type credentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get() (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.Where("slot = ?", domain.CredentialKey).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

// Save upserts the credential under the fixed slot
func (r *credentialRepository) Save(cred *domain.Credential) error {
	now := time.Now().UTC()
	cred.Slot = domain.CredentialKey
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_email", "access_token", "refresh_token", "token_type", "expiry", "scopes", "updated_at",
		}),
	}).Create(cred).Error
}

func (r *credentialRepository) Delete() error {
	return r.db.Where("slot = ?", domain.CredentialKey).Delete(&domain.Credential{}).Error
}
