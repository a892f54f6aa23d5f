package repository

import (
	"time"

	"crm-backend/internal/device/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository defines the interface for push token operations
type DeviceRepository interface {
	// Save registers token, or refreshes its device info when already known
	Save(token, deviceInfo string) error
	Tokens() ([]string, error)
	Delete(tokens ...string) error
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Save(token, deviceInfo string) error {
	now := time.Now().UTC()
	device := &domain.DeviceToken{
		ID:         uuid.New().String(),
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// INSERT ... ON CONFLICT (token) DO UPDATE
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"device_info", "updated_at"}),
	}).Create(device).Error
}

func (r *deviceRepository) Tokens() ([]string, error) {
	var tokens []string
	err := r.db.Model(&domain.DeviceToken{}).Order("created_at ASC").Pluck("token", &tokens).Error
	return tokens, err
}

func (r *deviceRepository) Delete(tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.Where("token IN ?", tokens).Delete(&domain.DeviceToken{}).Error
}
