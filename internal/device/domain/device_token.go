package domain

import "time"

// DeviceToken is a Firebase Cloud Messaging registration of a browser or device
type DeviceToken struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Token      string    `json:"-" gorm:"uniqueIndex;not null"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string {
	return "device_tokens"
}
