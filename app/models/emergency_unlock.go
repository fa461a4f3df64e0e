package models

import (
	"time"

	"gorm.io/gorm"
)

// EmergencyUnlock is a one-shot entitlement. Every distinct emergency payment
// appends a row, so one email can hold several unused unlocks at once. The
// unique payment index keeps webhook redeliveries from appending twice.
//
// Consuming an unlock soft-deletes the row: DeletedAt doubles as the
// used-marker, and the default GORM scope hides consumed rows from lookups.
type EmergencyUnlock struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Email     string         `gorm:"type:varchar(200);not null;index" json:"email"`
	Amount    int64          `gorm:"not null" json:"amount"`
	PaymentID string         `gorm:"type:varchar(191);not null;index:ux_emergency_unlocks_payment,unique" json:"payment_id"`
	LinkID    string         `gorm:"type:varchar(191);not null;default:''" json:"link_id"`
	PaidAt    time.Time      `gorm:"type:timestamp;not null" json:"paid_at"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
