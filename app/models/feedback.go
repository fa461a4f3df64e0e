package models

import "time"

// Feedback is a free-form message sent from the extension's feedback form.
// Stored for follow-up and forwarded to the feedback inbox by mail.
type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(200);not null;index" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	ClientIP  string    `gorm:"type:varchar(64);not null;default:''" json:"-"`
	Country   string    `gorm:"type:varchar(100);not null;default:''" json:"country,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
