package models

import "time"

// PremiumPass is the time-limited entitlement a completed standard payment
// grants. One row per email: a repeat payment moves the window instead of
// stacking a second pass, so PaidAt/ExpiresAt always reflect the latest
// payment.
type PremiumPass struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(200);not null;index:ux_premium_passes_email,unique" json:"email"`
	Amount    int64     `gorm:"not null" json:"amount"`
	PaymentID string    `gorm:"type:varchar(191);not null;default:''" json:"payment_id"`
	LinkID    string    `gorm:"type:varchar(191);not null;default:''" json:"link_id"`
	PaidAt    time.Time `gorm:"type:timestamp;not null" json:"paid_at"`
	ExpiresAt time.Time `gorm:"type:timestamp;not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Expired reports whether the pass window has closed at the given instant.
// Expiry is evaluated at read time; no background job flips rows.
func (p *PremiumPass) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
