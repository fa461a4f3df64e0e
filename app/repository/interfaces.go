package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/focusgate/focusgate-server/app/models"
)

// FeedbackRepository defines the interface for feedback-related database
// operations. Entitlement persistence has its own repository in the billing
// package; this layer only covers the support tables.
type FeedbackRepository interface {
	Create(feedback *models.Feedback) error
	List(offset, limit int) ([]models.Feedback, error)
	CountSince(since time.Time) (int64, error)
	CountByEmailSince(email string, since time.Time) (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Feedback FeedbackRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Feedback: NewFeedbackRepository(db),
	}
}
