package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/focusgate/focusgate-server/app/models"
)

// feedbackRepository implements the FeedbackRepository interface
type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new feedback repository instance
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

// Create stores a new feedback message
func (r *feedbackRepository) Create(feedback *models.Feedback) error {
	return r.db.Create(feedback).Error
}

// List retrieves feedback messages newest first with pagination
func (r *feedbackRepository) List(offset, limit int) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&feedbacks).Error
	return feedbacks, err
}

// CountSince counts messages received after the given instant.
func (r *feedbackRepository) CountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Feedback{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// CountByEmailSince counts recent messages from one sender. The feedback
// endpoint uses it as a per-address flood stop on top of the IP rate limit.
func (r *feedbackRepository) CountByEmailSince(email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Feedback{}).
		Where("email = ? AND created_at >= ?", email, since).
		Count(&count).Error
	return count, err
}
