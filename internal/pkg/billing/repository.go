package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focusgate/focusgate-server/app/models"
)

// Repository provides the DB operations used by the billing services.
// Lookups that match no row return gorm.ErrRecordNotFound.
type Repository interface {
	UpsertPremiumPass(pass *models.PremiumPass) error
	FindPremiumPass(email string) (*models.PremiumPass, error)
	AppendEmergencyUnlock(unlock *models.EmergencyUnlock) (bool, error)
	FindEmergencyUnlock(email string) (*models.EmergencyUnlock, error)
	ConsumeEmergencyUnlock(email string, amount int64) (*models.EmergencyUnlock, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// UpsertPremiumPass writes the single current pass for an email. A conflict
// on the email key replaces the window columns in place, so a repeat payment
// resets the window instead of stacking a second pass. The write is atomic at
// the storage layer; concurrent deliveries for one email need no app locking.
func (r *gormRepository) UpsertPremiumPass(pass *models.PremiumPass) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "email"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"amount",
			"payment_id",
			"link_id",
			"paid_at",
			"expires_at",
			"updated_at",
		}),
	}).Create(pass).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("email = ?", pass.Email).First(pass).Error
}

func (r *gormRepository) FindPremiumPass(email string) (*models.PremiumPass, error) {
	var pass models.PremiumPass
	err := r.db.Where("email = ?", email).First(&pass).Error
	if err != nil {
		return nil, err
	}
	return &pass, nil
}

// AppendEmergencyUnlock inserts a new one-shot unlock. The unique payment id
// index absorbs webhook redeliveries: a conflict means this exact payment was
// already granted and the call reports created=false.
func (r *gormRepository) AppendEmergencyUnlock(unlock *models.EmergencyUnlock) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "payment_id"},
		},
		DoNothing: true,
	}).Create(unlock)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) FindEmergencyUnlock(email string) (*models.EmergencyUnlock, error) {
	var unlock models.EmergencyUnlock
	err := r.db.Where("email = ?", email).Order("id ASC").First(&unlock).Error
	if err != nil {
		return nil, err
	}
	return &unlock, nil
}

// ConsumeEmergencyUnlock soft-deletes the oldest unused unlock matching the
// email and amount and returns it. gorm.ErrRecordNotFound means there was
// nothing to consume.
func (r *gormRepository) ConsumeEmergencyUnlock(email string, amount int64) (*models.EmergencyUnlock, error) {
	var unlock models.EmergencyUnlock
	if err := r.db.Where("email = ? AND amount = ?", email, amount).Order("id ASC").First(&unlock).Error; err != nil {
		return nil, err
	}
	if err := r.db.Delete(&unlock).Error; err != nil {
		return nil, err
	}
	return &unlock, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
