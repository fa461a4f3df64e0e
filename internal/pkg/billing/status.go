package billing

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// StatusState enumerates what the polling extension can observe. The webhook
// path never leaks its internal failures here.
type StatusState string

const (
	StatusMissingEmail StatusState = "missing_email"
	StatusPending      StatusState = "pending"
	StatusPaid         StatusState = "paid"
	StatusExpired      StatusState = "expired"
)

// PremiumStatus is the read model for the timed tier.
type PremiumStatus struct {
	State     StatusState
	ExpiresAt *time.Time
}

// EmergencyStatus is the read model for the one-shot tier. The two tiers are
// independent namespaces; one email can hold both at once.
type EmergencyStatus struct {
	State  StatusState
	Amount *int64
}

// StatusService answers entitlement polls. It is a pure read path: expiry is
// computed against the clock at query time and never written back, so no
// background sweep exists.
type StatusService struct {
	repo Repository
	now  func() time.Time
}

func NewStatusService(repo Repository) *StatusService {
	return &StatusService{repo: repo, now: time.Now}
}

// NewStatusServiceFromDB creates a status service from a GORM DB handle.
func NewStatusServiceFromDB(db *gorm.DB) *StatusService {
	return NewStatusService(NewRepository(db))
}

// CheckPremiumStatus reports the timed-tier state for an email.
func (s *StatusService) CheckPremiumStatus(email string) (PremiumStatus, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return PremiumStatus{State: StatusMissingEmail}, nil
	}

	pass, err := s.repo.FindPremiumPass(normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PremiumStatus{State: StatusPending}, nil
	}
	if err != nil {
		return PremiumStatus{}, err
	}

	if pass.Expired(s.now()) {
		return PremiumStatus{State: StatusExpired}, nil
	}
	expiresAt := pass.ExpiresAt
	return PremiumStatus{State: StatusPaid, ExpiresAt: &expiresAt}, nil
}

// CheckEmergencyStatus reports whether an unused one-shot unlock exists.
func (s *StatusService) CheckEmergencyStatus(email string) (EmergencyStatus, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return EmergencyStatus{State: StatusMissingEmail}, nil
	}

	unlock, err := s.repo.FindEmergencyUnlock(normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmergencyStatus{State: StatusPending}, nil
	}
	if err != nil {
		return EmergencyStatus{}, err
	}

	amount := unlock.Amount
	return EmergencyStatus{State: StatusPaid, Amount: &amount}, nil
}
