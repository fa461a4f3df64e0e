package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/focusgate/focusgate-server/app/models"
	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
)

// PayloadArchiver stores raw webhook payloads out of band for audit.
// Archiving is best-effort: failures are logged and never fail a delivery.
type PayloadArchiver interface {
	ArchiveWebhookPayload(ctx context.Context, provider, providerEventID string, payload []byte) error
}

// Service reconciles verified webhook deliveries into entitlements. The
// caller is responsible for signature verification; nothing here may run on
// an unverified body.
type Service struct {
	repo     Repository
	resolver *IdentityResolver
	archiver PayloadArchiver
	pricing  entitlements.Pricing
	now      func() time.Time
}

// NewService creates a billing service from injected collaborators. The
// archiver may be nil when payload archiving is disabled.
func NewService(repo Repository, resolver *IdentityResolver, archiver PayloadArchiver, pricing entitlements.Pricing) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		archiver: archiver,
		pricing:  pricing,
		now:      time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, resolver *IdentityResolver, archiver PayloadArchiver, pricing entitlements.Pricing) *Service {
	return NewService(NewRepository(db), resolver, archiver, pricing)
}

// ProcessPaymentEvent runs one verified delivery through the ledger, the
// identity pipeline and the grant. The returned error is reserved for store
// failures, the only case where the provider should retry. Everything else
// resolves to an Outcome and a successful acknowledgment.
func (s *Service) ProcessPaymentEvent(ctx context.Context, evt *PaymentLinkEvent, rawBody []byte, providerEventID string) (Outcome, error) {
	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        ProviderRazorpay,
		ProviderEventID: providerEventID,
		EventType:       evt.Event,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		return "", fmt.Errorf("record webhook event: %w", err)
	}
	if !created {
		log.WithFields(log.Fields{
			"provider_event_id": stored.ProviderEventID,
			"event_type":        evt.Event,
		}).Info("webhook redelivery ignored")
		return OutcomeDuplicate, nil
	}

	s.archivePayload(ctx, stored.ProviderEventID, rawBody)

	if !evt.IsPaymentSuccess() {
		s.markProcessed(ctx, stored.ID, nil)
		return OutcomeIgnoredEvent, nil
	}

	identity := evt.ExtractIdentity()
	resolved, resolveErr := s.resolver.Resolve(ctx, identity)
	if resolveErr != nil {
		log.WithError(resolveErr).WithField("link_id", identity.LinkID).
			Warn("payment link lookup failed, continuing with webhook identity")
	}
	identity = resolved

	tier, classifyErr := ClassifyPayment(identity, s.pricing)
	if classifyErr != nil {
		s.markProcessed(ctx, stored.ID, classifyErr)
		return s.skipOutcome(stored.ProviderEventID, identity, classifyErr), nil
	}

	paidAt := evt.OccurredAt(s.now())
	var outcome Outcome
	var grantErr error
	switch tier {
	case entitlements.TierStandard:
		grantErr = s.grantStandard(identity, paidAt)
		outcome = OutcomeGrantedStandard
	case entitlements.TierEmergency:
		var granted bool
		granted, grantErr = s.grantEmergency(identity, paidAt, rawBody)
		outcome = OutcomeGrantedEmergency
		if grantErr == nil && !granted {
			outcome = OutcomeDuplicate
		}
	}
	if grantErr != nil {
		s.markProcessed(ctx, stored.ID, grantErr)
		return "", fmt.Errorf("persist entitlement: %w", grantErr)
	}

	s.markProcessed(ctx, stored.ID, nil)
	log.WithFields(log.Fields{
		"provider_event_id": stored.ProviderEventID,
		"email":             identity.Email,
		"amount":            *identity.Amount,
		"tier":              string(tier),
		"outcome":           string(outcome),
	}).Info("payment webhook granted entitlement")
	return outcome, nil
}

// ConsumeEmergencyUnlock uses up the oldest unused unlock for the email at
// the configured emergency price. Returns false when none exists.
func (s *Service) ConsumeEmergencyUnlock(ctx context.Context, email string) (bool, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false, errors.New("email is required")
	}
	unlock, err := s.repo.ConsumeEmergencyUnlock(normalized, s.pricing.EmergencyPaise)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.WithFields(log.Fields{
		"email":      unlock.Email,
		"payment_id": unlock.PaymentID,
	}).Info("emergency unlock consumed")
	return true, nil
}

// RecordWebhookEvent persists a delivery into the ledger idempotently.
// Deliveries without a provider event id fall back to a payload hash so the
// row still dedupes byte-identical redeliveries.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

func (s *Service) grantStandard(identity PaymentIdentity, paidAt time.Time) error {
	pass := &models.PremiumPass{
		Email:     identity.Email,
		Amount:    *identity.Amount,
		PaymentID: identity.PaymentID,
		LinkID:    identity.LinkID,
		PaidAt:    paidAt,
		ExpiresAt: paidAt.Add(s.pricing.Window()),
	}
	return s.repo.UpsertPremiumPass(pass)
}

func (s *Service) grantEmergency(identity PaymentIdentity, paidAt time.Time, rawBody []byte) (bool, error) {
	paymentID := identity.PaymentID
	if paymentID == "" {
		sum := sha256.Sum256(rawBody)
		paymentID = "hash:" + hex.EncodeToString(sum[:])
	}
	unlock := &models.EmergencyUnlock{
		Email:     identity.Email,
		Amount:    *identity.Amount,
		PaymentID: paymentID,
		LinkID:    identity.LinkID,
		PaidAt:    paidAt,
	}
	return s.repo.AppendEmergencyUnlock(unlock)
}

// skipOutcome translates a classification refusal into its outcome and logs
// it at the right level. Unresolvable identities are an expected payload
// inconsistency, not an error.
func (s *Service) skipOutcome(providerEventID string, identity PaymentIdentity, classifyErr error) Outcome {
	fields := log.Fields{
		"provider_event_id": providerEventID,
		"payment_id":        identity.PaymentID,
		"link_id":           identity.LinkID,
	}
	if identity.Amount != nil {
		fields["amount"] = *identity.Amount
	}

	switch {
	case errors.Is(classifyErr, ErrUnresolvableIdentity):
		fields["email"] = identity.Email
		log.WithFields(fields).Warn("webhook acknowledged without grant: no trustworthy customer email")
		return OutcomeNoIdentity
	case errors.Is(classifyErr, ErrMissingAmount):
		log.WithFields(fields).Warn("webhook acknowledged without grant: payload carries no amount")
		return OutcomeNoAmount
	default:
		log.WithFields(fields).Warn("webhook acknowledged without grant: amount matches no price point")
		return OutcomeUnknownAmount
	}
}

func (s *Service) archivePayload(ctx context.Context, providerEventID string, rawBody []byte) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveWebhookPayload(ctx, ProviderRazorpay, providerEventID, rawBody); err != nil {
		log.WithError(err).WithField("provider_event_id", providerEventID).
			Warn("webhook payload archive failed")
	}
}

// markProcessed stamps the ledger row. The grant is already durable at this
// point, so a failed stamp is logged instead of failing the delivery.
func (s *Service) markProcessed(ctx context.Context, webhookEventID uint, processingErr error) {
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	if err := s.repo.MarkWebhookProcessed(webhookEventID, errMsg); err != nil {
		log.WithError(err).WithField("webhook_event_id", webhookEventID).
			Warn("failed to mark webhook event processed")
	}
}
