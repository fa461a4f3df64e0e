package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/archive"
	"github.com/focusgate/focusgate-server/internal/pkg/billing"
	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/database"
	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
	"github.com/focusgate/focusgate-server/internal/pkg/metrics/counter"
	"github.com/focusgate/focusgate-server/internal/pkg/statistics"
)

const webhookProcessingTimeout = 15 * time.Second

var (
	billingService *billing.Service
	statusService  *billing.StatusService
	razorpayClient *billing.RazorpayClient
	pricing        entitlements.Pricing
)

// InitializeBillingController wires the webhook pipeline and the status read
// path against the shared database. Archiving stays off when its bucket is
// not configured.
func InitializeBillingController() {
	pricing = entitlements.PricingFromEnv()
	razorpayClient = billing.NewRazorpayClientFromEnv()
	resolver := billing.NewIdentityResolver(razorpayClient)

	archiver, err := archive.NewArchiverFromEnv()
	if err != nil {
		log.WithError(err).Warn("webhook payload archive unavailable, continuing without it")
		archiver = nil
	}

	// A nil *Archiver must stay a nil interface, or the service would call
	// through it.
	var payloadArchiver billing.PayloadArchiver
	if archiver != nil {
		payloadArchiver = archiver
	}

	billingService = billing.NewServiceFromDB(database.GetDB(), resolver, payloadArchiver, pricing)
	statusService = billing.NewStatusServiceFromDB(database.GetDB())
}

// HandleRazorpayWebhook ingests one signed delivery from the payment
// provider. Order is fixed: signature over the untouched raw bytes first,
// JSON decode second, then the reconciliation pipeline. Only a store failure
// returns a 5xx so the provider retries; every semantic ambiguity is
// acknowledged as ok.
func HandleRazorpayWebhook(c *fiber.Ctx) error {
	// BodyRaw returns a slice into fasthttp's buffer, which is recycled after
	// the handler returns. Copy before the context is used for anything else.
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Razorpay-Signature"))
	eventID := strings.TrimSpace(c.Get("X-Razorpay-Event-Id"))
	secret := config.Get().RazorpayWebhookSecret

	if !billing.VerifyRazorpayWebhookSignature(rawBody, signature, secret) {
		log.WithFields(log.Fields{
			"event_id": eventID,
			"ip":       GetClientIP(c),
		}).Warn("webhook rejected: invalid signature")
		countOutcome("invalid_signature")
		return jsonError(c, fiber.StatusBadRequest, "invalid_signature", "Webhook signature verification failed")
	}

	evt, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		countOutcome("malformed_payload")
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Webhook body is not valid JSON")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessingTimeout)
	defer cancel()

	outcome, err := billingService.ProcessPaymentEvent(ctx, evt, rawBody, eventID)
	if err != nil {
		log.WithError(err).WithField("event_id", eventID).Error("webhook processing failed, provider will retry")
		countOutcome("store_failure")
		return jsonError(c, fiber.StatusInternalServerError, "webhook_persist_failed", "Event could not be stored")
	}

	countOutcome(string(outcome))
	if outcome == billing.OutcomeGrantedStandard || outcome == billing.OutcomeGrantedEmergency {
		statistics.ResetCacheUpdateTimer()
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// HandleCheckPaymentStatus is the extension's poll for the timed tier.
// GET /check-payment-status?email=
func HandleCheckPaymentStatus(c *fiber.Ctx) error {
	status, err := statusService.CheckPremiumStatus(c.Query("email"))
	if err != nil {
		log.WithError(err).Error("premium status lookup failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Status lookup failed")
	}

	resp := fiber.Map{"status": string(status.State)}
	if status.ExpiresAt != nil {
		resp["expiresAt"] = status.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleCheckEmergencyStatus is the poll for the one-shot tier. The tier is
// an independent namespace: holding a premium pass says nothing here.
// GET /check-emergency-status?email=
func HandleCheckEmergencyStatus(c *fiber.Ctx) error {
	status, err := statusService.CheckEmergencyStatus(c.Query("email"))
	if err != nil {
		log.WithError(err).Error("emergency status lookup failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Status lookup failed")
	}

	resp := fiber.Map{"status": string(status.State)}
	if status.Amount != nil {
		resp["amount"] = *status.Amount
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleDeleteEmergencyPayment consumes the oldest unused unlock for the
// email. Not-found is a regular 200 outcome so the extension can tell the
// user the unlock was already spent.
// GET /delete-emergency-payment?email=
func HandleDeleteEmergencyPayment(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return jsonError(c, fiber.StatusBadRequest, "missing_email", "Query parameter 'email' is required")
	}

	deleted, err := billingService.ConsumeEmergencyUnlock(c.Context(), email)
	if err != nil {
		log.WithError(err).Error("emergency unlock delete failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Delete failed")
	}

	if !deleted {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "not_found"})
	}

	statistics.ResetCacheUpdateTimer()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "deleted"})
}

// countOutcome bumps the per-outcome redis counter. Counters are operational
// garnish; a redis hiccup must not affect the delivery response.
func countOutcome(outcome string) {
	if err := counter.AddWebhookOutcome(outcome); err != nil {
		log.WithError(err).Debug("webhook outcome counter update failed")
	}
}
