package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/billing"
	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
	"github.com/focusgate/focusgate-server/internal/pkg/metrics/counter"
)

const paymentLinkTimeout = 20 * time.Second

// CreatePaymentLinkRequest is the optional JSON body for link creation. When
// an email is supplied the checkout page is prefilled and Razorpay mails the
// link; without one the payer types their address at checkout.
type CreatePaymentLinkRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=200"`
	Name  string `json:"name" validate:"omitempty,max=150"`
}

func (r *CreatePaymentLinkRequest) Validate() error {
	v := validator.New()
	return v.Struct(r)
}

// HandleCreatePaymentLink creates a hosted checkout for the 30-day premium
// pass. POST /create-payment-link
func HandleCreatePaymentLink(c *fiber.Ctx) error {
	return createLink(c, entitlements.TierStandard)
}

// HandleCreateEmergencyPaymentLink creates a hosted checkout for a single
// emergency unlock. POST /create-emergency-payment-link
func HandleCreateEmergencyPaymentLink(c *fiber.Ctx) error {
	return createLink(c, entitlements.TierEmergency)
}

// createLink is a thin pass-through to the provider: no local state is
// written here. The entitlement appears only once the paid webhook lands.
func createLink(c *fiber.Ctx, tier entitlements.Tier) error {
	var req CreatePaymentLinkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Body must be JSON")
		}
	}
	if err := req.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_email", "Provided email address is not valid")
	}

	var amount int64
	var description, refPrefix string
	switch tier {
	case entitlements.TierEmergency:
		amount = pricing.EmergencyPaise
		description = "FocusGate Emergency Unlock"
		refPrefix = "fg-em"
	default:
		amount = pricing.StandardPaise
		description = "FocusGate Premium (30 days)"
		refPrefix = "fg-std"
	}

	email := strings.TrimSpace(req.Email)
	ctx, cancel := context.WithTimeout(context.Background(), paymentLinkTimeout)
	defer cancel()

	link, err := razorpayClient.CreatePaymentLink(ctx, billing.CreatePaymentLinkInput{
		Amount:      amount,
		Currency:    "INR",
		Description: description,
		ReferenceID: refPrefix + "-" + uuid.NewString(),
		Customer: billing.PaymentLinkCustomer{
			Name:  strings.TrimSpace(req.Name),
			Email: email,
		},
		CallbackURL: strings.TrimRight(config.Get().PublicDomain, "/") + "/payment-success",
		NotifyEmail: email != "",
	})
	if err != nil {
		log.WithError(err).WithField("tier", string(tier)).Error("payment link creation failed")
		return jsonError(c, fiber.StatusBadGateway, "payment_link_failed", "Payment provider rejected the link request")
	}

	if cerr := counter.AddPaymentLinkCreated(string(tier)); cerr != nil {
		log.WithError(cerr).Debug("payment link counter update failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":      "created",
		"url":         link.ShortURL,
		"id":          link.ID,
		"amount":      link.Amount,
		"currency":    link.Currency,
		"referenceId": link.ReferenceID,
	})
}

// HandlePaymentSuccess renders the page Razorpay redirects to after a
// completed checkout. Purely informational: entitlement state comes from the
// webhook, never from this redirect.
// GET /payment-success
func HandlePaymentSuccess(c *fiber.Ctx) error {
	return c.Render("payment_success", fiber.Map{
		"PaymentID":  c.Query("razorpay_payment_id"),
		"LinkStatus": c.Query("razorpay_payment_link_status"),
	})
}
