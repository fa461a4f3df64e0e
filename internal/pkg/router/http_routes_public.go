package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/focusgate/focusgate-server/app/controllers"
	"github.com/focusgate/focusgate-server/internal/pkg/constants"
	"github.com/focusgate/focusgate-server/internal/pkg/ratelimit"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Service root + health probe
	app.Get("/", controllers.HandleHome)
	app.Get("/health", controllers.HandleHealth)

	// Payment provider webhook. No rate limit: the provider retries on 429
	// and the signature check is cheaper than the limiter's redis round
	// trip. Signature verification happens in the controller on the raw
	// body.
	app.Post(constants.WebhookRoute, controllers.HandleRazorpayWebhook)

	// Entitlement polls from the extension. Generous limit, the extension
	// polls every few minutes per install.
	pollLimiter := ratelimit.New(120, 1*time.Minute)
	app.Get(constants.CheckPaymentStatusRoute, pollLimiter, controllers.HandleCheckPaymentStatus)
	app.Get(constants.CheckEmergencyStatusRoute, pollLimiter, controllers.HandleCheckEmergencyStatus)
	app.Get(constants.DeleteEmergencyPaymentRoute, pollLimiter, controllers.HandleDeleteEmergencyPayment)

	// Hosted checkout creation. Tighter: every call costs a provider API
	// round trip.
	linkLimiter := ratelimit.New(10, 1*time.Minute)
	app.Post(constants.CreatePaymentLinkRoute, linkLimiter, controllers.HandleCreatePaymentLink)
	app.Post(constants.CreateEmergencyPaymentLinkRoute, linkLimiter, controllers.HandleCreateEmergencyPaymentLink)

	// Landing page the provider redirects to after checkout
	app.Get(constants.PaymentSuccessRoute, controllers.HandlePaymentSuccess)

	// Feedback relay
	app.Post(constants.FeedbackRoute, ratelimit.New(5, 1*time.Minute), controllers.HandleFeedback)

	// OTP sign-in. Strict limits: each request sends a mail.
	app.Post(constants.AuthRequestOTPRoute, ratelimit.New(3, 1*time.Minute), controllers.HandleRequestOTP)
	app.Post(constants.AuthVerifyOTPRoute, ratelimit.New(10, 1*time.Minute), controllers.HandleVerifyOTP)
}
