package controllers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/billing"
	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
	"github.com/focusgate/focusgate-server/internal/pkg/geoip"
	"github.com/focusgate/focusgate-server/internal/pkg/mail"
	"github.com/focusgate/focusgate-server/internal/pkg/security"
)

const geoLookupTimeout = 5 * time.Second

var (
	otpService *security.OTPService
	geoClient  *geoip.Client
	sessionTTL time.Duration
)

// InitializeAuthController wires the OTP sign-in flow. The extension has no
// passwords: a mailed one-time code proves ownership of the email, and the
// session token carries that email for later entitlement reads.
func InitializeAuthController() {
	otpService = security.NewOTPServiceFromEnv()
	geoClient = geoip.NewClientFromEnv()
	sessionTTL = env.GetEnvDuration("SESSION_TTL", 30*24*time.Hour)
}

// RequestOTPRequest is the body of POST /auth/request-otp.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=200"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=200"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// HandleRequestOTP mails a fresh sign-in code to the given address.
// The response is the same whether the mail went out or the address is
// unknown to us; the extension shows "check your inbox" either way.
// POST /auth/request-otp
func HandleRequestOTP(c *fiber.Ctx) error {
	var req RequestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Body must be JSON")
	}
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_email", "Provided email address is not valid")
	}

	email := billing.NormalizeEmail(req.Email)
	code, err := otpService.Issue(email)
	if err != nil {
		log.WithError(err).Error("OTP issue failed")
		return jsonError(c, fiber.StatusInternalServerError, "otp_issue_failed", "Could not create a sign-in code")
	}

	go sendOTPMail(email, code, GetClientIP(c))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "sent"})
}

// HandleVerifyOTP redeems a mailed code for a session token. Codes are
// single-use: a wrong guess burns the code and the user has to request a new
// one.
// POST /auth/verify-otp
func HandleVerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Body must be JSON")
	}
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Email and 6-digit code are required")
	}

	email := billing.NormalizeEmail(req.Email)
	ok, err := otpService.Verify(email, req.Code)
	if err != nil {
		log.WithError(err).Error("OTP verification failed")
		return jsonError(c, fiber.StatusInternalServerError, "otp_verify_failed", "Could not verify the sign-in code")
	}
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "invalid_code", "Code is wrong or expired, request a new one")
	}

	token, expiresAt, err := security.IssueSessionToken([]byte(config.Get().JWTSecret), email, sessionTTL)
	if err != nil {
		log.WithError(err).Error("session token issue failed")
		return jsonError(c, fiber.StatusInternalServerError, "token_issue_failed", "Could not create a session")
	}

	log.WithField("email", maskEmail(email)).Info("extension session issued")
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":    "ok",
		"token":     token,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// sendOTPMail delivers the code with a coarse location line so users can
// spot sign-in attempts that are not theirs. Runs detached from the request.
func sendOTPMail(email, code, clientIP string) {
	ctx, cancel := context.WithTimeout(context.Background(), geoLookupTimeout)
	defer cancel()

	locationLine := ""
	if location := geoClient.CountryFor(ctx, clientIP); location != "" {
		locationLine = fmt.Sprintf("<p>Requested from: %s</p>", location)
	}

	appName := config.Get().AppName
	body := fmt.Sprintf(`<p>Your %s sign-in code is:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p>
<p>The code expires in a few minutes. If you did not request it, ignore this mail.</p>
%s`, appName, code, locationLine)

	if err := mail.SendMail(email, appName+" sign-in code", body); err != nil {
		log.WithError(err).WithField("email", maskEmail(email)).Error("OTP mail delivery failed")
	}
}

// maskEmail hides most of the local part for log lines that would otherwise
// spell out who signed in.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
