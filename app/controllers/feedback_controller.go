package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/app/models"
	"github.com/focusgate/focusgate-server/app/repository"
	"github.com/focusgate/focusgate-server/internal/pkg/billing"
	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
	"github.com/focusgate/focusgate-server/internal/pkg/hcaptcha"
	"github.com/focusgate/focusgate-server/internal/pkg/mail"
)

// feedbackFloodWindow bounds how many messages one address may send per day
// regardless of the per-IP limiter.
const (
	feedbackFloodWindow = 24 * time.Hour
	feedbackFloodLimit  = 10
)

// FeedbackRequest is the body of POST /feedback. The captcha token is only
// checked when HCAPTCHA_SECRET is configured.
type FeedbackRequest struct {
	Email        string `json:"email" validate:"required,email,max=200"`
	Message      string `json:"message" validate:"required,min=3,max=5000"`
	CaptchaToken string `json:"captchaToken" validate:"omitempty,max=4096"`
}

// HandleFeedback stores a feedback message and relays it to the team inbox.
// The row is the source of truth; a failed relay mail is logged and retried
// manually, never surfaced to the sender.
// POST /feedback
func HandleFeedback(c *fiber.Ctx) error {
	var req FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_payload", "Body must be JSON")
	}
	if err := validator.New().Struct(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Email and message are required")
	}

	if env.GetEnv("HCAPTCHA_SECRET", "") != "" {
		valid, err := hcaptcha.Verify(c.Context(), req.CaptchaToken)
		if err != nil || !valid {
			if err != nil {
				log.WithError(err).Debug("captcha verification errored")
			}
			return jsonError(c, fiber.StatusBadRequest, "captcha_failed", "Captcha validation failed, please try again")
		}
	}

	email := billing.NormalizeEmail(req.Email)
	repo := repository.GetGlobalFactory().GetFeedbackRepository()

	recent, err := repo.CountByEmailSince(email, time.Now().Add(-feedbackFloodWindow))
	if err != nil {
		log.WithError(err).Error("feedback flood check failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Feedback could not be stored")
	}
	if recent >= feedbackFloodLimit {
		return jsonError(c, fiber.StatusTooManyRequests, "too_many_messages", "Too many messages from this address, try again tomorrow")
	}

	clientIP := GetClientIP(c)
	feedback := &models.Feedback{
		Email:    email,
		Message:  req.Message,
		ClientIP: clientIP,
	}

	lookupCtx, cancel := context.WithTimeout(context.Background(), geoLookupTimeout)
	defer cancel()
	feedback.Country = geoClient.CountryFor(lookupCtx, clientIP)

	if err := repo.Create(feedback); err != nil {
		log.WithError(err).Error("feedback persist failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Feedback could not be stored")
	}

	go relayFeedback(feedback)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "received"})
}

// relayFeedback forwards the stored message to the configured inbox.
func relayFeedback(feedback *models.Feedback) {
	inbox := config.Get().FeedbackInbox
	if inbox == "" {
		return
	}

	origin := feedback.ClientIP
	if feedback.Country != "" {
		origin = fmt.Sprintf("%s (%s)", feedback.ClientIP, feedback.Country)
	}
	body := fmt.Sprintf("From: %s\nOrigin: %s\nReceived: %s\n\n%s",
		feedback.Email, origin, feedback.CreatedAt.UTC().Format(time.RFC3339), feedback.Message)

	subject := fmt.Sprintf("[%s] Feedback #%d", config.Get().AppName, feedback.ID)
	if err := mail.SendTextMail(inbox, subject, body); err != nil {
		log.WithError(err).WithField("feedback_id", feedback.ID).Error("feedback relay failed")
	}
}
