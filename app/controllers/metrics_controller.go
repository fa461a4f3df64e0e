package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/app/repository"
	"github.com/focusgate/focusgate-server/internal/pkg/metrics/counter"
	"github.com/focusgate/focusgate-server/internal/pkg/statistics"
)

// HandleWebhookMetrics dumps the per-outcome webhook counters and the
// created-links counters. Operators read it to see how many deliveries were
// granted, skipped, or rejected without grepping logs.
// GET /metrics/webhooks (basic auth)
func HandleWebhookMetrics(c *fiber.Ctx) error {
	outcomes, err := counter.WebhookOutcomes()
	if err != nil {
		log.WithError(err).Error("webhook counter read failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Counter read failed")
	}
	links, err := counter.PaymentLinksCreated()
	if err != nil {
		log.WithError(err).Error("payment link counter read failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Counter read failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"outcomes":     outcomes,
		"linksCreated": links,
	})
}

// HandleEntitlementMetrics reports the cached entitlement table counts.
// GET /metrics/entitlements (basic auth)
func HandleEntitlementMetrics(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(statistics.GetStatisticsData())
}

// HandleFeedbackMetrics lists the most recent feedback messages so operators
// can skim them without a database client.
// GET /metrics/feedback (basic auth)
func HandleFeedbackMetrics(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetFeedbackRepository()

	last24h, err := repo.CountSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		log.WithError(err).Error("feedback count failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Feedback read failed")
	}
	recent, err := repo.List(0, 20)
	if err != nil {
		log.WithError(err).Error("feedback list failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Feedback read failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"last24h": last24h,
		"recent":  recent,
	})
}
