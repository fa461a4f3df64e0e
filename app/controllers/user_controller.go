package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/usercontext"
)

// HandleMe returns both entitlement states for the signed-in email in one
// round trip. The extension calls this on startup instead of polling the two
// status endpoints separately.
// GET /api/v1/me (Bearer)
func HandleMe(c *fiber.Ctx) error {
	sc := usercontext.GetSessionContext(c)

	premium, err := statusService.CheckPremiumStatus(sc.Email)
	if err != nil {
		log.WithError(err).Error("premium status lookup failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Status lookup failed")
	}
	emergency, err := statusService.CheckEmergencyStatus(sc.Email)
	if err != nil {
		log.WithError(err).Error("emergency status lookup failed")
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Status lookup failed")
	}

	premiumBody := fiber.Map{"status": string(premium.State)}
	if premium.ExpiresAt != nil {
		premiumBody["expiresAt"] = premium.ExpiresAt.UTC().Format(time.RFC3339)
	}
	emergencyBody := fiber.Map{"status": string(emergency.State)}
	if emergency.Amount != nil {
		emergencyBody["amount"] = *emergency.Amount
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"email":          sc.Email,
		"sessionExpires": sc.ExpiresAt.UTC().Format(time.RFC3339),
		"premium":        premiumBody,
		"emergency":      emergencyBody,
	})
}
