package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/focusgate/focusgate-server/internal/pkg/usercontext"
)

// RequireSession ensures a valid extension session and returns JSON 401
// otherwise. SessionContextMiddleware must run earlier in the chain; this
// middleware only reads what it resolved.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsAuthenticated(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "A valid session token is required",
		})
	}
	return c.Next()
}
