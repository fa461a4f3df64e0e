package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/security"
	"github.com/focusgate/focusgate-server/internal/pkg/usercontext"
)

// SessionContextMiddleware resolves the session context for every request.
// A valid Bearer token marks the request authenticated; anything else leaves
// it anonymous. Rejection is not this middleware's job: RequireSession turns
// an anonymous request into a 401 on protected routes, public routes just
// ignore the context.
func SessionContextMiddleware(c *fiber.Ctx) error {
	token := extractBearerToken(c)
	if token == "" {
		usercontext.SetSessionContext(c, usercontext.SessionContext{IsAuthenticated: false})
		return c.Next()
	}

	claims, err := security.ParseSessionToken([]byte(config.Get().JWTSecret), token)
	if err != nil {
		// Expired or forged tokens read as anonymous, not as an error.
		usercontext.SetSessionContext(c, usercontext.SessionContext{IsAuthenticated: false})
		return c.Next()
	}

	usercontext.SetSessionContext(c, usercontext.SessionContext{
		Email:           claims.Email,
		TokenID:         claims.ID,
		ExpiresAt:       claims.ExpiresAt.Time,
		IsAuthenticated: true,
	})
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
