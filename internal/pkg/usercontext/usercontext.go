package usercontext

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionContext represents the extension session attached to a request. The
// backend is account-less: a verified email is the whole identity, and every
// entitlement lookup keys on it.
type SessionContext struct {
	Email           string    `json:"email"`
	TokenID         string    `json:"token_id"`
	ExpiresAt       time.Time `json:"expires_at"`
	IsAuthenticated bool      `json:"is_authenticated"`
}

// GetSessionContext retrieves the session context from fiber context.
// Returns an anonymous context if none is set.
func GetSessionContext(c *fiber.Ctx) SessionContext {
	if ctx := c.Locals(KeySessionContext); ctx != nil {
		if sc, ok := ctx.(SessionContext); ok {
			return sc
		}
	}
	return SessionContext{IsAuthenticated: false}
}

// SetSessionContext stores the session context for downstream handlers.
func SetSessionContext(c *fiber.Ctx, sc SessionContext) {
	c.Locals(KeySessionContext, sc)
	c.Locals(KeyAuthenticated, sc.IsAuthenticated)
	c.Locals(KeySessionEmail, sc.Email)
}

// IsAuthenticated checks if the request carries a valid session token.
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetSessionContext(c).IsAuthenticated
}

// GetEmail returns the verified email of the session, or "" when anonymous.
func GetEmail(c *fiber.Ctx) string {
	return GetSessionContext(c).Email
}
