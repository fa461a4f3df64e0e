package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// jsonError writes the shared error body shape. Handlers never leak internal
// error text to the extension; message is always a fixed, human-readable hint.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// GetClientIP determines the actual client IP address considering proxies.
// Used only to decorate sign-in mails and feedback rows, so a spoofed header
// costs nothing.
func GetClientIP(c *fiber.Ctx) string {
	// 1. Check for Cloudflare header
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	// 2. Check for X-Forwarded-For header (standard proxy header)
	// It can contain a list of IPs - the first one is the original client IP
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	// 3. If no proxy headers were found, use the normal IP address
	ipAddr := c.IP()

	// For ::ffff: IPv4-mapped-IPv6 addresses
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		return strings.TrimPrefix(ipAddr, "::ffff:")
	}
	return ipAddr
}
