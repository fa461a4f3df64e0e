package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/focusgate/focusgate-server/internal/pkg/cache"
	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/database"
)

const healthCheckTimeout = 3 * time.Second

// HandleHome identifies the service. The backend is headless, the only
// human-facing page is the payment-success redirect target.
// GET /
func HandleHome(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"service": config.Get().AppName,
		"docs":    "/docs/api/v1",
	})
}

// HandleHealth reports whether the two stateful dependencies answer. Load
// balancers poll it; a degraded redis flips the status but the HTTP code
// stays 200 because entitlement reads still work without the cache.
// GET /health
func HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
	defer cancel()

	dbOK := false
	if db := database.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			dbOK = sqlDB.PingContext(ctx) == nil
		}
	}

	redisOK := cache.GetClient().Ping(ctx).Err() == nil

	status := "ok"
	httpStatus := fiber.StatusOK
	if !dbOK {
		status = "unavailable"
		httpStatus = fiber.StatusServiceUnavailable
	} else if !redisOK {
		status = "degraded"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":   status,
		"database": dbOK,
		"cache":    redisOK,
	})
}
