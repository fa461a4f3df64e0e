package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/focusgate/focusgate-server/app/controllers"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

// registerOpsRoutes exposes operator-only reads behind basic auth. These
// routes report on the pipeline; they can never mutate entitlements.
func (h HttpRouter) registerOpsRoutes(app *fiber.App) {
	opsGroup := app.Group("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "ops"): env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}))
	opsGroup.Get("/webhooks", controllers.HandleWebhookMetrics)
	opsGroup.Get("/entitlements", controllers.HandleEntitlementMetrics)
	opsGroup.Get("/feedback", controllers.HandleFeedbackMetrics)
}
