package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/focusgate/focusgate-server/app/controllers"
	"github.com/focusgate/focusgate-server/app/repository"
	"github.com/focusgate/focusgate-server/internal/pkg/database"
	"github.com/focusgate/focusgate-server/internal/pkg/middleware"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Repositories back the feedback endpoint; the billing pipeline has its
	// own repository wired in the controller initializer.
	repository.InitializeFactory(database.GetDB())

	// Resolve the extension session for every request. Protected routes add
	// RequireSession on top.
	app.Use(middleware.SessionContextMiddleware)

	// Initialize billing controller with webhook pipeline and status reads
	controllers.InitializeBillingController()

	// Initialize auth controller with OTP store and mailer
	controllers.InitializeAuthController()

	h.registerPublicRoutes(app)
	h.registerOpsRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
