package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/focusgate/focusgate-server/app/controllers"
	"github.com/focusgate/focusgate-server/internal/pkg/middleware"
)

// ServerInterface lists the handlers the v1 API exposes. Matches the
// operations in public/docs/v1/openapi.yml.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetMe(c *fiber.Ctx) error
}

// Pong is the response of the ping endpoint.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetMe returns the session email plus both entitlement states.
// Security is enforced via the session middleware attached in RegisterHandlers.
func (s *APIServer) GetMe(c *fiber.Ctx) error {
	return controllers.HandleMe(c)
}

// RegisterHandlers attaches the v1 routes to the given router group.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/me", middleware.RequireSession, si.GetMe)
}
