package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusgate/focusgate-server/internal/pkg/config"
	"github.com/focusgate/focusgate-server/internal/pkg/security"
	"github.com/focusgate/focusgate-server/internal/pkg/usercontext"
)

const testJWTSecret = "middleware-test-secret"

// setupTestConfig pins the JWT secret before the config singleton parses.
// Every test in this package goes through it, so the first Setup call always
// sees the same environment.
func setupTestConfig(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", testJWTSecret)
	require.NoError(t, config.Setup())
}

func newSessionProbeApp() *fiber.App {
	app := fiber.New()
	app.Use(SessionContextMiddleware)
	app.Get("/probe", func(c *fiber.Ctx) error {
		sc := usercontext.GetSessionContext(c)
		return c.JSON(fiber.Map{
			"authenticated": sc.IsAuthenticated,
			"email":         sc.Email,
		})
	})
	return app
}

func TestSessionContextMiddlewareNoHeader(t *testing.T) {
	setupTestConfig(t)
	app := newSessionProbeApp()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"authenticated":false`)
}

func TestSessionContextMiddlewareValidToken(t *testing.T) {
	setupTestConfig(t)
	app := newSessionProbeApp()

	token, _, err := security.IssueSessionToken([]byte(testJWTSecret), "user@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"authenticated":true`)
	assert.Contains(t, string(body), `"email":"user@example.com"`)
}

func TestSessionContextMiddlewareLowercaseScheme(t *testing.T) {
	setupTestConfig(t)
	app := newSessionProbeApp()

	token, _, err := security.IssueSessionToken([]byte(testJWTSecret), "user@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(fiber.HeaderAuthorization, "bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"authenticated":true`)
}

func TestSessionContextMiddlewareGarbageToken(t *testing.T) {
	setupTestConfig(t)
	app := newSessionProbeApp()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-jwt")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"authenticated":false`)
}

func TestSessionContextMiddlewareWrongSecret(t *testing.T) {
	setupTestConfig(t)
	app := newSessionProbeApp()

	token, _, err := security.IssueSessionToken([]byte("some-other-secret"), "user@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"authenticated":false`)
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	setupTestConfig(t)

	app := fiber.New()
	app.Use(SessionContextMiddleware)
	app.Get("/private", RequireSession, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)
	assert.Contains(t, string(body), `"error":"unauthorized"`)
}

func TestRequireSessionPassesAuthenticated(t *testing.T) {
	setupTestConfig(t)

	app := fiber.New()
	app.Use(SessionContextMiddleware)
	app.Get("/private", RequireSession, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	token, _, err := security.IssueSessionToken([]byte(testJWTSecret), "user@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestExtractBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(extractBearerToken(c))
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "standard scheme", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "padded token", header: "Bearer   abc  ", want: "abc"},
		{name: "no header", header: "", want: ""},
		{name: "wrong scheme", header: "Basic abc", want: ""},
		{name: "scheme only", header: "Bearer ", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			body, readErr := io.ReadAll(resp.Body)
			require.NoError(t, readErr)
			assert.Equal(t, tc.want, string(body))
		})
	}
}
