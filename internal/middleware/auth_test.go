package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avissapr/nodues/internal/security"
)

func okHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func TestAuthRequiredRejectsAnonymous(t *testing.T) {
	app := fiber.New()
	sessions := session.New()
	app.Get("/protected", AuthRequired(sessions, nil), okHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

// setIdentity fakes an authenticated session by writing the locals directly.
func setIdentity(employeeID, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(SessionKeyEmployeeID, employeeID)
		c.Locals(SessionKeyRole, role)
		return c.Next()
	}
}

func TestRoleRequired(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		allowed []string
		status  int
	}{
		{"allowed role", "hod", []string{"hod", "it"}, fiber.StatusOK},
		{"second allowed role", "it", []string{"hod", "it"}, fiber.StatusOK},
		{"wrong role", "employee", []string{"hod", "it"}, fiber.StatusForbidden},
		{"missing role", "", []string{"hod"}, fiber.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/staff", setIdentity("E1", tt.role), RoleRequired(nil, tt.allowed...), okHandler)

			resp, err := app.Test(httptest.NewRequest("GET", "/staff", nil))

			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Hour)
	defer limiter.Stop()

	app := fiber.New()
	app.Post("/limited", setIdentity("E1", "employee"), RateLimit(limiter, nil), okHandler)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/limited", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i+1)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/limited", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Hour)
	defer limiter.Stop()

	app := fiber.New()
	app.Post("/login", RateLimit(limiter, nil), okHandler)

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
