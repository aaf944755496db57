// Package middleware provides the HTTP middleware chain: session
// authentication, role authorization and per-endpoint rate limiting.
package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/avissapr/nodues/internal/security"
)

// Session keys written at login and read by the middleware.
const (
	SessionKeyEmployeeID = "employee_id"
	SessionKeyRole       = "user_role"
	SessionKeyName       = "user_name"
	SessionKeyEmail      = "user_email"
)

// AuthRequired rejects requests without an authenticated session and copies
// the session identity into the request locals for downstream handlers.
func AuthRequired(store *session.Store, logger *security.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		employeeID, _ := sess.Get(SessionKeyEmployeeID).(string)
		if employeeID == "" {
			if logger != nil {
				logger.SecurityEvent(security.EventUnauthorizedAccess, "", "endpoint", c.Path(), c.IP(), nil)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		c.Locals(SessionKeyEmployeeID, employeeID)
		c.Locals(SessionKeyRole, sess.Get(SessionKeyRole))
		c.Locals(SessionKeyName, sess.Get(SessionKeyName))
		c.Locals(SessionKeyEmail, sess.Get(SessionKeyEmail))
		return c.Next()
	}
}

// RoleRequired allows only the listed roles past. Must run after
// AuthRequired.
func RoleRequired(logger *security.Logger, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(SessionKeyRole).(string)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}

		if logger != nil {
			actor, _ := c.Locals(SessionKeyEmployeeID).(string)
			logger.SecurityEvent(security.EventUnauthorizedAccess, actor, "endpoint", c.Path(), c.IP(),
				map[string]any{"role": role})
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}

// RateLimit applies a token-bucket limiter keyed by the authenticated
// employee, falling back to the client IP before login.
func RateLimit(limiter *security.RateLimiter, logger *security.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, _ := c.Locals(SessionKeyEmployeeID).(string)
		if identifier == "" {
			identifier = c.IP()
		}

		if !limiter.Allow(identifier) {
			if logger != nil {
				logger.SecurityEvent(security.EventRateLimitExceeded, identifier, "endpoint", c.Path(), c.IP(), nil)
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		}
		return c.Next()
	}
}
