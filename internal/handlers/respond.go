// Package handlers contains the HTTP handlers for the clearance API. Handlers
// parse and authenticate, delegate to the clearance service, and translate
// the service's error taxonomy into HTTP status codes.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/avissapr/nodues/internal/clearance"
	"github.com/avissapr/nodues/internal/security"
)

// serviceError maps a clearance error onto its HTTP response. Internal
// failures are logged with the cause but reported to the client generically.
func serviceError(c *fiber.Ctx, logger *security.Logger, err error) error {
	var (
		validationErr *clearance.ValidationError
		conflictErr   *clearance.ConflictError
		notFoundErr   *clearance.NotFoundError
		forbiddenErr  *clearance.ForbiddenError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	case errors.As(err, &conflictErr):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":          conflictErr.Error(),
			"existingFormId": conflictErr.FormID,
			"existingStatus": conflictErr.Status,
		})
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFoundErr.Error(),
		})
	case errors.As(err, &forbiddenErr):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": forbiddenErr.Error(),
		})
	default:
		if logger != nil {
			logger.Error("request failed: "+c.Method()+" "+c.Path(), err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

// sessionEmployeeID reads the authenticated employee from the request locals
// set by the auth middleware.
func sessionEmployeeID(c *fiber.Ctx) string {
	id, _ := c.Locals("employee_id").(string)
	return id
}
