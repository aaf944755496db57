package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/avissapr/nodues/internal/clearance"
	"github.com/avissapr/nodues/internal/security"
)

// EmployeeHandler serves the employee-facing application endpoints.
type EmployeeHandler struct {
	svc       *clearance.Service
	validator *security.ValidationService
	config    *security.SecurityConfig
	logger    *security.Logger
}

// NewEmployeeHandler creates an employee handler.
func NewEmployeeHandler(svc *clearance.Service, validator *security.ValidationService, config *security.SecurityConfig, logger *security.Logger) *EmployeeHandler {
	if config == nil {
		config = security.DefaultSecurityConfig()
	}
	return &EmployeeHandler{svc: svc, validator: validator, config: config, logger: logger}
}

// Submit creates a new clearance application for the authenticated employee.
//
// HTTP: POST /api/applications
// Responses: 201 with the new case id, 400 on validation failure, 409 when an
// active application already exists.
func (h *EmployeeHandler) Submit(c *fiber.Ctx) error {
	var req clearance.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// The application is always filed under the session identity, whatever
	// the body claims.
	req.EmployeeID = sessionEmployeeID(c)

	if err := h.validator.ValidateEmail(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "email"})
	}
	if err := h.validator.ValidateOrderLetterFile(req.OrderLetterFile); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "field": "orderLetterFile"})
	}

	result, err := h.svc.Submit(c.Context(), req)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// SaveSubForm stores one sub-form payload on the current application.
//
// HTTP: POST /api/applications/forms/:formName
// The body is the raw JSON payload for that form.
func (h *EmployeeHandler) SaveSubForm(c *fiber.Ctx) error {
	formName := c.Params("formName")
	body := c.Body()
	if len(body) > h.config.MaxSubFormBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "form payload too large",
		})
	}

	err := h.svc.SaveSubForm(c.Context(), sessionEmployeeID(c), formName, json.RawMessage(body))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "form saved", "form": formName})
}

// FinalSubmit moves the current application to HOD review.
//
// HTTP: POST /api/applications/final-submit
func (h *EmployeeHandler) FinalSubmit(c *fiber.Ctx) error {
	var req clearance.FinalSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.svc.FinalSubmit(c.Context(), sessionEmployeeID(c), req)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(result)
}

// Tracking returns the current application with its timeline and form
// statuses. An employee with nothing to track gets 200 with a null
// application, not 404.
//
// HTTP: GET /api/applications/current
func (h *EmployeeHandler) Tracking(c *fiber.Ctx) error {
	view, err := h.svc.Tracking(c.Context(), sessionEmployeeID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	if view == nil {
		return c.JSON(fiber.Map{"application": nil})
	}
	return c.JSON(view)
}

// Certificates lists the employee's downloadable certificates.
//
// HTTP: GET /api/certificates
func (h *EmployeeHandler) Certificates(c *fiber.Ctx) error {
	certs, err := h.svc.ListCertificates(c.Context(), sessionEmployeeID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"certificates": certs})
}

// DownloadCertificate streams one certificate file.
//
// HTTP: GET /api/certificates/:id/download
// Responses: the PDF attachment, 403 for another employee's certificate, 404
// when it does not exist.
func (h *EmployeeHandler) DownloadCertificate(c *fiber.Ctx) error {
	employeeID := sessionEmployeeID(c)
	cert, err := h.svc.CertificateByID(c.Context(), employeeID, c.Params("id"))
	if err != nil {
		return serviceError(c, h.logger, err)
	}

	if h.logger != nil {
		h.logger.SecurityEvent(security.EventCertificateDownload, employeeID, "certificate", cert.ID, c.IP(), nil)
	}
	return c.Download(cert.Filepath, cert.Filename)
}

// History returns the employee's archived applications with summary counts.
//
// HTTP: GET /api/history
func (h *EmployeeHandler) History(c *fiber.Ctx) error {
	view, err := h.svc.History(c.Context(), sessionEmployeeID(c))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(view)
}
