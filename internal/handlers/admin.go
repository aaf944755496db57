package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/avissapr/nodues/internal/clearance"
	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/security"
)

// AdminHandler serves the HOD and IT review endpoints.
type AdminHandler struct {
	svc       *clearance.Service
	validator *security.ValidationService
	logger    *security.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(svc *clearance.Service, validator *security.ValidationService, logger *security.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, validator: validator, logger: logger}
}

// ListApplications returns applications filtered by status, newest first.
// With no status filter it returns the full active queue.
//
// HTTP: GET /api/admin/applications?status=pending&status=Submitted+to+HOD
func (h *AdminHandler) ListApplications(c *fiber.Ctx) error {
	var statuses []models.CaseStatus
	for _, raw := range c.Context().QueryArgs().PeekMulti("status") {
		statuses = append(statuses, models.CaseStatus(raw))
	}
	if len(statuses) == 0 {
		statuses = models.ActiveStatuses()
	}

	cases, err := h.svc.CasesByStatus(c.Context(), statuses...)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"applications": cases})
}

// GetApplication returns one application by id.
//
// HTTP: GET /api/admin/applications/:id
func (h *AdminHandler) GetApplication(c *fiber.Ctx) error {
	cs, err := h.svc.CaseByID(c.Context(), c.Params("id"))
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(cs)
}

type assignFormsRequest struct {
	Forms []models.AssignedForm `json:"forms"`
}

// AssignForms attaches sub-form descriptors to an application.
//
// HTTP: POST /api/admin/applications/:id/forms
func (h *AdminHandler) AssignForms(c *fiber.Ctx) error {
	var req assignFormsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.svc.AssignForms(c.Context(), c.Params("id"), req.Forms); err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "forms assigned"})
}

// ApproveHOD records HOD approval and forwards the application to IT.
//
// HTTP: POST /api/hod/applications/:id/approve
func (h *AdminHandler) ApproveHOD(c *fiber.Ctx) error {
	approver, _ := c.Locals("user_name").(string)
	if approver == "" {
		approver = sessionEmployeeID(c)
	}

	if err := h.svc.ApproveHOD(c.Context(), c.Params("id"), approver); err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "application approved", "status": models.StatusSubmittedToIT})
}

type processITRequest struct {
	Action  string `json:"action"` // "completed" or "rejected"
	Remarks string `json:"remarks"`
}

// ProcessIT records the final IT decision. Completion triggers certificate
// generation and archival; the response waits for both.
//
// HTTP: POST /api/it/applications/:id/process
func (h *AdminHandler) ProcessIT(c *fiber.Ctx) error {
	var req processITRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.ValidateRemarks(req.Remarks); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	processor, _ := c.Locals("user_name").(string)
	if processor == "" {
		processor = sessionEmployeeID(c)
	}

	if err := h.svc.ProcessIT(c.Context(), c.Params("id"), req.Action, processor, req.Remarks); err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "application processed", "action": req.Action})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject terminates an active application.
//
// HTTP: POST /api/admin/applications/:id/reject
func (h *AdminHandler) Reject(c *fiber.Ctx) error {
	var req rejectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.ValidateRemarks(req.Reason); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rejectedBy, _ := c.Locals("user_name").(string)
	if rejectedBy == "" {
		rejectedBy = sessionEmployeeID(c)
	}

	if err := h.svc.Reject(c.Context(), c.Params("id"), req.Reason, rejectedBy); err != nil {
		return serviceError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": "application rejected"})
}
