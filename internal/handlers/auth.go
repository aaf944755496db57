package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/avissapr/nodues/internal/middleware"
	"github.com/avissapr/nodues/internal/security"
	"github.com/avissapr/nodues/internal/services"
)

// AuthHandler serves login and logout.
type AuthHandler struct {
	auth      *services.AuthService
	sessions  *session.Store
	lockout   *security.AccountLockout
	validator *security.ValidationService
	logger    *security.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(auth *services.AuthService, sessions *session.Store, lockout *security.AccountLockout, validator *security.ValidationService, logger *security.Logger) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		sessions:  sessions,
		lockout:   lockout,
		validator: validator,
		logger:    logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an employee and establishes a session.
//
// HTTP: POST /api/auth/login
// Responses: 200 with the employee profile, 400 on malformed input, 401 on
// bad credentials, 423 while the account is locked.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.ValidateEmail(req.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.validator.ValidateRequired("password", req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if h.lockout.IsLocked(req.Email) {
		h.logger.SecurityEvent(security.EventUnauthorizedAccess, req.Email, "login", "", c.IP(),
			map[string]any{"reason": "account locked"})
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{
			"error": "account temporarily locked due to repeated failures",
		})
	}

	employee, err := h.auth.Authenticate(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			if h.lockout.RecordFailedAttempt(req.Email) {
				h.logger.SecurityEvent(security.EventAccountLocked, req.Email, "login", "", c.IP(), nil)
			} else {
				h.logger.SecurityEvent(security.EventLoginFailure, req.Email, "login", "", c.IP(), nil)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return serviceError(c, h.logger, err)
	}

	h.lockout.ResetAttempts(req.Email)

	sess, err := h.sessions.Get(c)
	if err != nil {
		return serviceError(c, h.logger, err)
	}
	// Fresh session id on login prevents fixation.
	if err := sess.Regenerate(); err != nil {
		return serviceError(c, h.logger, err)
	}
	sess.Set(middleware.SessionKeyEmployeeID, employee.EmployeeID)
	sess.Set(middleware.SessionKeyRole, employee.Role)
	sess.Set(middleware.SessionKeyName, employee.Name)
	sess.Set(middleware.SessionKeyEmail, employee.Email)
	if err := sess.Save(); err != nil {
		return serviceError(c, h.logger, err)
	}

	h.logger.SecurityEvent(security.EventLoginSuccess, employee.EmployeeID, "login", "", c.IP(), nil)
	return c.JSON(fiber.Map{
		"employeeId": employee.EmployeeID,
		"name":       employee.Name,
		"email":      employee.Email,
		"department": employee.Department,
		"role":       employee.Role,
	})
}

// Logout destroys the session.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err == nil {
		employeeID, _ := sess.Get(middleware.SessionKeyEmployeeID).(string)
		if employeeID != "" {
			h.logger.SecurityEvent(security.EventLogout, employeeID, "login", "", c.IP(), nil)
		}
		sess.Destroy()
	}
	return c.JSON(fiber.Map{"message": "logged out"})
}

// Me returns the authenticated employee's session profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	name, _ := c.Locals(middleware.SessionKeyName).(string)
	email, _ := c.Locals(middleware.SessionKeyEmail).(string)
	role, _ := c.Locals(middleware.SessionKeyRole).(string)
	return c.JSON(fiber.Map{
		"employeeId": sessionEmployeeID(c),
		"name":       name,
		"email":      email,
		"role":       role,
	})
}
