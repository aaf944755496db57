// Package services contains business logic that sits between handlers and
// repositories.
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/repository"
	"github.com/avissapr/nodues/internal/security"
)

// ErrInvalidCredentials is returned for a wrong email or password. The two
// cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// employeeFinder is the slice of the repository the auth service needs.
type employeeFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
}

// AuthService authenticates employees against the directory.
type AuthService struct {
	employees employeeFinder
	config    *security.SecurityConfig
}

// NewAuthService creates an authentication service.
func NewAuthService(employees employeeFinder, config *security.SecurityConfig) *AuthService {
	if config == nil {
		config = security.DefaultSecurityConfig()
	}
	return &AuthService{employees: employees, config: config}
}

// Authenticate verifies the email/password pair and returns the employee on
// success.
//
// bcrypt comparison runs even on unknown emails, against a throwaway hash, so
// response timing does not reveal whether an address exists.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.Employee, error) {
	employee, err := s.employees.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrEmployeeNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return employee, nil
}

// HashPassword hashes a plaintext password at the configured cost, for
// account provisioning.
func (s *AuthService) HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// dummyHash is a valid bcrypt hash of a random string, used to equalize
// timing for unknown accounts.
var dummyHash = []byte("$2a$12$K8kvlbF0BVHMy9YJ0s5sDuPOQXJSb4PMJcIOkZBXdMkZ7zWnFOJbG")
