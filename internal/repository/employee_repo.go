// Package repository contains the data access layer for relational records.
// Repositories receive a database.DBInterface so tests can substitute pgxmock.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avissapr/nodues/internal/database"
	"github.com/avissapr/nodues/internal/models"
)

// ErrEmployeeNotFound is returned when no employee matches the lookup.
var ErrEmployeeNotFound = errors.New("employee not found")

// EmployeeRepository reads staff directory records.
type EmployeeRepository struct {
	db database.DBInterface
}

// NewEmployeeRepository creates a repository with the given database connection.
func NewEmployeeRepository(db database.DBInterface) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, employee_id, name, email, department, role, password_hash, created_at`

// FindByEmail retrieves an employee by email address, used during login.
//
// Returns ErrEmployeeNotFound when no row matches; any other error is a
// database failure.
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

// FindByEmployeeID retrieves an employee by badge identifier, the key used
// across case records.
func (r *EmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, employeeID))
}

// FindByID retrieves an employee by primary key.
func (r *EmployeeRepository) FindByID(ctx context.Context, id int) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// Create inserts a new employee record and returns it with the generated id.
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) (*models.Employee, error) {
	query := `
		INSERT INTO employees (employee_id, name, email, department, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + employeeColumns

	return r.scanOne(r.db.QueryRow(ctx, query,
		e.EmployeeID, e.Name, e.Email, e.Department, e.Role, e.PasswordHash))
}

func (r *EmployeeRepository) scanOne(row pgx.Row) (*models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.EmployeeID, &e.Name, &e.Email, &e.Department,
		&e.Role, &e.PasswordHash, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	return &e, nil
}
