package models

import "time"

// Employee is the directory record for a staff member. The clearance core
// reads employees to resolve identity and department; it never mutates them.
//
// Database Table: employees
// Security Note: PasswordHash must never appear in API responses or logs.
type Employee struct {
	ID           int       `db:"id"`
	EmployeeID   string    `db:"employee_id"` // badge identifier used across case records
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Department   string    `db:"department"`
	Role         string    `db:"role"` // "employee", "hod" or "it"
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Employee roles.
const (
	RoleEmployee = "employee"
	RoleHOD      = "hod"
	RoleIT       = "it"
)
