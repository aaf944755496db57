// Package clearance implements the core of the no-dues workflow: resolving an
// employee's current case, enforcing lifecycle transitions, projecting
// timelines, and archiving terminal cases.
package clearance

import (
	"fmt"

	"github.com/avissapr/nodues/internal/models"
)

// ValidationError is a client-caused input error: a missing required field, a
// malformed structured payload, or an unknown sub-form key. It is surfaced
// immediately with a specific message and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ConflictError reports that a new submission was blocked by an existing
// active case. The conflicting case's identity is part of the message so the
// employee can act on it.
type ConflictError struct {
	FormID string
	Status models.CaseStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active application already exists (id %s, status %q)", e.FormID, e.Status)
}

// NotFoundError reports that a mutation or read required a current case (or a
// certificate) that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// ForbiddenError reports an ownership mismatch: the record exists but belongs
// to a different employee.
type ForbiddenError struct {
	Resource string
	ID       string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("access denied: %s %q belongs to another employee", e.Resource, e.ID)
}

// StorageError wraps a record-store failure. A StorageError returned from a
// mutation means the mutation did not persist.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
