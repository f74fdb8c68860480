package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. Every typed error below matches
// exactly one of them.
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is returned when a value violates a domain invariant.
	ErrInvalid = errors.New("invalid value")

	// ErrReference is returned when a write would break referential integrity.
	ErrReference = errors.New("referential integrity violation")

	// ErrTransition is returned for a status change the state machine forbids.
	ErrTransition = errors.New("invalid status transition")

	// ErrConflict is returned when a serializing transaction lost a race.
	// The operation may be retried with fresh state.
	ErrConflict = errors.New("concurrent modification")
)

// NotFoundError reports a missing row.
type NotFoundError struct {
	Entity string
	ID     int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports an invariant violation on a single field.
type ValidationError struct {
	Entity  string
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s.%s: %s (value: %v)", e.Entity, e.Field, e.Message, e.Value)
}

// Is matches ErrInvalid.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// NewValidationError creates a new ValidationError.
func NewValidationError(entity, field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Entity:  entity,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ReferenceError reports a write rejected because of a relationship:
// either the referenced row is missing, or dependents still point at the
// row being deleted.
type ReferenceError struct {
	// Entity is the entity being written or deleted.
	Entity string
	// ID is the row being written or deleted (0 for inserts).
	ID int64
	// Field is the referencing column, e.g. "seller_id".
	Field string
	// Target is the referenced or dependent entity.
	Target string
	// TargetID is the missing referenced row, if any.
	TargetID int64
	// Dependents counts rows that still reference a row being deleted.
	Dependents int
}

// Error implements the error interface.
func (e *ReferenceError) Error() string {
	if e.Dependents > 0 {
		return fmt.Sprintf("%s %d is still referenced by %d %s (%s)", e.Entity, e.ID, e.Dependents, e.Target, e.Field)
	}
	return fmt.Sprintf("%s.%s references missing %s %d", e.Entity, e.Field, e.Target, e.TargetID)
}

// Is matches ErrReference.
func (e *ReferenceError) Is(target error) bool { return target == ErrReference }

// TransitionError reports a forbidden status change.
type TransitionError struct {
	InvoiceID int64
	From      InvoiceStatus
	To        InvoiceStatus
	Reason    string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invoice %d: cannot change status %s -> %s: %s", e.InvoiceID, e.From, e.To, e.Reason)
}

// Is matches ErrTransition.
func (e *TransitionError) Is(target error) bool { return target == ErrTransition }

// ConflictError wraps a storage error caused by a competing writer.
type ConflictError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *ConflictError) Unwrap() error { return e.Err }

// Is matches ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
