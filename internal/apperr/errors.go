// Package apperr defines the typed error taxonomy shared by the content
// store, session engine and explanation cache. Handlers translate these
// into HTTP status codes; the core never maps to transport concerns itself.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError indicates malformed input rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a named field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError indicates a referenced entity is absent. Fatal marks
// invariant violations (e.g. a question with no current version) that must
// be logged loudly rather than treated as an ordinary 404.
type NotFoundError struct {
	Entity string
	ID     string
	Fatal  bool
}

func (e *NotFoundError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("%s %s not found (invariant violation)", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds an ordinary NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// FatalNotFound builds a NotFoundError flagged as an invariant violation.
func FatalNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id, Fatal: true}
}

// ConflictError indicates a unique-key collision. The explanation cache
// converts these into get-or-create responses; only collisions that cannot
// be recovered propagate to callers.
type ConflictError struct {
	Entity string
	Key    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict on %s", e.Entity, e.Key)
}

// InvalidStateError indicates an operation attempted against an entity in a
// state that does not permit it (e.g. mutating a completed session).
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s in state %s does not permit %s", e.Entity, e.State, e.Op)
}

// ItemFailure records a single failed item in a bulk operation.
type ItemFailure struct {
	Index int
	Err   error
}

// PartialFailureError reports a bulk operation where some items could not be
// applied. The batch itself is transactional: Succeeded counts items that
// were actually committed.
type PartialFailureError struct {
	Attempted int
	Succeeded int
	Failures  []ItemFailure
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("bulk operation: %d/%d items failed", len(e.Failures), e.Attempted)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidState reports whether err wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	var is *InvalidStateError
	return errors.As(err, &is)
}
