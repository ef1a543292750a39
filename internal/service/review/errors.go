package review

import (
	"errors"
	"fmt"

	"github.com/phrazzld/kioku-api/internal/domain"
)

// Common error types for the review services
var (
	// ErrNoCandidatesDue indicates that nothing could be selected for a mode
	// that requires a non-empty exam.
	ErrNoCandidatesDue = fmt.Errorf("%w: no review candidates due", domain.ErrValidation)

	// ErrNoPrintableItems indicates that every due item lacks display fields,
	// even after backfill.
	ErrNoPrintableItems = fmt.Errorf("%w: no printable items available", domain.ErrValidation)

	// ErrInvalidCount indicates a requested item count below one.
	ErrInvalidCount = fmt.Errorf("%w: requested count must be positive", domain.ErrValidation)

	// ErrInvalidRequest indicates a malformed exam request.
	ErrInvalidRequest = errors.New("invalid exam request")
)

// ServiceError wraps errors from the review services with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_exam", "complete_exam")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewCreateExamError returns a new ServiceError for the create_exam operation.
func NewCreateExamError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "create_exam", Message: message, Err: err}
}

// NewCompleteExamError returns a new ServiceError for the complete_exam operation.
func NewCompleteExamError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "complete_exam", Message: message, Err: err}
}

// NewDeleteExamError returns a new ServiceError for the delete_exam operation.
func NewDeleteExamError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "delete_exam", Message: message, Err: err}
}
