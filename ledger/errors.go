/*
errors.go - Centralized error types for the billing ledger

PURPOSE:
  All error types in one place for consistency and discoverability.
  Store implementations and the billing service wrap these errors with
  additional context; the API maps them to HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, rejected before any write
  2. Not-found errors - Missing payment, property or tenant
  3. Authorization errors - Caller does not own the payment or property
  4. Conflict errors - Lost compare-and-swap or reminder append race
  5. Timeout errors - Aggregation exceeded the caller's deadline

  Dispatch failures are not errors of the operation that triggered them;
  they are reported as warnings next to the successful result.

USAGE:
    if errors.Is(err, ledger.ErrConcurrentModification) {
        // re-read and retry the single operation
    }

SEE ALSO:
  - validate.go: Produces ValidationError
  - api/handlers.go: Maps errors to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation failed")

	// ErrPaymentNotFound is returned when a payment ID does not resolve.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPropertyNotFound is returned when a referenced property doesn't exist.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrTenantNotFound is returned when a referenced tenant doesn't exist.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrForbidden is returned when the caller does not own the payment or
	// the property it references.
	ErrForbidden = errors.New("caller does not own this record")

	// ErrConcurrentModification is returned when a conditional write lost a race.
	// The single operation may be retried.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTimeout is returned when an aggregation query exceeds its deadline.
	ErrTimeout = errors.New("query timed out")

	// ErrNotSettled is returned when a receipt is requested for an unpaid entry.
	ErrNotSettled = errors.New("payment is not settled")

	// ErrNoContact is returned when a tenant has no reachable address.
	ErrNoContact = errors.New("tenant has no contact address")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError reports which write lost the race.
type ConflictError struct {
	PaymentID PaymentID
	Op        string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s on payment %s: concurrent modification", e.Op, e.PaymentID)
}

func (e *ConflictError) Unwrap() error {
	return ErrConcurrentModification
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrTimeout)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotSettled) ||
		errors.Is(err, ErrNoContact)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrPropertyNotFound) ||
		errors.Is(err, ErrTenantNotFound)
}
