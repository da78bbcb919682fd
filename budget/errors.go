/*
errors.go - Error types for the budget engine

PURPOSE:
  All engine errors in one place. Stores and the API wrap these with
  context; callers test them with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - bad input (kind, date, installments, month)
  2. Lookup errors     - missing transaction or override
  3. Configuration     - boundary day out of range

The aggregation core itself never returns errors: a bad record is skipped
and logged so one row cannot fail a whole cycle.
*/
package budget

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOverrideNotFound    = errors.New("budget override not found")

	ErrInvalidBoundaryDay  = errors.New("boundary day must be between 1 and 28")
	ErrInvalidInstallments = errors.New("installments must be at least 1")
	ErrEmptyCategory       = errors.New("category must not be empty")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidMonth        = errors.New("month must be between 1 and 12")
	ErrInvalidDate         = errors.New("invalid date")
	ErrGainOnNonInvestment = errors.New("gain is only allowed on investments")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports which field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidBoundaryDay) ||
		errors.Is(err, ErrInvalidInstallments) ||
		errors.Is(err, ErrEmptyCategory) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrGainOnNonInvestment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrOverrideNotFound)
}
