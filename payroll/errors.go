/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses via the Is* helpers.

ERROR CATEGORIES:
  1. Lifecycle errors - Illegal cycle transitions, immutability violations
  2. Lookup errors    - Missing org/employee/cycle
  3. Settings errors  - Operator-supplied rate configuration problems

NOT ERRORS:
  A missing compensation record is a deliberate omission, not a failure:
  the employee is silently excluded from the cycle. Duplicate cycles and
  duplicate payroll items are resolved by upsert and never surface.

USAGE:
    if errors.Is(err, payroll.ErrCycleImmutable) {
        // tell the caller the cycle's current status
    }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned when a lifecycle action is not legal
	// from the cycle's current status.
	ErrInvalidTransition = errors.New("invalid cycle transition")

	// ErrEmptyCycle is returned when submitting a cycle with no payroll items.
	ErrEmptyCycle = errors.New("cycle has no payroll items")

	// ErrCycleImmutable is returned on any attempt to alter per-employee
	// figures once a cycle is approved, processing, or completed.
	ErrCycleImmutable = errors.New("cycle is immutable")

	// ErrCycleNotFound is returned when a referenced cycle doesn't exist.
	ErrCycleNotFound = errors.New("cycle not found")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrOrganizationNotFound is returned when a referenced org doesn't exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrInvalidSettings is returned when operator-supplied settings are
	// malformed (split percentages not summing to 100, negative rates).
	ErrInvalidSettings = errors.New("invalid payroll settings")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidTransitionError reports which action was attempted from which status.
type InvalidTransitionError struct {
	CycleID CycleID
	From    CycleStatus
	Action  CycleAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s cycle %s in status %q", e.Action, e.CycleID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ImmutableCycleError tells the caller the cycle's current status and that
// modification is not permitted.
type ImmutableCycleError struct {
	CycleID CycleID
	Status  CycleStatus
}

func (e *ImmutableCycleError) Error() string {
	return fmt.Sprintf("cycle %s is %s: payroll items can no longer be modified", e.CycleID, e.Status)
}

func (e *ImmutableCycleError) Unwrap() error { return ErrCycleImmutable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to an invalid caller request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEmptyCycle) ||
		errors.Is(err, ErrCycleImmutable) ||
		errors.Is(err, ErrInvalidSettings)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCycleNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrOrganizationNotFound)
}
