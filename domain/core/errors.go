package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural precondition violations. These are fatal: silent
	// misalignment between sampling and analysis produces indices that
	// look valid but are meaningless.
	ErrInvalidDesignSpace     = errors.New("invalid design space")
	ErrSampleAlignment        = errors.New("sample alignment mismatch")
	ErrSamplingSchemeMismatch = errors.New("sampling scheme mismatch")

	// Per-cell and per-row execution failures.
	ErrAdapterContract          = errors.New("simulator contract violation")
	ErrInsufficientReplications = errors.New("insufficient successful replications")

	// Not found errors
	ErrNotFound           = errors.New("resource not found")
	ErrExperimentNotFound = fmt.Errorf("%w: experiment", ErrNotFound)
	ErrOutcomeNotFound    = fmt.Errorf("%w: outcome", ErrNotFound)
)

// Error constructors with context
func NewInvalidDesignSpaceError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDesignSpace, reason)
}

func NewSampleAlignmentError(want, got int) error {
	return fmt.Errorf("%w: sample matrix has %d rows, aggregated values have %d", ErrSampleAlignment, want, got)
}

func NewSchemeMismatchError(sampled, requested bool) error {
	return fmt.Errorf("%w: matrix generated with second_order=%t, analysis requested second_order=%t",
		ErrSamplingSchemeMismatch, sampled, requested)
}

func NewAdapterContractError(detail string) error {
	return fmt.Errorf("%w: %s", ErrAdapterContract, detail)
}

func NewInsufficientReplicationsError(row int, outcome string) error {
	return fmt.Errorf("%w: row %d has no usable replications for outcome %q",
		ErrInsufficientReplications, row, outcome)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStructuralError reports whether err is a fatal precondition violation
// rather than a recoverable per-cell failure.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrInvalidDesignSpace) ||
		errors.Is(err, ErrSampleAlignment) ||
		errors.Is(err, ErrSamplingSchemeMismatch)
}
