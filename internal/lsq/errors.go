package lsq

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a residual block's sizes do not agree
// with its cost function or with an earlier block sharing the same parameters.
// Use errors.Is(err, ErrDimensionMismatch) to check for this error.
var ErrDimensionMismatch = &DimensionMismatchError{}

// DimensionMismatchError describes a rejected residual block registration.
type DimensionMismatchError struct {
	What     string // "residuals", "parameters" or "parameter block"
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	if e.What == "" {
		return "dimension mismatch"
	}
	return fmt.Sprintf("dimension mismatch: %s: expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool {
	_, ok := target.(*DimensionMismatchError)
	return ok
}

var (
	// ErrSingularLinearSystem means the damped normal equations could not be
	// factorised even after raising the damping as far as allowed.
	ErrSingularLinearSystem = errors.New("singular linear system")

	// ErrNonFiniteResidual means a residual or Jacobian entry was NaN or Inf.
	ErrNonFiniteResidual = errors.New("non-finite residual or jacobian")

	// ErrNoProgress means every step proposed within the damping budget
	// increased the cost.
	ErrNoProgress = errors.New("no step decreased the cost")

	// ErrAborted is reported when an iteration callback aborts the solve.
	ErrAborted = errors.New("aborted by callback")
)

// ValidationError reports an invalid Options field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
