package diff

import (
	"fmt"
	"math"
)

// JacobianCheck compares a provider's Jacobian with a central-difference
// estimate at one point.
type JacobianCheck struct {
	Residuals []float64
	Jacobian  []float64 // from the provider under test
	Numeric   []float64 // central-difference estimate

	MaxAbsError float64
	MaxRelError float64
}

// OK reports whether every entry agrees within tol, either absolutely or
// relative to the larger of the two magnitudes.
func (c *JacobianCheck) OK(tol float64) bool {
	return c.MaxAbsError <= tol || c.MaxRelError <= tol
}

// CheckJacobian evaluates cost at x with derivatives and compares the result
// against numeric differentiation of the same residuals. relStep of 0 uses
// DefaultRelStep.
func CheckJacobian(cost CostFunction, x []float64, relStep float64) (*JacobianCheck, error) {
	m, n := cost.NumResiduals(), cost.NumParameters()
	if len(x) != n {
		return nil, fmt.Errorf("expected %d parameters, got %d", n, len(x))
	}

	check := &JacobianCheck{
		Residuals: make([]float64, m),
		Jacobian:  make([]float64, m*n),
		Numeric:   make([]float64, m*n),
	}
	if err := cost.Evaluate(x, check.Residuals, check.Jacobian); err != nil {
		return nil, fmt.Errorf("failed to evaluate cost function: %w", err)
	}

	numeric := NewNumericDiff(m, n, func(xs, r []float64) error {
		return cost.Evaluate(xs, r, nil)
	})
	if relStep != 0 {
		numeric.RelStep = relStep
	}
	scratch := make([]float64, m)
	if err := numeric.Evaluate(x, scratch, check.Numeric); err != nil {
		return nil, fmt.Errorf("failed to estimate jacobian: %w", err)
	}

	for i, a := range check.Jacobian {
		b := check.Numeric[i]
		abs := math.Abs(a - b)
		check.MaxAbsError = math.Max(check.MaxAbsError, abs)
		if scale := math.Max(math.Abs(a), math.Abs(b)); scale > 0 {
			check.MaxRelError = math.Max(check.MaxRelError, abs/scale)
		}
	}
	return check, nil
}
