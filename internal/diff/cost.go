// Package diff provides the residual/Jacobian providers consumed by the
// least-squares solver: closed-form (analytic), finite differences (numeric)
// and forward-mode dual numbers (automatic).
package diff

import "fmt"

// CostFunction defines a residual block's evaluation capability.
type CostFunction interface {
	// NumResiduals is the length of the residual vector.
	NumResiduals() int

	// NumParameters is the length of the parameter vector.
	NumParameters() int

	// Evaluate computes residuals at params.
	// jacobian is row-major NumResiduals x NumParameters and is nil when the
	// caller does not need derivatives.
	// A non-nil error means the function could not be evaluated at params.
	Evaluate(params, residuals, jacobian []float64) error
}

// ResidualFunc computes residuals r at parameters x.
type ResidualFunc func(x, r []float64) error

// AnalyticFunc computes residuals and, when jac is non-nil, the closed-form
// Jacobian (row-major).
type AnalyticFunc func(x, r, jac []float64) error

// Analytic is a CostFunction whose derivatives are supplied by the caller.
// Nothing checks that they are right; wrong derivatives only slow the solver
// down or stall it.
type Analytic struct {
	numResiduals  int
	numParameters int
	fn            AnalyticFunc
}

// NewAnalytic creates an analytic cost function with fixed dimensions.
func NewAnalytic(numResiduals, numParameters int, fn AnalyticFunc) *Analytic {
	return &Analytic{
		numResiduals:  numResiduals,
		numParameters: numParameters,
		fn:            fn,
	}
}

func (a *Analytic) NumResiduals() int  { return a.numResiduals }
func (a *Analytic) NumParameters() int { return a.numParameters }

// Evaluate calls the closed-form function.
func (a *Analytic) Evaluate(params, residuals, jacobian []float64) error {
	if err := checkSizes(a, params, residuals, jacobian); err != nil {
		return err
	}
	return a.fn(params, residuals, jacobian)
}

func checkSizes(c CostFunction, params, residuals, jacobian []float64) error {
	m, n := c.NumResiduals(), c.NumParameters()
	if len(params) != n {
		return fmt.Errorf("expected %d parameters, got %d", n, len(params))
	}
	if len(residuals) != m {
		return fmt.Errorf("expected %d residuals, got %d", m, len(residuals))
	}
	if jacobian != nil && len(jacobian) != m*n {
		return fmt.Errorf("expected %dx%d jacobian, got %d entries", m, n, len(jacobian))
	}
	return nil
}
