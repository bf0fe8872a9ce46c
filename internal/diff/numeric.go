package diff

import (
	"errors"
	"math"
)

// DefaultRelStep is the default relative finite-difference step.
const DefaultRelStep = 1e-6

// Method selects the finite-difference scheme.
type Method int

const (
	// Central uses (f(x+h) - f(x-h)) / 2h, second-order accurate.
	Central Method = iota
	// Forward uses (f(x+h) - f(x)) / h, first-order accurate and one
	// evaluation cheaper per parameter.
	Forward
)

func (m Method) String() string {
	switch m {
	case Central:
		return "central"
	case Forward:
		return "forward"
	default:
		return "unknown"
	}
}

// NumericDiff approximates the Jacobian of a plain residual function by
// finite differences.
//
// The absolute step for parameter j is RelStep*max(|x_j|, 1) unless AbsStep
// is set. NumericDiff keeps scratch buffers and is not safe for concurrent use.
type NumericDiff struct {
	Method Method

	// RelStep is the step relative to the parameter magnitude.
	RelStep float64

	// AbsStep, when non-zero, overrides RelStep with a fixed step.
	AbsStep float64

	numResiduals  int
	numParameters int
	fn            ResidualFunc

	xs     []float64
	fPlus  []float64
	fMinus []float64
}

// NewNumericDiff creates a central-difference cost function around fn.
func NewNumericDiff(numResiduals, numParameters int, fn ResidualFunc) *NumericDiff {
	return &NumericDiff{
		Method:        Central,
		RelStep:       DefaultRelStep,
		numResiduals:  numResiduals,
		numParameters: numParameters,
		fn:            fn,
	}
}

func (nd *NumericDiff) NumResiduals() int  { return nd.numResiduals }
func (nd *NumericDiff) NumParameters() int { return nd.numParameters }

// Evaluate computes residuals and, if requested, the finite-difference
// Jacobian. params is never modified.
func (nd *NumericDiff) Evaluate(params, residuals, jacobian []float64) error {
	if err := checkSizes(nd, params, residuals, jacobian); err != nil {
		return err
	}
	if err := nd.fn(params, residuals); err != nil {
		return err
	}
	if jacobian == nil {
		return nil
	}

	m, n := nd.numResiduals, nd.numParameters
	if len(nd.xs) != n {
		nd.xs = make([]float64, n)
		nd.fPlus = make([]float64, m)
		nd.fMinus = make([]float64, m)
	}
	copy(nd.xs, params)

	for j, x0 := range params {
		h, err := nd.step(x0)
		if err != nil {
			return err
		}

		nd.xs[j] = x0 + h
		if err := nd.fn(nd.xs, nd.fPlus); err != nil {
			return err
		}

		switch nd.Method {
		case Forward:
			// Use the representable step so the quotient is exact in h.
			d := nd.xs[j] - x0
			for i := range m {
				jacobian[i*n+j] = (nd.fPlus[i] - residuals[i]) / d
			}
		default:
			nd.xs[j] = x0 - h
			if err := nd.fn(nd.xs, nd.fMinus); err != nil {
				return err
			}
			d := (x0 + h) - (x0 - h)
			for i := range m {
				jacobian[i*n+j] = (nd.fPlus[i] - nd.fMinus[i]) / d
			}
		}
		nd.xs[j] = x0
	}
	return nil
}

func (nd *NumericDiff) step(x float64) (float64, error) {
	h := nd.AbsStep
	if h == 0 {
		rel := nd.RelStep
		if rel == 0 {
			rel = DefaultRelStep
		}
		h = rel * math.Max(math.Abs(x), 1)
	}
	h = math.Abs(h)
	if (x+h)-x == 0 {
		return 0, errors.New("finite-difference step vanishes at this parameter magnitude")
	}
	return h, nil
}
