package diff

// JetFunc is a residual function instantiated over Jet.
type JetFunc func(x, r []Jet) error

// RealFunc is a residual function instantiated over Real.
type RealFunc func(x, r []Real) error

// AutoDiff differentiates a Jet residual function in forward mode. The
// Jacobian is exact up to roundoff.
type AutoDiff struct {
	numResiduals  int
	numParameters int
	fn            JetFunc
}

// NewAutoDiff wraps fn, usually a generic residual instantiated with Jet.
func NewAutoDiff(numResiduals, numParameters int, fn JetFunc) *AutoDiff {
	return &AutoDiff{
		numResiduals:  numResiduals,
		numParameters: numParameters,
		fn:            fn,
	}
}

func (a *AutoDiff) NumResiduals() int  { return a.numResiduals }
func (a *AutoDiff) NumParameters() int { return a.numParameters }

// Evaluate seeds one dual direction per parameter when a Jacobian is
// requested; otherwise the parameters carry no tangent and only values flow.
func (a *AutoDiff) Evaluate(params, residuals, jacobian []float64) error {
	if err := checkSizes(a, params, residuals, jacobian); err != nil {
		return err
	}

	n := a.numParameters
	xs := make([]Jet, n)
	for j, v := range params {
		if jacobian != nil {
			xs[j] = Variable(v, j, n)
		} else {
			xs[j] = Jet{V: v}
		}
	}

	rs := make([]Jet, a.numResiduals)
	if err := a.fn(xs, rs); err != nil {
		return err
	}

	for i, r := range rs {
		residuals[i] = r.V
		if jacobian == nil {
			continue
		}
		row := jacobian[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		copy(row, r.D)
	}
	return nil
}

// Plain adapts a Real residual function to the float64 signature used by
// NumericDiff, so one generic residual can back both providers.
func Plain(fn RealFunc) ResidualFunc {
	return func(x, r []float64) error {
		xs := make([]Real, len(x))
		for i, v := range x {
			xs[i] = Real(v)
		}
		rs := make([]Real, len(r))
		if err := fn(xs, rs); err != nil {
			return err
		}
		for i, v := range rs {
			r[i] = float64(v)
		}
		return nil
	}
}
