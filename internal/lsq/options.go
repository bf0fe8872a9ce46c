package lsq

// CallbackResult tells the solver what to do after an iteration callback.
type CallbackResult int

const (
	CallbackContinue CallbackResult = iota
	// CallbackStop ends the solve as converged.
	CallbackStop
	// CallbackAbort ends the solve as failed.
	CallbackAbort
)

// IterationCallback is invoked after every iteration with its summary.
type IterationCallback func(IterationSummary) CallbackResult

// Options configures the Levenberg-Marquardt solver.
type Options struct {
	// MaxIterations caps the number of iterations. Zero only evaluates the
	// initial point.
	MaxIterations int

	// InitialDamping is the starting lambda in (J^T J + lambda I) dx = -J^T r.
	// The trust region radius reported per iteration is 1/lambda.
	InitialDamping float64

	// DampingFactor multiplies lambda on a rejected step and divides it on an
	// accepted one.
	DampingFactor float64

	// MinDamping and MaxDamping bound lambda. Exceeding MaxDamping while
	// retrying a step fails the solve.
	MinDamping float64
	MaxDamping float64

	// MaxDampingIncreases bounds the retries within one iteration.
	MaxDampingIncreases int

	// MinRelativeDecrease is the smallest ratio of actual to predicted cost
	// decrease for which a step is accepted.
	MinRelativeDecrease float64

	// Convergence thresholds:
	//   |cost change| <= FunctionTolerance * cost
	//   max |J^T r|   <= GradientTolerance
	//   |dx|          <= ParameterTolerance * (|x| + ParameterTolerance)
	FunctionTolerance  float64
	GradientTolerance  float64
	ParameterTolerance float64

	// LogProgress logs every iteration at info level instead of debug.
	LogProgress bool

	Callbacks []IterationCallback
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations:       50,
		InitialDamping:      1e-4,
		DampingFactor:       10,
		MinDamping:          1e-16,
		MaxDamping:          1e32,
		MaxDampingIncreases: 10,
		MinRelativeDecrease: 1e-3,
		FunctionTolerance:   1e-6,
		GradientTolerance:   1e-10,
		ParameterTolerance:  1e-8,
	}
}

// Validate checks option ranges.
func (o *Options) Validate() error {
	switch {
	case o.MaxIterations < 0:
		return &ValidationError{Field: "MaxIterations", Reason: "cannot be negative"}
	case o.InitialDamping <= 0:
		return &ValidationError{Field: "InitialDamping", Reason: "must be positive"}
	case o.DampingFactor <= 1:
		return &ValidationError{Field: "DampingFactor", Reason: "must be greater than 1"}
	case o.MinDamping <= 0:
		return &ValidationError{Field: "MinDamping", Reason: "must be positive"}
	case o.MaxDamping < o.MinDamping:
		return &ValidationError{Field: "MaxDamping", Reason: "cannot be less than MinDamping"}
	case o.InitialDamping < o.MinDamping || o.InitialDamping > o.MaxDamping:
		return &ValidationError{Field: "InitialDamping", Reason: "must lie within [MinDamping, MaxDamping]"}
	case o.MaxDampingIncreases < 0:
		return &ValidationError{Field: "MaxDampingIncreases", Reason: "cannot be negative"}
	case o.MinRelativeDecrease < 0 || o.MinRelativeDecrease >= 1:
		return &ValidationError{Field: "MinRelativeDecrease", Reason: "must lie within [0, 1)"}
	case o.FunctionTolerance < 0:
		return &ValidationError{Field: "FunctionTolerance", Reason: "cannot be negative"}
	case o.GradientTolerance < 0:
		return &ValidationError{Field: "GradientTolerance", Reason: "cannot be negative"}
	case o.ParameterTolerance < 0:
		return &ValidationError{Field: "ParameterTolerance", Reason: "cannot be negative"}
	}
	return nil
}
