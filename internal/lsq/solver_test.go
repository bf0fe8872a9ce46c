package lsq

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/tinylsq/internal/diff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func costFunctions() map[string]func() diff.CostFunction {
	return map[string]func() diff.CostFunction{
		"auto": func() diff.CostFunction {
			return diff.NewAutoDiff(1, 1, tenMinusX[diff.Jet])
		},
		"numeric": func() diff.CostFunction {
			return diff.NewNumericDiff(1, 1, diff.Plain(tenMinusX[diff.Real]))
		},
		"analytic": func() diff.CostFunction {
			return diff.NewAnalytic(1, 1, func(x, r, jac []float64) error {
				r[0] = 10 - x[0]
				if jac != nil {
					jac[0] = -1
				}
				return nil
			})
		},
	}
}

func solveTenMinusX(t *testing.T, cost diff.CostFunction, x0 float64, opts Options) (float64, *Summary) {
	t.Helper()
	x := []float64{x0}
	p := NewProblem()
	_, err := p.AddResidualBlock(cost, nil, x)
	require.NoError(t, err)
	summary := Solve(opts, p)
	return x[0], summary
}

func TestSolveConvergesForAllProviders(t *testing.T) {
	for name, newCost := range costFunctions() {
		for _, x0 := range []float64{0.2, -42, 5e6} {
			x := []float64{x0}
			p := NewProblem()
			_, err := p.AddResidualBlock(newCost(), nil, x)
			require.NoError(t, err)

			summary := Solve(DefaultOptions(), p)

			assert.Equal(t, StateConverged, summary.Termination, "%s x0=%g: %s", name, x0, summary.Message)
			assert.InDelta(t, 10.0, x[0], 1e-6, "%s x0=%g", name, x0)
			assert.Less(t, summary.Iterations, 50)
			assert.InDelta(t, 0.0, summary.FinalCost, 1e-12)
			assert.True(t, summary.IsSolutionUsable())
		}
	}
}

func TestSolveScenarioSmallStart(t *testing.T) {
	x := []float64{0.2}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["auto"](), nil, x)
	require.NoError(t, err)

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateConverged, summary.Termination)
	assert.InDelta(t, 10.0, x[0], 1e-6)
	assert.InDelta(t, 0.5*9.8*9.8, summary.InitialCost, 1e-9)
	assert.InDelta(t, 0.0, summary.FinalCost, 1e-12)
	assert.Equal(t, 1, summary.NumParameters)
	assert.Equal(t, 1, summary.NumResiduals)
	require.Len(t, summary.History, summary.Iterations+1)
	assert.Equal(t, 0, summary.History[0].Iteration)
	assert.Equal(t, summary.InitialCost, summary.History[0].Cost)
	assert.InDelta(t, 9.8, summary.History[0].GradientMaxNorm, 1e-9)
	assert.False(t, summary.History[0].StepAccepted)

	assert.Equal(t, summary.FinalCost, summary.BestCost)
	require.NotEmpty(t, summary.CostHistory)
	assert.Equal(t, summary.InitialCost, summary.CostHistory[0])
	assert.Len(t, summary.CostHistory, summary.SuccessfulSteps+1)
}

func TestSolveScenarioLargeStart(t *testing.T) {
	x := []float64{5e6}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["numeric"](), nil, x)
	require.NoError(t, err)

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateConverged, summary.Termination, summary.Message)
	assert.InDelta(t, 10.0, x[0], 1e-6)
	assert.LessOrEqual(t, summary.Iterations, DefaultOptions().MaxIterations)
	assert.Greater(t, summary.InitialCost, 1e12)
}

func TestSolveStartingAtSolution(t *testing.T) {
	for name, newCost := range costFunctions() {
		x := []float64{10}
		p := NewProblem()
		_, err := p.AddResidualBlock(newCost(), nil, x)
		require.NoError(t, err)

		summary := Solve(DefaultOptions(), p)

		assert.Equal(t, StateConverged, summary.Termination, name)
		assert.LessOrEqual(t, summary.Iterations, 1, name)
		assert.Equal(t, 10.0, x[0], name)
		assert.Equal(t, 0.0, summary.FinalCost, name)
		// The starting point is still reported.
		require.NotEmpty(t, summary.History, name)
		assert.Equal(t, 0, summary.History[0].Iteration, name)
		assert.Equal(t, 0.0, summary.History[0].Cost, name)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	for name, newCost := range costFunctions() {
		x1, s1 := solveTenMinusX(t, newCost(), 0.2, DefaultOptions())
		x2, s2 := solveTenMinusX(t, newCost(), 0.2, DefaultOptions())

		assert.Equal(t, x1, x2, name)
		assert.Equal(t, s1.Iterations, s2.Iterations, name)
		assert.Equal(t, s1.FinalCost, s2.FinalCost, name)
		require.Equal(t, len(s1.History), len(s2.History), name)
		for i := range s1.History {
			assert.Equal(t, s1.History[i].Cost, s2.History[i].Cost, name)
		}
	}
}

func TestSolveRepeatedFromSameStart(t *testing.T) {
	run := func() (float64, int) {
		x := []float64{0.2}
		p := NewProblem()
		_, err := p.AddResidualBlock(costFunctions()["numeric"](), nil, x)
		require.NoError(t, err)
		summary := Solve(DefaultOptions(), p)
		return x[0], summary.Iterations
	}

	xa, ia := run()
	xb, ib := run()
	assert.Equal(t, xa, xb)
	assert.Equal(t, ia, ib)
}

func TestSolveMaxIterations(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIterations = 1
	opts.InitialDamping = 10 // heavily damped: one step cannot reach 10

	x := []float64{0.2}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["analytic"](), nil, x)
	require.NoError(t, err)

	summary := Solve(opts, p)

	assert.Equal(t, StateMaxIterReached, summary.Termination)
	assert.Equal(t, 1, summary.Iterations)
	assert.True(t, summary.IsSolutionUsable())
	assert.Greater(t, x[0], 0.2)
	assert.Less(t, summary.FinalCost, summary.InitialCost)
}

func TestSolveInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.DampingFactor = 0.5

	x := []float64{0.2}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["analytic"](), nil, x)
	require.NoError(t, err)

	summary := Solve(opts, p)

	assert.Equal(t, StateFailed, summary.Termination)
	var ve *ValidationError
	require.True(t, errors.As(summary.Err, &ve))
	assert.Equal(t, "DampingFactor", ve.Field)
	assert.Equal(t, 0.2, x[0])
}

func TestSolveNonFiniteResidual(t *testing.T) {
	cost := diff.NewAnalytic(1, 1, func(x, r, jac []float64) error {
		r[0] = math.NaN()
		return nil
	})
	x := []float64{1}
	p := NewProblem()
	_, err := p.AddResidualBlock(cost, nil, x)
	require.NoError(t, err)

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateFailed, summary.Termination)
	assert.ErrorIs(t, summary.Err, ErrNonFiniteResidual)
	assert.False(t, summary.IsSolutionUsable())
}

func TestSolveRejectsNonFiniteTrialPoints(t *testing.T) {
	// r = sqrt(x) - 1 is undefined left of zero; the first Gauss-Newton
	// steps from x=9 overshoot into negative x and must be rejected.
	sqrtMinusOne := func(x, r []diff.Jet) error {
		r[0] = x[0].Sqrt().AddConst(-1)
		return nil
	}
	x := []float64{9}
	p := NewProblem()
	_, err := p.AddResidualBlock(diff.NewAutoDiff(1, 1, sqrtMinusOne), nil, x)
	require.NoError(t, err)

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateConverged, summary.Termination, summary.Message)
	assert.InDelta(t, 1.0, x[0], 1e-6)
	assert.Greater(t, summary.UnsuccessfulSteps, 0)
}

func TestSolveCostFunctionError(t *testing.T) {
	boom := errors.New("boom")
	cost := diff.NewAnalytic(1, 1, func(x, r, jac []float64) error {
		return boom
	})
	x := []float64{1}
	p := NewProblem()
	_, err := p.AddResidualBlock(cost, nil, x)
	require.NoError(t, err)

	summary := Solve(DefaultOptions(), p)
	assert.Equal(t, StateFailed, summary.Termination)
	assert.ErrorIs(t, summary.Err, boom)
}

func TestSolveSingularLinearSystem(t *testing.T) {
	// J^T J is rank deficient and the damping bounds leave no room to
	// regularise it.
	opts := DefaultOptions()
	opts.InitialDamping = 1e-300
	opts.MinDamping = 1e-300
	opts.MaxDamping = 1e-299
	opts.MaxDampingIncreases = 1

	cost := diff.NewAnalytic(1, 2, func(x, r, jac []float64) error {
		r[0] = x[0] + x[1] - 1
		if jac != nil {
			jac[0] = 1
			jac[1] = 1
		}
		return nil
	})
	x := []float64{5, 5}
	p := NewProblem()
	_, err := p.AddResidualBlock(cost, nil, x)
	require.NoError(t, err)

	summary := Solve(opts, p)

	assert.Equal(t, StateFailed, summary.Termination, summary.Message)
	assert.ErrorIs(t, summary.Err, ErrSingularLinearSystem)
}

func TestSolveLineFit(t *testing.T) {
	p := NewProblem()
	ab := []float64{0, 0}
	for i, y := range []float64{1, 3, 5, 7} {
		_, err := p.AddResidualBlock(lineResidual(float64(i), y), nil, ab)
		require.NoError(t, err)
	}

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateConverged, summary.Termination)
	assert.InDelta(t, 2.0, ab[0], 1e-6)
	assert.InDelta(t, 1.0, ab[1], 1e-6)
}

func TestSolveWithRobustLoss(t *testing.T) {
	p := NewProblem()
	ab := []float64{1.8, 1.2}
	ys := []float64{1, 3, 5, 7, 100} // last point is an outlier
	for i, y := range ys {
		_, err := p.AddResidualBlock(lineResidual(float64(i), y), CauchyLoss{A: 1}, ab)
		require.NoError(t, err)
	}

	opts := DefaultOptions()
	opts.MaxIterations = 200
	summary := Solve(opts, p)

	require.True(t, summary.IsSolutionUsable(), summary.Message)
	assert.InDelta(t, 2.0, ab[0], 0.2)
	assert.InDelta(t, 1.0, ab[1], 0.5)
}

func TestSolveConstantBlockIsNotMoved(t *testing.T) {
	x := []float64{0.2}
	y := []float64{3}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["auto"](), nil, x)
	require.NoError(t, err)
	_, err = p.AddResidualBlock(diff.NewAutoDiff(1, 1, tenMinusX[diff.Jet]), nil, y)
	require.NoError(t, err)
	require.NoError(t, p.SetParameterBlockConstant(y))

	summary := Solve(DefaultOptions(), p)

	assert.Equal(t, StateConverged, summary.Termination)
	assert.InDelta(t, 10.0, x[0], 1e-6)
	assert.Equal(t, 3.0, y[0])
	assert.InDelta(t, 0.5*49, summary.FinalCost, 1e-9)
}

func TestSolveNoVariableParameters(t *testing.T) {
	x := []float64{0.2}
	p := NewProblem()
	_, err := p.AddResidualBlock(costFunctions()["auto"](), nil, x)
	require.NoError(t, err)
	require.NoError(t, p.SetParameterBlockConstant(x))

	summary := Solve(DefaultOptions(), p)
	assert.Equal(t, StateConverged, summary.Termination)
	assert.Equal(t, 0, summary.Iterations)
	assert.Equal(t, 0.2, x[0])
}

func TestSolveOverflowingCostFails(t *testing.T) {
	// r = 10 - 1e300 is finite but its square overflows.
	for name, newCost := range costFunctions() {
		x, summary := solveTenMinusX(t, newCost(), 1e300, DefaultOptions())

		assert.Equal(t, StateFailed, summary.Termination, name)
		assert.ErrorIs(t, summary.Err, ErrNonFiniteResidual, name)
		assert.NotErrorIs(t, summary.Err, ErrNoProgress, name)
		assert.Equal(t, 1e300, x, name)
		assert.Equal(t, 0, summary.Iterations, name)
	}
}

func TestSolveEmptyProblem(t *testing.T) {
	summary := Solve(DefaultOptions(), NewProblem())
	assert.Equal(t, StateConverged, summary.Termination)
	assert.Equal(t, 0.0, summary.FinalCost)
}

func TestSolveNilProblem(t *testing.T) {
	summary := Solve(DefaultOptions(), nil)
	assert.Equal(t, StateFailed, summary.Termination)
	assert.Error(t, summary.Err)
}

func TestSolveCallbacks(t *testing.T) {
	var seen []int
	opts := DefaultOptions()
	opts.Callbacks = []IterationCallback{
		func(it IterationSummary) CallbackResult {
			seen = append(seen, it.Iteration)
			return CallbackContinue
		},
	}

	_, summary := solveTenMinusX(t, costFunctions()["analytic"](), 0.2, opts)
	require.Equal(t, StateConverged, summary.Termination)
	assert.Len(t, seen, summary.Iterations+1)
	for i, it := range seen {
		assert.Equal(t, i, it)
	}
}

func TestSolveCallbackStopAndAbort(t *testing.T) {
	stop := DefaultOptions()
	stop.Callbacks = []IterationCallback{
		func(it IterationSummary) CallbackResult {
			if it.Iteration == 1 {
				return CallbackStop
			}
			return CallbackContinue
		},
	}
	_, summary := solveTenMinusX(t, costFunctions()["analytic"](), 0.2, stop)
	assert.Equal(t, StateConverged, summary.Termination)
	assert.Equal(t, "stopped by callback", summary.Message)
	assert.Equal(t, 1, summary.Iterations)

	stopAtStart := DefaultOptions()
	stopAtStart.Callbacks = []IterationCallback{
		func(IterationSummary) CallbackResult { return CallbackStop },
	}
	x, summary := solveTenMinusX(t, costFunctions()["analytic"](), 0.2, stopAtStart)
	assert.Equal(t, StateConverged, summary.Termination)
	assert.Equal(t, 0, summary.Iterations)
	assert.Equal(t, 0.2, x)

	abort := DefaultOptions()
	abort.Callbacks = []IterationCallback{
		func(IterationSummary) CallbackResult { return CallbackAbort },
	}
	_, summary = solveTenMinusX(t, costFunctions()["analytic"](), 0.2, abort)
	assert.Equal(t, StateFailed, summary.Termination)
	assert.ErrorIs(t, summary.Err, ErrAborted)
}

func TestSummaryReports(t *testing.T) {
	_, summary := solveTenMinusX(t, costFunctions()["auto"](), 0.2, DefaultOptions())

	brief := summary.BriefReport()
	assert.Contains(t, brief, "Termination: CONVERGED")
	assert.Contains(t, brief, "Iterations:")

	full := summary.FullReport()
	assert.Contains(t, full, "Successful steps")
	assert.Contains(t, full, "Best cost")
	assert.Contains(t, full, "tr_radius")
	assert.Equal(t, 1, strings.Count(full, "Termination"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CONVERGED", StateConverged.String())
	assert.Equal(t, "MAX_ITER_REACHED", StateMaxIterReached.String())
	assert.Equal(t, "FAILED", StateFailed.String())
	assert.False(t, StateIterating.Terminal())
	assert.True(t, StateFailed.Terminal())
}
