// Package lsq implements a small nonlinear least-squares solver: residual
// blocks over caller-owned parameters, aggregated into a Problem and
// minimised with a Levenberg-Marquardt trust-region loop.
package lsq

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Solve minimises the problem's cost starting from the values currently held
// in its parameter blocks. Accepted iterates are written back into that
// memory. Solve blocks until termination and never returns nil: failures are
// reported in the Summary, not as errors.
func Solve(options Options, problem *Problem) *Summary {
	s := &solver{
		opts:    options,
		problem: problem,
		start:   time.Now(),
		summary: &Summary{Termination: StateInitialized},
	}
	s.run()
	s.summary.TotalTime = time.Since(s.start)
	if s.tracker != nil {
		s.summary.CostHistory = s.tracker.History()
		s.summary.BestCost = s.summary.FinalCost
		if len(s.summary.CostHistory) > 0 {
			s.summary.BestCost = s.tracker.BestCost()
		}
	}

	logf := slog.Debug
	if options.LogProgress {
		logf = slog.Info
	}
	logf("Solve complete",
		"termination", s.summary.Termination.String(),
		"message", s.summary.Message,
		"iterations", s.summary.Iterations,
		"initial_cost", s.summary.InitialCost,
		"final_cost", s.summary.FinalCost,
		"elapsed", s.summary.TotalTime,
	)
	return s.summary
}

// solver holds the state of one Solve call. It is discarded afterwards.
type solver struct {
	opts    Options
	problem *Problem
	tracker *ConvergenceTracker
	summary *Summary
	start   time.Time

	m, n   int
	x      []float64
	cost   float64
	lambda float64
	normal *normalEquations
}

func (s *solver) run() {
	if err := s.opts.Validate(); err != nil {
		s.fail(err, "invalid options: "+err.Error())
		return
	}
	if s.problem == nil {
		s.fail(errors.New("problem cannot be nil"), "no problem to solve")
		return
	}

	s.m, s.n = s.problem.NumResiduals(), s.problem.NumParameters()
	s.summary.NumResiduals = s.m
	s.summary.NumParameters = s.n
	s.tracker = NewConvergenceTracker(s.opts)
	s.lambda = s.opts.InitialDamping
	s.x = s.problem.Parameters()

	if s.m == 0 {
		s.converge("problem has no residual blocks")
		return
	}

	eval, err := s.evaluate(s.x, s.n > 0)
	if err != nil {
		s.fail(err, "initial evaluation failed: "+err.Error())
		return
	}
	s.cost = eval.Cost
	s.summary.InitialCost = eval.Cost
	s.summary.FinalCost = eval.Cost
	s.tracker.Update(eval.Cost)

	if s.n == 0 {
		s.converge("no variable parameters to optimize")
		return
	}

	s.normal = newNormalEquations(eval, s.m, s.n)
	s.summary.Termination = StateIterating

	// Iteration 0 reports the starting point.
	s.record(&IterationSummary{
		Cost:            s.cost,
		GradientMaxNorm: s.normal.gradientMaxNorm(),
	}, s.start)

	for !s.summary.Termination.Terminal() {
		s.iterate()
	}
	s.problem.SetParameters(s.x)
}

// iterate performs one iteration: convergence checks at the current point,
// then step proposals with growing damping until one is accepted or the
// retry budget is spent.
func (s *solver) iterate() {
	gradNorm := s.normal.gradientMaxNorm()
	if s.tracker.GradientConverged(gradNorm) {
		s.converge(fmt.Sprintf("gradient tolerance reached: %e <= %e", gradNorm, s.opts.GradientTolerance))
		return
	}
	if s.summary.Iterations >= s.opts.MaxIterations {
		s.summary.Termination = StateMaxIterReached
		s.summary.Message = fmt.Sprintf("maximum number of iterations reached: %d", s.opts.MaxIterations)
		return
	}

	iterStart := time.Now()
	s.summary.Iterations++
	it := IterationSummary{
		Iteration:       s.summary.Iterations,
		Cost:            s.cost,
		GradientMaxNorm: gradNorm,
	}

	for {
		dx, err := s.normal.solveDamped(s.lambda)
		if err != nil {
			if !s.reject(&it) {
				s.fail(ErrSingularLinearSystem, fmt.Sprintf("linear system singular after %d damping increases (lambda %e)", it.Rejections, s.lambda))
				s.record(&it, iterStart)
				return
			}
			continue
		}

		it.StepNorm = floats.Norm(dx, 2)
		if s.tracker.StepConverged(it.StepNorm, floats.Norm(s.x, 2)) {
			s.converge(fmt.Sprintf("parameter tolerance reached: |step| %e", it.StepNorm))
			s.record(&it, iterStart)
			return
		}

		candidate := make([]float64, s.n)
		floats.AddTo(candidate, s.x, dx)

		// Non-finite trial points are rejected like any uphill step.
		trial, err := s.evaluate(candidate, false)
		if err != nil && !errors.Is(err, ErrNonFiniteResidual) {
			s.fail(err, "cost function failed: "+err.Error())
			s.record(&it, iterStart)
			return
		}

		ratio := math.Inf(-1)
		if err == nil {
			if predicted := s.normal.predictedDecrease(dx, s.lambda); predicted > 0 {
				ratio = (s.cost - trial.Cost) / predicted
			}
			if ratio <= s.opts.MinRelativeDecrease && math.Abs(s.cost-trial.Cost) <= s.opts.FunctionTolerance*s.cost {
				s.converge(fmt.Sprintf("function tolerance reached: no step improves cost %e", s.cost))
				s.record(&it, iterStart)
				return
			}
		}

		if ratio > s.opts.MinRelativeDecrease {
			s.accept(&it, candidate)
			s.record(&it, iterStart)
			return
		}

		if !s.reject(&it) {
			s.fail(ErrNoProgress, fmt.Sprintf("step rejected %d times (lambda %e)", it.Rejections, s.lambda))
			s.record(&it, iterStart)
			return
		}
	}
}

// accept moves to candidate, relinearises there and relaxes the damping.
func (s *solver) accept(it *IterationSummary, candidate []float64) {
	eval, err := s.evaluate(candidate, true)
	if err != nil {
		s.fail(err, "evaluation at accepted step failed: "+err.Error())
		return
	}

	it.StepAccepted = true
	it.CostChange = s.cost - eval.Cost
	it.Cost = eval.Cost

	s.x = candidate
	s.cost = eval.Cost
	s.problem.SetParameters(s.x)
	s.normal = newNormalEquations(eval, s.m, s.n)
	s.lambda = math.Max(s.lambda/s.opts.DampingFactor, s.opts.MinDamping)

	s.summary.SuccessfulSteps++
	s.summary.FinalCost = s.cost

	if s.tracker.Update(s.cost) {
		s.converge(fmt.Sprintf("function tolerance reached: |cost change| %e <= %e * cost",
			math.Abs(it.CostChange), s.opts.FunctionTolerance))
	}
}

// reject raises the damping after a failed step. It returns false once the
// retry budget or the damping ceiling is exhausted.
func (s *solver) reject(it *IterationSummary) bool {
	it.Rejections++
	s.summary.UnsuccessfulSteps++
	if it.Rejections > s.opts.MaxDampingIncreases {
		return false
	}
	s.lambda *= s.opts.DampingFactor
	return s.lambda <= s.opts.MaxDamping && !math.IsInf(s.lambda, 1)
}

func (s *solver) evaluate(x []float64, wantJacobian bool) (*Evaluation, error) {
	s.summary.ResidualEvaluations++
	if wantJacobian {
		s.summary.JacobianEvaluations++
	}
	return s.problem.Evaluate(x, wantJacobian)
}

// record finalises an iteration summary, logs it and runs the callbacks.
func (s *solver) record(it *IterationSummary, iterStart time.Time) {
	it.Damping = s.lambda
	it.TrustRegionRadius = 1 / s.lambda
	it.IterationTime = time.Since(iterStart)
	it.CumulativeTime = time.Since(s.start)
	s.summary.History = append(s.summary.History, *it)

	logf := slog.Debug
	if s.opts.LogProgress {
		logf = slog.Info
	}
	logf("Solver iteration",
		"iter", it.Iteration,
		"cost", it.Cost,
		"cost_change", it.CostChange,
		"gradient", it.GradientMaxNorm,
		"step", it.StepNorm,
		"tr_radius", it.TrustRegionRadius,
		"accepted", it.StepAccepted,
		"rejections", it.Rejections,
	)

	for _, cb := range s.opts.Callbacks {
		result := cb(*it)
		if s.summary.Termination.Terminal() {
			continue
		}
		switch result {
		case CallbackStop:
			s.converge("stopped by callback")
		case CallbackAbort:
			s.fail(ErrAborted, "aborted by callback")
		}
	}
}

func (s *solver) converge(msg string) {
	s.summary.Termination = StateConverged
	s.summary.Message = msg
}

func (s *solver) fail(err error, msg string) {
	s.summary.Termination = StateFailed
	s.summary.Err = err
	s.summary.Message = msg
	slog.Warn("Solve failed", "error", err, "message", msg)
}
