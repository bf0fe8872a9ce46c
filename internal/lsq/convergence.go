package lsq

import (
	"log/slog"
	"math"
)

// ConvergenceTracker records the cost history of a solve and applies the
// function, gradient and parameter tolerances.
type ConvergenceTracker struct {
	functionTolerance  float64
	gradientTolerance  float64
	parameterTolerance float64

	costHistory []float64
	bestCost    float64
}

// NewConvergenceTracker creates a tracker from the solver options.
func NewConvergenceTracker(opts Options) *ConvergenceTracker {
	return &ConvergenceTracker{
		functionTolerance:  opts.FunctionTolerance,
		gradientTolerance:  opts.GradientTolerance,
		parameterTolerance: opts.ParameterTolerance,
		costHistory:        []float64{},
		bestCost:           math.Inf(1),
	}
}

// Update records the cost after an accepted step and returns true once the
// relative cost change falls within the function tolerance.
func (c *ConvergenceTracker) Update(cost float64) bool {
	c.costHistory = append(c.costHistory, cost)
	if cost < c.bestCost {
		c.bestCost = cost
	}
	if len(c.costHistory) == 1 {
		return false
	}

	prev := c.costHistory[len(c.costHistory)-2]
	change := math.Abs(prev - cost)
	if change <= c.functionTolerance*prev {
		slog.Debug("Function tolerance reached",
			"cost", cost,
			"cost_change", change,
			"function_tolerance", c.functionTolerance,
		)
		return true
	}
	return false
}

// GradientConverged reports whether the gradient max-norm is within tolerance.
func (c *ConvergenceTracker) GradientConverged(gradientMaxNorm float64) bool {
	return gradientMaxNorm <= c.gradientTolerance
}

// StepConverged reports whether a step is negligible relative to x.
func (c *ConvergenceTracker) StepConverged(stepNorm, xNorm float64) bool {
	return stepNorm <= c.parameterTolerance*(xNorm+c.parameterTolerance)
}

// BestCost returns the lowest cost recorded so far.
func (c *ConvergenceTracker) BestCost() float64 {
	return c.bestCost
}

// History returns a copy of the recorded costs.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.costHistory...)
}
