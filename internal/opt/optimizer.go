// Package opt provides derivative-free optimizers used as a baseline against
// the least-squares solver.
package opt

import (
	"fmt"
	"math"
)

// Objective is a scalar cost to minimise.
type Objective func(x []float64) float64

// Optimizer minimises an objective inside a box.
type Optimizer interface {
	// Run searches lower <= x <= upper for the smallest cost and returns the
	// best point with its cost.
	Run(eval Objective, lower, upper []float64) (*Result, error)
	// Name identifies the optimizer in reports.
	Name() string
}

// Result holds the best point found by an optimizer.
type Result struct {
	Best        []float64
	Cost        float64
	Evaluations int
}

// Bounds returns a box of half-width 2*max(|x|, 10) around each coordinate.
func Bounds(x0 []float64) (lower, upper []float64) {
	lower = make([]float64, len(x0))
	upper = make([]float64, len(x0))
	for i, v := range x0 {
		w := 2 * math.Max(math.Abs(v), 10)
		lower[i] = v - w
		upper[i] = v + w
	}
	return lower, upper
}

func checkBounds(lower, upper []float64) error {
	if len(lower) == 0 || len(lower) != len(upper) {
		return fmt.Errorf("bounds: lower has %d entries, upper has %d", len(lower), len(upper))
	}
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return fmt.Errorf("bounds: lower[%d]=%g is not below upper[%d]=%g", i, lower[i], i, upper[i])
		}
	}
	return nil
}

// counting wraps an objective and counts its calls.
type counting struct {
	eval  Objective
	calls int
}

func (c *counting) cost(x []float64) float64 {
	c.calls++
	v := c.eval(x)
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}
