// Package helloworld contains the tutorial problem r(x) = 10 - x, minimised
// as 0.5 * (10 - x)^2, with one cost function per differentiation strategy.
package helloworld

import (
	"fmt"
	"strings"

	"github.com/cwbudde/tinylsq/internal/diff"
)

// Target is the value x converges to.
const Target = 10.0

// TenMinusX is the residual written once for any Scalar, so the same code
// feeds both the automatic and the numeric provider.
func TenMinusX[T diff.Scalar[T]](x, r []T) error {
	r[0] = diff.Constant[T](Target).Sub(x[0])
	return nil
}

// quadratic is the closed-form residual with its derivative.
func quadratic(x, r, jac []float64) error {
	r[0] = Target - x[0]
	if jac != nil {
		jac[0] = -1
	}
	return nil
}

// Strategy names a differentiation strategy.
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyNumeric  Strategy = "numeric"
	StrategyAnalytic Strategy = "analytic"
)

// AllStrategies lists the strategies in the order the tutorial runs them.
var AllStrategies = []Strategy{StrategyAuto, StrategyNumeric, StrategyAnalytic}

// ParseStrategies accepts a strategy name or "all".
func ParseStrategies(s string) ([]Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all" {
		return append([]Strategy{}, AllStrategies...), nil
	}
	for _, st := range AllStrategies {
		if string(st) == s {
			return []Strategy{st}, nil
		}
	}
	return nil, fmt.Errorf("unknown strategy: %q (want auto, numeric, analytic or all)", s)
}

// NewCost builds the tutorial cost function for a strategy. numericStep sets
// the relative finite-difference step and is ignored by the other
// strategies; zero keeps the default.
func NewCost(strategy Strategy, numericStep float64) (diff.CostFunction, error) {
	switch strategy {
	case StrategyAuto:
		return diff.NewAutoDiff(1, 1, TenMinusX[diff.Jet]), nil
	case StrategyNumeric:
		cost := diff.NewNumericDiff(1, 1, diff.Plain(TenMinusX[diff.Real]))
		if numericStep > 0 {
			cost.RelStep = numericStep
		}
		return cost, nil
	case StrategyAnalytic:
		return diff.NewAnalytic(1, 1, quadratic), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", strategy)
	}
}
