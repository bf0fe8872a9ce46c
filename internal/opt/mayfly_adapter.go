package opt

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MinPopulation is the smallest population the mayfly library accepts.
const MinPopulation = 20

// Mayfly adapts the mayfly swarm optimizer to the Optimizer interface.
type Mayfly struct {
	MaxIterations int
	Population    int
	Seed          int64
}

// NewMayfly returns a Mayfly optimizer. Populations below MinPopulation are
// raised to it.
func NewMayfly(maxIters, popSize int, seed int64) *Mayfly {
	if popSize < MinPopulation {
		popSize = MinPopulation
	}
	return &Mayfly{MaxIterations: maxIters, Population: popSize, Seed: seed}
}

func (m *Mayfly) Name() string { return "mayfly" }

// Run searches the unit cube and maps each coordinate onto its own
// [lower, upper] interval, since the library takes a single scalar bound.
func (m *Mayfly) Run(eval Objective, lower, upper []float64) (*Result, error) {
	if err := checkBounds(lower, upper); err != nil {
		return nil, err
	}
	dim := len(lower)
	counter := &counting{eval: eval}
	point := make([]float64, dim)
	scale := func(u []float64) []float64 {
		for i := range point {
			point[i] = lower[i] + u[i]*(upper[i]-lower[i])
		}
		return point
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 { return counter.cost(scale(u)) }
	config.ProblemSize = dim
	config.MaxIterations = m.MaxIterations
	config.NPop = m.Population
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.Seed))

	slog.Debug("Starting mayfly", "dim", dim, "iterations", m.MaxIterations, "population", m.Population)

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly: %w", err)
	}

	best := append([]float64(nil), scale(result.GlobalBest.Position)...)
	slog.Debug("Mayfly complete", "cost", result.GlobalBest.Cost, "evaluations", counter.calls)

	return &Result{
		Best:        best,
		Cost:        result.GlobalBest.Cost,
		Evaluations: counter.calls,
	}, nil
}
