package helloworld

import (
	"fmt"
	"log/slog"

	"github.com/cwbudde/tinylsq/internal/lsq"
	"github.com/cwbudde/tinylsq/internal/opt"
)

// Scenario describes one tutorial solve.
type Scenario struct {
	X0          float64
	Strategy    Strategy
	NumericStep float64
	Options     lsq.Options
}

// Result holds the output of a scenario run.
type Result struct {
	Strategy Strategy
	InitialX float64
	FinalX   float64
	Summary  *lsq.Summary
}

// Run builds the one-block problem for a scenario, solves it and reports the
// final x. Timing is left to the caller.
func Run(sc Scenario) (*Result, error) {
	cost, err := NewCost(sc.Strategy, sc.NumericStep)
	if err != nil {
		return nil, err
	}

	x := []float64{sc.X0}
	problem := lsq.NewProblem()
	if _, err := problem.AddResidualBlock(cost, nil, x); err != nil {
		return nil, fmt.Errorf("build problem: %w", err)
	}

	slog.Info("Starting solve", "strategy", sc.Strategy, "x0", sc.X0)
	summary := lsq.Solve(sc.Options, problem)
	slog.Info("Solve finished", "strategy", sc.Strategy, "x", x[0], "termination", summary.Termination.String())

	return &Result{
		Strategy: sc.Strategy,
		InitialX: sc.X0,
		FinalX:   x[0],
		Summary:  summary,
	}, nil
}

// Line renders the "x : x0 -> x" result line.
func (r *Result) Line() string {
	return fmt.Sprintf("x : %v -> %v", r.InitialX, r.FinalX)
}

// BaselineResult is the outcome of a derivative-free run on the tutorial cost.
type BaselineResult struct {
	Optimizer   string
	InitialX    float64
	FinalX      float64
	InitialCost float64
	FinalCost   float64
	Evaluations int
}

// RunBaseline minimises the same problem cost with a derivative-free
// optimizer in a box around x0.
func RunBaseline(x0 float64, optimizer opt.Optimizer) (*BaselineResult, error) {
	cost, err := NewCost(StrategyAnalytic, 0)
	if err != nil {
		return nil, err
	}
	x := []float64{x0}
	problem := lsq.NewProblem()
	if _, err := problem.AddResidualBlock(cost, nil, x); err != nil {
		return nil, fmt.Errorf("build problem: %w", err)
	}

	initialCost := problem.Cost(x)
	lower, upper := opt.Bounds(x)

	slog.Info("Starting baseline", "optimizer", optimizer.Name(), "x0", x0)
	res, err := optimizer.Run(problem.Cost, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", optimizer.Name(), err)
	}
	slog.Info("Baseline complete", "initial_cost", initialCost, "best_cost", res.Cost)

	return &BaselineResult{
		Optimizer:   optimizer.Name(),
		InitialX:    x0,
		FinalX:      res.Best[0],
		InitialCost: initialCost,
		FinalCost:   res.Cost,
		Evaluations: res.Evaluations,
	}, nil
}
