package lsq

import (
	"fmt"
	"strings"
	"time"
)

// State is the solver state machine:
// Initialized -> Iterating -> Converged | MaxIterReached | Failed.
type State int

const (
	StateInitialized State = iota
	StateIterating
	StateConverged
	StateMaxIterReached
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "INITIALIZED"
	case StateIterating:
		return "ITERATING"
	case StateConverged:
		return "CONVERGED"
	case StateMaxIterReached:
		return "MAX_ITER_REACHED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the solve has ended in this state.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateMaxIterReached || s == StateFailed
}

// IterationSummary describes one solver iteration. Iteration 0 describes
// the starting point: no step has been taken yet.
type IterationSummary struct {
	Iteration         int
	Cost              float64
	CostChange        float64
	GradientMaxNorm   float64
	StepNorm          float64
	Damping           float64
	TrustRegionRadius float64
	StepAccepted      bool
	Rejections        int
	IterationTime     time.Duration
	CumulativeTime    time.Duration
}

// Summary reports the outcome of Solve.
type Summary struct {
	Termination State
	Message     string
	// Err carries the failure cause when Termination is StateFailed.
	Err error

	InitialCost float64
	FinalCost   float64
	// BestCost is the lowest cost seen at an accepted point. CostHistory
	// lists those costs in order, starting with the initial cost.
	BestCost    float64
	CostHistory []float64

	Iterations          int
	SuccessfulSteps     int
	UnsuccessfulSteps   int
	ResidualEvaluations int
	JacobianEvaluations int

	NumParameters int
	NumResiduals  int

	TotalTime time.Duration
	History   []IterationSummary
}

// IsSolutionUsable reports whether the parameters left in the problem are
// the result of a proper solve, even if it did not fully converge.
func (s *Summary) IsSolutionUsable() bool {
	return s.Termination == StateConverged || s.Termination == StateMaxIterReached
}

// BriefReport is a one-line summary.
func (s *Summary) BriefReport() string {
	return fmt.Sprintf("tinylsq report: Iterations: %d, Initial cost: %e, Final cost: %e, Termination: %s",
		s.Iterations, s.InitialCost, s.FinalCost, s.Termination)
}

// FullReport is a multi-line summary including every iteration.
func (s *Summary) FullReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Solver summary\n\n")
	fmt.Fprintf(&b, "%-24s %d\n", "Parameters", s.NumParameters)
	fmt.Fprintf(&b, "%-24s %d\n\n", "Residuals", s.NumResiduals)
	fmt.Fprintf(&b, "%-24s %e\n", "Initial cost", s.InitialCost)
	fmt.Fprintf(&b, "%-24s %e\n", "Final cost", s.FinalCost)
	if len(s.CostHistory) > 0 {
		fmt.Fprintf(&b, "%-24s %e\n", "Best cost", s.BestCost)
		fmt.Fprintf(&b, "%-24s %d\n", "Accepted points", len(s.CostHistory))
	}
	fmt.Fprintf(&b, "%-24s %e\n\n", "Change", s.InitialCost-s.FinalCost)
	fmt.Fprintf(&b, "%-24s %d\n", "Iterations", s.Iterations)
	fmt.Fprintf(&b, "%-24s %d\n", "Successful steps", s.SuccessfulSteps)
	fmt.Fprintf(&b, "%-24s %d\n", "Unsuccessful steps", s.UnsuccessfulSteps)
	fmt.Fprintf(&b, "%-24s %d\n", "Residual evaluations", s.ResidualEvaluations)
	fmt.Fprintf(&b, "%-24s %d\n\n", "Jacobian evaluations", s.JacobianEvaluations)

	if len(s.History) > 0 {
		fmt.Fprintf(&b, "%4s %14s %12s %12s %12s %12s %8s\n",
			"iter", "cost", "cost_change", "|gradient|", "|step|", "tr_radius", "accepted")
		for _, it := range s.History {
			fmt.Fprintf(&b, "%4d %14e %12.2e %12.2e %12.2e %12.2e %8t\n",
				it.Iteration, it.Cost, it.CostChange, it.GradientMaxNorm, it.StepNorm, it.TrustRegionRadius, it.StepAccepted)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%-24s %s\n", "Total time", s.TotalTime)
	fmt.Fprintf(&b, "%-24s %s (%s)\n", "Termination", s.Termination, s.Message)
	return b.String()
}
