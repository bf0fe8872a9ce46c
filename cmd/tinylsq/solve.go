package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/tinylsq/internal/config"
	"github.com/cwbudde/tinylsq/internal/helloworld"
	"github.com/cwbudde/tinylsq/internal/store"
	"github.com/spf13/cobra"
)

var (
	solveFlags scenarioFlags
	saveRun    bool
	fullReport bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the tutorial problem 0.5*(10-x)^2",
	Long: `Solve minimises 0.5*(10-x)^2 from --x0 with each requested differentiation
strategy and prints the solver report followed by "x : x0 -> x".`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveFlags.register(solveCmd)
	solveCmd.Flags().BoolVar(&saveRun, "save", false, "Store the run and its iteration trace under --data-dir")
	solveCmd.Flags().BoolVar(&fullReport, "full", false, "Print the full report with the iteration table")
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := solveFlags.resolve(cmd)
	if err != nil {
		return err
	}
	strategies, err := helloworld.ParseStrategies(cfg.Strategy)
	if err != nil {
		return err
	}

	var fs *store.FSStore
	if saveRun {
		fs, err = store.NewFSStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to create run store: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	for _, strategy := range strategies {
		if _, err := solveScenario(out, cfg, strategy, fs, fullReport); err != nil {
			return err
		}
	}
	return nil
}

// solveScenario runs one strategy and prints its report. With a non-nil
// store the run and its trace are persisted and the stored record returned.
func solveScenario(w io.Writer, cfg *config.Config, strategy helloworld.Strategy, fs *store.FSStore, full bool) (*store.Run, error) {
	opts, err := cfg.SolverOptions()
	if err != nil {
		return nil, err
	}

	var run *store.Run
	var trace *store.TraceWriter
	if fs != nil {
		run = store.NewRun(store.RunConfig{
			Strategy:      string(strategy),
			X0:            cfg.X0,
			NumericStep:   cfg.NumericStep,
			MaxIterations: opts.MaxIterations,
		})
		trace, err = store.NewTraceWriter(fs.BaseDir(), run.ID, false)
		if err != nil {
			return nil, err
		}
		opts.Callbacks = append(opts.Callbacks, trace.Callback())
	}

	start := time.Now()
	res, err := helloworld.Run(helloworld.Scenario{
		X0:          cfg.X0,
		Strategy:    strategy,
		NumericStep: cfg.NumericStep,
		Options:     opts,
	})
	elapsed := time.Since(start)

	if trace != nil {
		if cerr := trace.Close(); cerr != nil {
			slog.Warn("Failed to close trace", "path", trace.Path(), "error", cerr)
		}
	}
	if err != nil {
		if fs != nil {
			discardRun(fs, run.ID)
		}
		return nil, err
	}

	fmt.Fprintf(w, "[%s]\n", strategy)
	if full {
		fmt.Fprintln(w, res.Summary.FullReport())
	} else {
		fmt.Fprintln(w, res.Summary.BriefReport())
	}
	fmt.Fprintln(w, res.Line())
	fmt.Fprintf(w, "elapsed: %s\n", elapsed.Round(time.Microsecond))

	if fs == nil {
		return nil, nil
	}

	s := res.Summary
	run.FinalX = res.FinalX
	run.InitialCost = s.InitialCost
	run.FinalCost = s.FinalCost
	run.Iterations = s.Iterations
	run.Termination = s.Termination.String()
	run.Message = s.Message
	run.Elapsed = elapsed
	if err := fs.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	fmt.Fprintf(w, "run: %s\n", run.ID)
	return run, nil
}

// discardRun removes the partial record of a failed solve. A failure to
// remove it is logged, not returned: the solve error matters more.
func discardRun(fs *store.FSStore, id string) {
	if err := fs.DeleteRun(id); err != nil {
		slog.Warn("Failed to remove run", "run_id", id, "error", err)
	}
}
