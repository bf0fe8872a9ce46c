package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/tinylsq/internal/config"
	"github.com/cwbudde/tinylsq/internal/helloworld"
	"github.com/cwbudde/tinylsq/internal/opt"
	"github.com/spf13/cobra"
)

var compareFlags scenarioFlags

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare all differentiation strategies and a derivative-free baseline",
	Long: `Compare solves the tutorial problem from one starting point with automatic,
numeric and analytic derivatives, then minimises the same cost with the
mayfly swarm optimizer, and prints one row per method.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := compareFlags.resolve(cmd)
		if err != nil {
			return err
		}
		return compare(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareFlags.register(compareCmd)
}

func compare(w io.Writer, cfg *config.Config) error {
	opts, err := cfg.SolverOptions()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tFINAL X\tFINAL COST\tITERATIONS\tEVALUATIONS\tTERMINATION\tTIME")
	fmt.Fprintln(tw, "------\t-------\t----------\t----------\t-----------\t-----------\t----")

	for _, strategy := range helloworld.AllStrategies {
		start := time.Now()
		res, err := helloworld.Run(helloworld.Scenario{
			X0:          cfg.X0,
			Strategy:    strategy,
			NumericStep: cfg.NumericStep,
			Options:     opts,
		})
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		s := res.Summary
		fmt.Fprintf(tw, "%s\t%.10g\t%.3e\t%d\t%d\t%s\t%s\n",
			strategy, res.FinalX, s.FinalCost, s.Iterations, s.ResidualEvaluations, s.Termination, elapsed.Round(time.Microsecond))
	}

	b := cfg.Baseline
	start := time.Now()
	base, err := helloworld.RunBaseline(cfg.X0, opt.NewMayfly(b.Iterations, b.Population, b.Seed))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Fprintf(tw, "%s\t%.10g\t%.3e\t%d\t%d\t%s\t%s\n",
		base.Optimizer, base.FinalX, base.FinalCost, b.Iterations, base.Evaluations, "BUDGET_SPENT", elapsed.Round(time.Microsecond))

	return tw.Flush()
}
