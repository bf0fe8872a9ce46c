package main

import (
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/tinylsq/internal/store"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
)

var (
	traceStore  storeFlags
	traceHeight int
	traceWidth  int
	traceLinear bool
)

var traceCmd = &cobra.Command{
	Use:   "trace <run-id>",
	Short: "Plot the cost history of a stored run",
	Long: `Trace reads the iteration trace of a run saved with "tinylsq solve --save"
and plots the cost per iteration. The cost axis is log10 unless --linear is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := traceStore.resolve(cmd)
		if err != nil {
			return err
		}
		entries, err := store.LoadTrace(dir, args[0])
		if err != nil {
			return err
		}
		return plotTrace(cmd.OutOrStdout(), entries, traceHeight, traceWidth, !traceLinear)
	},
}

func init() {
	rootCmd.AddCommand(traceCmd)
	traceStore.register(traceCmd)
	traceCmd.Flags().IntVar(&traceHeight, "height", 10, "Plot height in rows")
	traceCmd.Flags().IntVar(&traceWidth, "width", 60, "Plot width in columns (0 = one column per iteration)")
	traceCmd.Flags().BoolVar(&traceLinear, "linear", false, "Plot cost on a linear axis")
}

func plotTrace(w io.Writer, entries []store.TraceEntry, height, width int, logScale bool) error {
	if len(entries) == 0 {
		return fmt.Errorf("trace is empty")
	}

	data := costSeries(entries, logScale)
	iterations := entries[len(entries)-1].Iteration
	caption := fmt.Sprintf("cost per iteration (%d iterations)", iterations)
	if logScale {
		caption = fmt.Sprintf("log10 cost per iteration (%d iterations)", iterations)
	}

	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Caption(caption)}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	fmt.Fprintln(w, asciigraph.Plot(data, opts...))

	first, last := entries[0], entries[len(entries)-1]
	fmt.Fprintf(w, "cost: %e -> %e\n", first.Cost, last.Cost)
	return nil
}

// costSeries extracts the cost column. On a log axis exact zeros are pinned
// to the smallest positive cost in the series.
func costSeries(entries []store.TraceEntry, logScale bool) []float64 {
	data := make([]float64, len(entries))
	if !logScale {
		for i, e := range entries {
			data[i] = e.Cost
		}
		return data
	}

	floor := math.Inf(1)
	for _, e := range entries {
		if e.Cost > 0 && e.Cost < floor {
			floor = e.Cost
		}
	}
	if math.IsInf(floor, 1) {
		floor = 1
	}
	for i, e := range entries {
		data[i] = math.Log10(math.Max(e.Cost, floor))
	}
	return data
}
