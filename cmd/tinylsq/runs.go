package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/tinylsq/internal/store"
	"github.com/spf13/cobra"
)

var (
	runsStore     storeFlags
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage stored solve runs",
	Long:  `List, inspect and clean runs stored by "tinylsq solve --save".`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := runsStore.open(cmd)
		if err != nil {
			return err
		}
		return listRuns(cmd.OutOrStdout(), fs)
	},
}

var showRunCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, err := runsStore.open(cmd)
		if err != nil {
			return err
		}
		return showRun(cmd.OutOrStdout(), fs, args[0])
	},
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old runs",
	Long: `Delete runs by retention policy: keep only the newest N runs, or delete runs
older than N days.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd, showRunCmd, cleanRunsCmd)

	runsStore.register(runsCmd)

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func listRuns(w io.Writer, fs *store.FSStore) error {
	infos, err := fs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tTIMESTAMP\tSTRATEGY\tX0\tFINAL X\tITERATIONS\tTERMINATION\tSIZE")
	fmt.Fprintln(tw, "------\t---------\t--------\t--\t-------\t----------\t-----------\t----")
	for _, info := range infos {
		sizeStr := "unknown"
		if size, err := getDirSize(fs.RunDir(info.ID)); err == nil {
			sizeStr = formatBytes(size)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%.10g\t%d\t%s\t%s\n",
			shortID(info.ID),
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.Strategy,
			info.X0,
			info.FinalX,
			info.Iterations,
			info.Termination,
			sizeStr,
		)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nTotal runs: %d\n", len(infos))
	return nil
}

func showRun(w io.Writer, fs *store.FSStore, id string) error {
	run, err := fs.LoadRun(id)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Timestamp:\t%s\n", run.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(tw, "Strategy:\t%s\n", run.Config.Strategy)
	if run.Config.NumericStep > 0 {
		fmt.Fprintf(tw, "Numeric step:\t%g\n", run.Config.NumericStep)
	}
	fmt.Fprintf(tw, "Max iterations:\t%d\n", run.Config.MaxIterations)
	fmt.Fprintf(tw, "x:\t%v -> %v\n", run.Config.X0, run.FinalX)
	fmt.Fprintf(tw, "Initial cost:\t%e\n", run.InitialCost)
	fmt.Fprintf(tw, "Final cost:\t%e\n", run.FinalCost)
	fmt.Fprintf(tw, "Iterations:\t%d\n", run.Iterations)
	fmt.Fprintf(tw, "Termination:\t%s\n", run.Termination)
	if run.Message != "" {
		fmt.Fprintf(tw, "Message:\t%s\n", run.Message)
	}
	fmt.Fprintf(tw, "Elapsed:\t%s\n", run.Elapsed)

	entries, err := store.LoadTrace(fs.BaseDir(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintf(tw, "Trace:\tnone\n")
	case err != nil:
		fmt.Fprintf(tw, "Trace:\tunreadable (%v)\n", err)
	default:
		fmt.Fprintf(tw, "Trace:\t%d entries\n", len(entries))
	}
	return tw.Flush()
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	fs, err := runsStore.open(cmd)
	if err != nil {
		return err
	}
	infos, err := fs.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	toDelete := selectRunsForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(info.ID), info.Strategy, info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := fs.DeleteRun(info.ID); err != nil {
			slog.Error("Failed to delete run", "run_id", info.ID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", info.ID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion returns runs older than olderThanDays plus every run
// beyond the newest keepLast. Zero disables a criterion.
func selectRunsForDeletion(infos []store.RunInfo, keepLast, olderThanDays int, now time.Time) []store.RunInfo {
	selected := make(map[string]bool)
	var toDelete []store.RunInfo
	add := func(info store.RunInfo) {
		if !selected[info.ID] {
			selected[info.ID] = true
			toDelete = append(toDelete, info)
		}
	}

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				add(info)
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := append([]store.RunInfo(nil), infos...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.After(sorted[j].Timestamp)
		})
		for _, info := range sorted[keepLast:] {
			add(info)
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// getDirSize sums the sizes of all regular files under path.
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
