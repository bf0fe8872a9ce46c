package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tinylsq",
	Short: "Tiny nonlinear least-squares solver",
	Long: `tinylsq minimises sums of squared residuals with a Levenberg-Marquardt
trust-region solver, using analytic, numeric or automatic derivatives.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(logLevel)
		slog.SetDefault(logger)
	},
}

// newLogger builds the JSON logger. Logs go to stderr so reports on stdout
// stay readable.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: l}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}
