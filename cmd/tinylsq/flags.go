package main

import (
	"fmt"

	"github.com/cwbudde/tinylsq/internal/config"
	"github.com/cwbudde/tinylsq/internal/store"
	"github.com/spf13/cobra"
)

// scenarioFlags are the flags shared by solve and compare. Flags set on the
// command line override the YAML file given by --config.
type scenarioFlags struct {
	configPath  string
	x0          float64
	strategy    string
	numericStep float64
	maxIters    int
	progress    bool
	dataDir     string
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML configuration file")
	flags.Float64Var(&f.x0, "x0", defaults.X0, "Initial value of x")
	flags.StringVar(&f.strategy, "strategy", defaults.Strategy, "Differentiation strategy (auto, numeric, analytic, all)")
	flags.Float64Var(&f.numericStep, "numeric-step", 0, "Relative finite-difference step (0 = default)")
	flags.IntVar(&f.maxIters, "max-iters", defaults.Solver.MaxIterations, "Maximum solver iterations")
	flags.BoolVar(&f.progress, "progress", false, "Log every solver iteration")
	flags.StringVar(&f.dataDir, "data-dir", defaults.DataDir, "Base directory for stored runs")
}

func (f *scenarioFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("x0") {
		cfg.X0 = f.x0
	}
	if flags.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if flags.Changed("numeric-step") {
		cfg.NumericStep = f.numericStep
	}
	if flags.Changed("max-iters") {
		cfg.Solver.MaxIterations = f.maxIters
	}
	if flags.Changed("progress") {
		cfg.Solver.Progress = f.progress
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	return cfg, nil
}

// storeFlags locate the run store for commands that read stored runs. An
// explicit --data-dir wins over data_dir from --config.
type storeFlags struct {
	configPath string
	dataDir    string
}

// register adds the flags as persistent flags so subcommands inherit them.
func (f *storeFlags) register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&f.configPath, "config", "", "YAML configuration file (only data_dir is used)")
	flags.StringVar(&f.dataDir, "data-dir", config.DefaultDataDir, "Base directory for stored runs")
}

func (f *storeFlags) resolve(cmd *cobra.Command) (string, error) {
	if f.configPath == "" || cmd.Flags().Changed("data-dir") {
		return f.dataDir, nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return "", err
	}
	return cfg.DataDir, nil
}

// open resolves the data directory and opens the run store there.
func (f *storeFlags) open(cmd *cobra.Command) (*store.FSStore, error) {
	dir, err := f.resolve(cmd)
	if err != nil {
		return nil, err
	}
	fs, err := store.NewFSStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}
	return fs, nil
}
