package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/tinylsq/internal/lsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSolverDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "all", cfg.Strategy)
	assert.Equal(t, 0.2, cfg.X0)

	opts, err := cfg.SolverOptions()
	require.NoError(t, err)
	want := lsq.DefaultOptions()
	assert.Equal(t, want.MaxIterations, opts.MaxIterations)
	assert.Equal(t, want.InitialDamping, opts.InitialDamping)
	assert.Equal(t, want.FunctionTolerance, opts.FunctionTolerance)
	assert.Equal(t, want.GradientTolerance, opts.GradientTolerance)
	assert.Equal(t, want.ParameterTolerance, opts.ParameterTolerance)
	assert.Equal(t, want.MaxDampingIncreases, opts.MaxDampingIncreases)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yml := "strategy: numeric\nx0: 5000000\nsolver:\n  max_iterations: 20\n  progress: true\nbaseline:\n  seed: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "numeric", cfg.Strategy)
	assert.Equal(t, 5e6, cfg.X0)
	assert.Equal(t, 20, cfg.Solver.MaxIterations)
	assert.True(t, cfg.Solver.Progress)
	assert.Equal(t, int64(7), cfg.Baseline.Seed)

	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultDataDir, cfg.DataDir)
	assert.Equal(t, lsq.DefaultOptions().GradientTolerance, cfg.Solver.GradientTolerance)
	assert.Equal(t, DefaultBaselinePopulation, cfg.Baseline.Population)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := DefaultConfig()
	cfg.X0 = -42
	cfg.NumericStep = 1e-4
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSolverOptionsValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.DampingFactor = 0.5
	_, err := cfg.SolverOptions()
	var ve *lsq.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "DampingFactor", ve.Field)
}
