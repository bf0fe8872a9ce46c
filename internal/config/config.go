// Package config loads tinylsq run configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/cwbudde/tinylsq/internal/lsq"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStrategy = "all"
	DefaultX0       = 0.2
	DefaultDataDir  = "./data"

	DefaultBaselineIterations = 100
	DefaultBaselinePopulation = 20
	DefaultBaselineSeed       = 42
)

type Config struct {
	Strategy    string         `yaml:"strategy"`
	X0          float64        `yaml:"x0"`
	NumericStep float64        `yaml:"numeric_step"`
	DataDir     string         `yaml:"data_dir"`
	Solver      SolverConfig   `yaml:"solver"`
	Baseline    BaselineConfig `yaml:"baseline"`
}

type SolverConfig struct {
	MaxIterations       int     `yaml:"max_iterations"`
	InitialDamping      float64 `yaml:"initial_damping"`
	DampingFactor       float64 `yaml:"damping_factor"`
	MinDamping          float64 `yaml:"min_damping"`
	MaxDamping          float64 `yaml:"max_damping"`
	MaxDampingIncreases int     `yaml:"max_damping_increases"`
	MinRelativeDecrease float64 `yaml:"min_relative_decrease"`
	FunctionTolerance   float64 `yaml:"function_tolerance"`
	GradientTolerance   float64 `yaml:"gradient_tolerance"`
	ParameterTolerance  float64 `yaml:"parameter_tolerance"`
	Progress            bool    `yaml:"progress"`
}

type BaselineConfig struct {
	Iterations int   `yaml:"iterations"`
	Population int   `yaml:"population"`
	Seed       int64 `yaml:"seed"`
}

func DefaultConfig() *Config {
	o := lsq.DefaultOptions()
	return &Config{
		Strategy: DefaultStrategy,
		X0:       DefaultX0,
		DataDir:  DefaultDataDir,
		Solver: SolverConfig{
			MaxIterations:       o.MaxIterations,
			InitialDamping:      o.InitialDamping,
			DampingFactor:       o.DampingFactor,
			MinDamping:          o.MinDamping,
			MaxDamping:          o.MaxDamping,
			MaxDampingIncreases: o.MaxDampingIncreases,
			MinRelativeDecrease: o.MinRelativeDecrease,
			FunctionTolerance:   o.FunctionTolerance,
			GradientTolerance:   o.GradientTolerance,
			ParameterTolerance:  o.ParameterTolerance,
			Progress:            o.LogProgress,
		},
		Baseline: BaselineConfig{
			Iterations: DefaultBaselineIterations,
			Population: DefaultBaselinePopulation,
			Seed:       DefaultBaselineSeed,
		},
	}
}

// Load reads a YAML file over DefaultConfig, so omitted keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SolverOptions converts the solver section to lsq.Options and validates it.
func (c *Config) SolverOptions() (lsq.Options, error) {
	s := c.Solver
	opts := lsq.Options{
		MaxIterations:       s.MaxIterations,
		InitialDamping:      s.InitialDamping,
		DampingFactor:       s.DampingFactor,
		MinDamping:          s.MinDamping,
		MaxDamping:          s.MaxDamping,
		MaxDampingIncreases: s.MaxDampingIncreases,
		MinRelativeDecrease: s.MinRelativeDecrease,
		FunctionTolerance:   s.FunctionTolerance,
		GradientTolerance:   s.GradientTolerance,
		ParameterTolerance:  s.ParameterTolerance,
		LogProgress:         s.Progress,
	}
	if err := opts.Validate(); err != nil {
		return lsq.Options{}, err
	}
	return opts, nil
}
