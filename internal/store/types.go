package store

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// RunConfig records the inputs of a solve.
type RunConfig struct {
	Strategy      string  `json:"strategy"`
	X0            float64 `json:"x0"`
	NumericStep   float64 `json:"numericStep,omitempty"`
	MaxIterations int     `json:"maxIterations"`
}

// Run is a persisted solve: its configuration and outcome.
type Run struct {
	ID string `json:"id"`

	Config RunConfig `json:"config"`

	FinalX      float64 `json:"finalX"`
	InitialCost float64 `json:"initialCost"`
	FinalCost   float64 `json:"finalCost"`
	Iterations  int     `json:"iterations"`
	Termination string  `json:"termination"`
	Message     string  `json:"message,omitempty"`

	// Elapsed is the wall time measured by the caller.
	Elapsed time.Duration `json:"elapsed"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is the metadata shown when listing runs.
type RunInfo struct {
	ID          string    `json:"id"`
	Strategy    string    `json:"strategy"`
	X0          float64   `json:"x0"`
	FinalX      float64   `json:"finalX"`
	FinalCost   float64   `json:"finalCost"`
	Iterations  int       `json:"iterations"`
	Termination string    `json:"termination"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewRun creates a run record stamped with the current time and a new ID.
func NewRun(config RunConfig) *Run {
	return &Run{
		ID:        NewRunID(),
		Config:    config,
		Timestamp: time.Now(),
	}
}

// ToInfo converts a Run to its listing metadata.
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:          r.ID,
		Strategy:    r.Config.Strategy,
		X0:          r.Config.X0,
		FinalX:      r.FinalX,
		FinalCost:   r.FinalCost,
		Iterations:  r.Iterations,
		Termination: r.Termination,
		Timestamp:   r.Timestamp,
	}
}

// Validate checks that a run is complete enough to persist.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return &ValidationError{Field: "ID", Reason: "must be a UUID"}
	}
	if r.Config.Strategy == "" {
		return &ValidationError{Field: "Config.Strategy", Reason: "cannot be empty"}
	}
	if !finite(r.Config.X0) {
		return &ValidationError{Field: "Config.X0", Reason: "must be finite"}
	}
	if r.Config.MaxIterations < 0 {
		return &ValidationError{Field: "Config.MaxIterations", Reason: "cannot be negative"}
	}
	if r.Iterations < 0 {
		return &ValidationError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if !finite(r.FinalX) {
		return &ValidationError{Field: "FinalX", Reason: "must be finite"}
	}
	if r.InitialCost < 0 || !finite(r.InitialCost) {
		return &ValidationError{Field: "InitialCost", Reason: "must be finite and non-negative"}
	}
	if r.FinalCost < 0 || !finite(r.FinalCost) {
		return &ValidationError{Field: "FinalCost", Reason: "must be finite and non-negative"}
	}
	if r.Termination == "" {
		return &ValidationError{Field: "Termination", Reason: "cannot be empty"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
