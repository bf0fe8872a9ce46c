// Package store persists solve runs and their per-iteration traces on the
// filesystem.
package store

// Store is the persistence interface for solve runs. Implementations must be
// safe for concurrent use.
//
// Load and Delete return ErrNotFound for unknown IDs; other failures are
// wrapped with context.
type Store interface {
	// SaveRun writes a run, replacing any earlier record with the same ID.
	SaveRun(run *Run) error

	// LoadRun reads the run with the given ID.
	LoadRun(id string) (*Run, error)

	// ListRuns returns metadata for every readable run.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes a run together with its trace.
	DeleteRun(id string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError reports a missing run.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
