package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

const (
	runsDir       = "runs"
	runFileName   = "run.json"
	traceFileName = "trace.jsonl"
)

// FSStore keeps runs under <baseDir>/runs/<id>/: the record in run.json and
// the iteration trace in trace.jsonl.
//
// Writes go through a temp file and rename, so concurrent callers never see
// a partial record.
type FSStore struct {
	baseDir string
}

// NewFSStore creates a filesystem store, creating baseDir if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// RunDir returns the directory holding everything stored for a run.
func (fs *FSStore) RunDir(id string) string {
	return runDir(fs.baseDir, id)
}

func runDir(baseDir, id string) string {
	return filepath.Join(baseDir, runsDir, id)
}

func (fs *FSStore) runPath(id string) string {
	return filepath.Join(fs.RunDir(id), runFileName)
}

// SaveRun validates and atomically writes a run record.
func (fs *FSStore) SaveRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}

	dir := fs.RunDir(run.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	finalPath := fs.runPath(run.ID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp run file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename run file: %w", err)
	}

	slog.Debug("Run saved", "run_id", run.ID, "path", finalPath)
	return nil
}

// LoadRun reads a run record.
func (fs *FSStore) LoadRun(id string) (*Run, error) {
	if id == "" {
		return nil, fmt.Errorf("run id cannot be empty")
	}

	path := fs.runPath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to deserialize run %s: %w", id, err)
	}

	slog.Debug("Run loaded", "run_id", id, "path", path)
	return &run, nil
}

// ListRuns returns metadata for all readable runs, newest first. Corrupt
// records are logged and skipped.
func (fs *FSStore) ListRuns() ([]RunInfo, error) {
	entries, err := os.ReadDir(filepath.Join(fs.baseDir, runsDir))
	if os.IsNotExist(err) {
		return []RunInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	infos := []RunInfo{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		if _, err := os.Stat(fs.runPath(id)); os.IsNotExist(err) {
			continue
		}
		run, err := fs.LoadRun(id)
		if err != nil {
			slog.Warn("Failed to load run for listing", "run_id", id, "error", err)
			continue
		}
		infos = append(infos, run.ToInfo())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})

	slog.Debug("Listed runs", "count", len(infos))
	return infos, nil
}

// DeleteRun removes a run directory and everything in it.
func (fs *FSStore) DeleteRun(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	dir := fs.RunDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &NotFoundError{RunID: id}
	} else if err != nil {
		return fmt.Errorf("failed to stat run directory: %w", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove run directory: %w", err)
	}

	slog.Debug("Run deleted", "run_id", id, "path", dir)
	return nil
}
