package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/tinylsq/internal/lsq"
)

// TraceEntry is one solver iteration, stored as a JSON line.
type TraceEntry struct {
	Iteration    int       `json:"iteration"`
	Cost         float64   `json:"cost"`
	GradientNorm float64   `json:"gradientNorm"`
	StepNorm     float64   `json:"stepNorm"`
	Damping      float64   `json:"damping"`
	Accepted     bool      `json:"accepted"`
	Timestamp    time.Time `json:"timestamp"`
}

// TraceWriter appends entries to a run's trace.jsonl through a buffer. It is
// safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

// NewTraceWriter opens <baseDir>/runs/<runID>/trace.jsonl, truncating it
// unless appendMode is set.
func NewTraceWriter(baseDir, runID string, appendMode bool) (*TraceWriter, error) {
	dir := runDir(baseDir, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	path := filepath.Join(dir, traceFileName)
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	return &TraceWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// Write buffers one entry. It reaches the file on Flush or Close.
func (tw *TraceWriter) Write(entry TraceEntry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal trace entry: %w", err)
	}
	if _, err := tw.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write trace entry: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (tw *TraceWriter) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush trace writer: %w", err)
	}
	if err := tw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync trace file: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		tw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := tw.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// Path returns the trace file location.
func (tw *TraceWriter) Path() string {
	return tw.path
}

// TraceReader reads entries back from a run's trace.jsonl.
type TraceReader struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewTraceReader opens the trace of a run. A missing trace is ErrNotFound.
func NewTraceReader(baseDir, runID string) (*TraceReader, error) {
	file, err := os.Open(filepath.Join(runDir(baseDir, runID), traceFileName))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &TraceReader{file: file, scanner: scanner}, nil
}

// Read returns the next entry, or io.EOF after the last one.
func (tr *TraceReader) Read() (*TraceEntry, error) {
	if !tr.scanner.Scan() {
		if err := tr.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan trace line: %w", err)
		}
		return nil, io.EOF
	}

	var entry TraceEntry
	if err := json.Unmarshal(tr.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace entry: %w", err)
	}
	return &entry, nil
}

// ReadAll reads every remaining entry.
func (tr *TraceReader) ReadAll() ([]TraceEntry, error) {
	var entries []TraceEntry
	for {
		entry, err := tr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
}

// Close closes the underlying file.
func (tr *TraceReader) Close() error {
	if err := tr.file.Close(); err != nil {
		return fmt.Errorf("failed to close trace file: %w", err)
	}
	return nil
}

// LoadTrace reads the whole trace of a run.
func LoadTrace(baseDir, runID string) ([]TraceEntry, error) {
	reader, err := NewTraceReader(baseDir, runID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.ReadAll()
}

// Callback returns a solver callback that records every iteration. Write
// failures are logged once and never stop the solve.
func (tw *TraceWriter) Callback() lsq.IterationCallback {
	var warned bool
	return func(it lsq.IterationSummary) lsq.CallbackResult {
		err := tw.Write(TraceEntry{
			Iteration:    it.Iteration,
			Cost:         it.Cost,
			GradientNorm: it.GradientMaxNorm,
			StepNorm:     it.StepNorm,
			Damping:      it.Damping,
			Accepted:     it.StepAccepted,
			Timestamp:    time.Now(),
		})
		if err != nil && !warned {
			warned = true
			slog.Warn("Failed to record trace entry", "path", tw.path, "error", err)
		}
		return lsq.CallbackContinue
	}
}
