package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/tinylsq/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(infos []store.RunInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.ID
	}
	return out
}

func sampleInfos(now time.Time) []store.RunInfo {
	return []store.RunInfo{
		{ID: "run1", Timestamp: now.AddDate(0, 0, -10)},
		{ID: "run2", Timestamp: now.AddDate(0, 0, -5)},
		{ID: "run3", Timestamp: now.AddDate(0, 0, -1)},
		{ID: "run4", Timestamp: now.AddDate(0, 0, -30)},
	}
}

func TestSelectRunsForDeletionByAge(t *testing.T) {
	now := time.Now()
	toDelete := selectRunsForDeletion(sampleInfos(now), 0, 7, now)
	assert.ElementsMatch(t, []string{"run1", "run4"}, ids(toDelete))
}

func TestSelectRunsForDeletionByCount(t *testing.T) {
	now := time.Now()
	toDelete := selectRunsForDeletion(sampleInfos(now), 2, 0, now)
	assert.ElementsMatch(t, []string{"run1", "run4"}, ids(toDelete))
}

func TestSelectRunsForDeletionCombinedHasNoDuplicates(t *testing.T) {
	now := time.Now()
	toDelete := selectRunsForDeletion(sampleInfos(now), 1, 7, now)
	assert.ElementsMatch(t, []string{"run1", "run2", "run4"}, ids(toDelete))
}

func TestSelectRunsForDeletionNothingToDo(t *testing.T) {
	now := time.Now()
	assert.Empty(t, selectRunsForDeletion(sampleInfos(now), 10, 0, now))
	assert.Empty(t, selectRunsForDeletion(sampleInfos(now), 0, 100, now))
	assert.Empty(t, selectRunsForDeletion(nil, 1, 1, now))
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:                  "0 B",
		1023:               "1023 B",
		1024:               "1.0 KB",
		1536:               "1.5 KB",
		1024 * 1024:        "1.0 MB",
		5 * 1024 * 1024:    "5.0 MB",
		1024 * 1024 * 1024: "1.0 GB",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatBytes(in), "%d bytes", in)
	}
}

func TestGetDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), make([]byte, 100), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b"), make([]byte, 50), 0644))

	size, err := getDirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(150), size)

	_, err = getDirSize(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("12345678-aaaa"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestListAndShowRuns(t *testing.T) {
	fs, err := store.NewFSStore(t.TempDir())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, listRuns(&buf, fs))
	assert.Contains(t, buf.String(), "No runs found.")

	cfg := testConfig(t)
	cfg.Strategy = "analytic"
	run, err := solveScenario(&bytes.Buffer{}, cfg, "analytic", fs, false)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, listRuns(&buf, fs))
	out := buf.String()
	assert.Contains(t, out, shortID(run.ID))
	assert.Contains(t, out, "analytic")
	assert.Contains(t, out, "CONVERGED")
	assert.Contains(t, out, "Total runs: 1")

	buf.Reset()
	require.NoError(t, showRun(&buf, fs, run.ID))
	out = buf.String()
	assert.Contains(t, out, run.ID)
	assert.Contains(t, out, "0.2 -> ")
	assert.Regexp(t, `Trace:\s+\d+ entries`, out)

	assert.ErrorIs(t, showRun(&buf, fs, "missing"), store.ErrNotFound)
}
