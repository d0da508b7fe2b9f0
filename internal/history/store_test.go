package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(runID, ts string, delta float64) *Run {
	return &Run{
		RunID:       runID,
		Timestamp:   ts,
		Binary:      "/usr/local/bin/rpg-encoder",
		Suite:       "benchmarks/queries.json",
		Repos:       2,
		Queries:     12,
		UnliftedAt1: 5,
		UnliftedMRR: 0.4583,
		LiftedAt1:   7,
		LiftedMRR:   0.4583 + delta,
		Delta:       delta,
		ReportPath:  "benchmarks/results.json",
	}
}

func TestNewStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:   "creates database file",
			dbPath: filepath.Join(t.TempDir(), "history.db"),
		},
		{
			name:   "handles in-memory database",
			dbPath: ":memory:",
		},
		{
			name:   "creates parent directories",
			dbPath: filepath.Join(t.TempDir(), "nested", "dir", "history.db"),
		},
		{
			name:    "rejects path under a regular file",
			dbPath:  filepath.Join(blocker, "history.db"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.Equal(t, tt.dbPath, store.Path())
		})
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := sampleRun("run-1", "2026-08-24T09:00:00", -0.02)
	lo, hi := -0.05, 0.01
	first.CILower = &lo
	first.CIUpper = &hi
	require.NoError(t, store.RecordRun(ctx, first))
	assert.NotZero(t, first.ID)

	require.NoError(t, store.RecordRun(ctx, sampleRun("run-2", "2026-08-24T12:00:00", 0.08)))
	require.NoError(t, store.RecordRun(ctx, sampleRun("run-3", "2026-08-25T09:00:00", 0.11)))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "run-1", runs[2].RunID)

	got := runs[2]
	assert.Equal(t, "/usr/local/bin/rpg-encoder", got.Binary)
	assert.Equal(t, "benchmarks/queries.json", got.Suite)
	assert.Equal(t, 2, got.Repos)
	assert.Equal(t, 12, got.Queries)
	assert.Equal(t, 5, got.UnliftedAt1)
	assert.Equal(t, 7, got.LiftedAt1)
	assert.InDelta(t, 0.4583, got.UnliftedMRR, 1e-9)
	assert.Equal(t, "benchmarks/results.json", got.ReportPath)
	require.NotNil(t, got.CILower)
	assert.InDelta(t, -0.05, *got.CILower, 1e-9)
	require.NotNil(t, got.CIUpper)
	assert.InDelta(t, 0.01, *got.CIUpper, 1e-9)

	assert.Nil(t, runs[0].CILower)
	assert.Nil(t, runs[0].CIUpper)

	limited, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-3", limited[0].RunID)
	assert.Equal(t, "run-2", limited[1].RunID)
}

func TestRecordRunDuplicateRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, sampleRun("run-1", "2026-08-24T09:00:00", 0.05)))
	err := store.RecordRun(ctx, sampleRun("run-1", "2026-08-25T09:00:00", 0.02))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.Empty(t, empty.First)
	assert.Empty(t, empty.Last)
	assert.Zero(t, empty.MeanDelta)
	assert.Equal(t, 0, empty.Improvements)

	require.NoError(t, store.RecordRun(ctx, sampleRun("run-1", "2026-08-24T09:00:00", -0.02)))
	require.NoError(t, store.RecordRun(ctx, sampleRun("run-2", "2026-08-24T12:00:00", 0.08)))
	require.NoError(t, store.RecordRun(ctx, sampleRun("run-3", "2026-08-25T09:00:00", 0.12)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, "2026-08-24T09:00:00", stats.First)
	assert.Equal(t, "2026-08-25T09:00:00", stats.Last)
	assert.InDelta(t, 0.06, stats.MeanDelta, 1e-9)
	assert.InDelta(t, 0.12, stats.BestDelta, 1e-9)
	assert.InDelta(t, -0.02, stats.WorstDelta, 1e-9)
	assert.Equal(t, 2, stats.Improvements)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordRun(ctx, sampleRun("run-1", "2026-08-24T09:00:00", 0.05)))
	require.NoError(t, store.RecordRun(ctx, sampleRun("run-2", "2026-08-25T09:00:00", 0.02)))

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopenKeepsRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.RecordRun(ctx, sampleRun("run-1", "2026-08-25T09:00:00", 0.05)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
}
