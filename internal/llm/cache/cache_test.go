package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "key-1", "response-body"))
	v, ok, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "response-body", v)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key-1", "v1"))
	require.NoError(t, s.Put(ctx, "key-1", "v2"))
	v, ok, err := s.Get(ctx, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestStore_RecordAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, RunRecord{
		ID: "run-1", ProjectName: "proj", State: "PLANNED", Attempt: 0, StartedAt: time.Now(),
	}))
	require.NoError(t, s.RecordRun(ctx, RunRecord{
		ID: "run-1", ProjectName: "proj", State: "CODED", Attempt: 1, StartedAt: time.Now(),
	}))

	runs, err := s.RecentRuns(ctx, "proj", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "CODED", runs[0].State)
	assert.Equal(t, 1, runs[0].Attempt)
}

func TestStore_RecordRunPersistsModelTokensDurationAndValidationSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, RunRecord{
		ID: "run-2", ProjectName: "proj", State: "VALIDATED", Attempt: 0, StartedAt: time.Now(),
		Model: "claude-sonnet-4-5-20250514", PromptTokens: 120, CompletionTokens: 340,
		DurationMs: 2500, ValidationSummary: "3/3 files valid, 0 violations",
	}))

	runs, err := s.RecentRuns(ctx, "proj", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "claude-sonnet-4-5-20250514", runs[0].Model)
	assert.Equal(t, 120, runs[0].PromptTokens)
	assert.Equal(t, 340, runs[0].CompletionTokens)
	assert.Equal(t, int64(2500), runs[0].DurationMs)
	assert.Equal(t, "3/3 files valid, 0 violations", runs[0].ValidationSummary)
}
