package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/blog-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleRequest() model.Request {
	return model.Request{
		Title:      "Weekly Go",
		URLs:       []string{"https://go.dev/blog/a", "https://go.dev/blog/b"},
		Subreddits: []string{"golang"},
		Backend:    "openai",
	}
}

var _ Store = (*SQLiteStore)(nil)

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusIdle, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, sampleRequest(), got.Request)
	assert.Equal(t, model.RunStatusIdle, got.Status)
	assert.Empty(t, got.Warnings)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_RunLifecycle_Persisted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRequest())
	require.NoError(t, err)

	for _, status := range []model.RunStatus{
		model.RunStatusFetching, model.RunStatusAnnotating, model.RunStatusGenerating,
	} {
		require.NoError(t, st.UpdateRunStatus(ctx, run.ID, status))
		got, err := st.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status)
	}

	warnings := []model.Warning{{
		Stage: "fetch", Source: model.SourceWeb, Identifier: "https://go.dev/blog/b",
		Message: "404", Transient: false,
	}}
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunOutcome{
		FilePath: "blogs/blog_20260101_000000.md", ItemCount: 2, Warnings: warnings,
	}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPersisted, got.Status)
	assert.Equal(t, "blogs/blog_20260101_000000.md", got.FilePath)
	assert.Equal(t, 2, got.ItemCount)
	assert.Equal(t, warnings, got.Warnings)
	assert.Empty(t, got.Reason)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, sampleRequest())
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, model.RunFailure{
		Reason: model.FailureNoContent,
		Error:  "no content fetched",
	}))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, model.FailureNoContent, got.Reason)
	assert.Equal(t, "no content fetched", got.Error)
	assert.Nil(t, got.Warnings)
}

func TestSQLite_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = st.UpdateRunStatus(ctx, "missing", model.RunStatusFetching)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = st.CompleteRun(ctx, "missing", model.RunOutcome{})
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = st.FailRun(ctx, "missing", model.RunFailure{})
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ids []string
	for i, backend := range []string{"openai", "claude", "openai"} {
		req := sampleRequest()
		req.Backend = backend
		run, err := st.CreateRun(ctx, req)
		require.NoError(t, err)
		ids = append(ids, run.ID)
		if i == 0 {
			require.NoError(t, st.FailRun(ctx, run.ID, model.RunFailure{Reason: model.FailureGeneration}))
		}
		time.Sleep(5 * time.Millisecond)
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID, "newest first")

	failed, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[0], failed[0].ID)

	claude, err := st.ListRuns(ctx, RunFilter{Backend: "claude"})
	require.NoError(t, err)
	require.Len(t, claude, 1)
	assert.Equal(t, ids[1], claude[0].ID)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestRunFilter_Limit(t *testing.T) {
	assert.Equal(t, 100, RunFilter{}.limit())
	assert.Equal(t, 7, RunFilter{Limit: 7}.limit())
}
