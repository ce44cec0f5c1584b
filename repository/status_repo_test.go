package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/pdf-chat-be/types"
)

func testStatusRepo(t *testing.T, repo StatusRepo) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Get(ctx, "missing.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, repo.Put(ctx, &types.StatusRecord{
		FileID:    "a.pdf",
		Status:    types.STATUS_PENDING,
		StartTime: start,
	}))
	require.NoError(t, repo.Put(ctx, &types.StatusRecord{
		FileID:       "a.pdf",
		Status:       types.STATUS_ERROR,
		Progress:     40,
		ErrorMessage: "boom",
		StartTime:    start,
	}))
	require.NoError(t, repo.Put(ctx, &types.StatusRecord{
		FileID:    "b.pdf",
		Status:    types.STATUS_COMPLETE,
		Progress:  100,
		StartTime: start.Add(time.Minute),
	}))

	got, err := repo.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_ERROR, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.True(t, got.StartTime.Equal(start))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.pdf", all[0].FileID)
	assert.Equal(t, "b.pdf", all[1].FileID)

	require.NoError(t, repo.Delete(ctx, "a.pdf", "unknown.pdf"))
	_, err = repo.Get(ctx, "a.pdf")
	assert.ErrorIs(t, err, types.ErrNotFound)

	all, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Close(ctx))
}

func TestMemoryStatusRepo(t *testing.T) {
	testStatusRepo(t, NewMemoryStatusRepo())
}

func TestSQLiteStatusRepoInMemory(t *testing.T) {
	repo, err := NewSQLiteStatusRepo(":memory:")
	require.NoError(t, err)
	testStatusRepo(t, repo)
}

func TestSQLiteStatusRepoFile(t *testing.T) {
	repo, err := NewSQLiteStatusRepo(filepath.Join(t.TempDir(), "nested", "status.db"))
	require.NoError(t, err)
	testStatusRepo(t, repo)
}

func TestMemoryStatusRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStatusRepo()
	require.NoError(t, repo.Put(ctx, &types.StatusRecord{FileID: "a.pdf", Status: types.STATUS_PENDING}))

	got, err := repo.Get(ctx, "a.pdf")
	require.NoError(t, err)
	got.Status = types.STATUS_COMPLETE

	again, err := repo.Get(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, types.STATUS_PENDING, again.Status)
}
