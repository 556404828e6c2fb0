package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/knoguchi/editorialbot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *EditorialRepo {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "editorials.db"))
	if err != nil {
		t.Skip("sqlite not available:", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestEditorialRepo_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	rows := []*repository.Editorial{
		{Position: 1, Title: "Second", FullText: "b", URL: "http://x/2"},
		{Position: 0, Title: "First", FullText: "a", URL: "http://x/1"},
	}
	require.NoError(t, repo.Upsert(ctx, rows))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "First", all[0].Title)
	assert.Equal(t, "Second", all[1].Title)
	assert.Equal(t, repository.EditorialID("http://x/1"), all[0].ID)

	// Re-importing the same URL updates in place.
	require.NoError(t, repo.Upsert(ctx, []*repository.Editorial{
		{Position: 0, Title: "First (revised)", FullText: "a2", URL: "http://x/1"},
	}))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := repo.GetByID(ctx, repository.EditorialID("http://x/1"))
	require.NoError(t, err)
	assert.Equal(t, "First (revised)", got.Title)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestEditorialRepo_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, err := repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	require.NoError(t, repo.Upsert(ctx, []*repository.Editorial{{Title: "x", URL: "http://x/9"}}))
	require.NoError(t, repo.DeleteAll(ctx))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
