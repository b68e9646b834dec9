package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "resources.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_PutAndActivationStatus(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepository(t)

	require.NoError(t, repo.Put(ctx, Record{
		Path:             "moduleA/templates/page.ftl",
		Content:          []byte("<html></html>"),
		ActivationStatus: StatusActivated,
	}))

	status, err := repo.ActivationStatus(ctx, "/moduleA/templates/page.ftl")
	require.NoError(t, err)
	assert.Equal(t, StatusActivated, status)
}

func TestRepository_MissingRecord(t *testing.T) {
	repo := openTestRepository(t)

	_, err := repo.ActivationStatus(context.Background(), "/nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRepository_RecordsOrderedByPath(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepository(t)

	for _, p := range []string{"/b/x.js", "/a/y.css", "/a/b.css"} {
		require.NoError(t, repo.Put(ctx, Record{Path: p, ActivationStatus: StatusModified}))
	}

	var paths []string
	err := repo.Records(ctx, func(rec Record) error {
		paths = append(paths, rec.Path)
		assert.Equal(t, StatusModified, rec.ActivationStatus)
		assert.False(t, rec.ModifiedAt.IsZero())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b.css", "/a/y.css", "/b/x.js"}, paths)
}

func TestRepository_ClosedDatabaseFails(t *testing.T) {
	repo := openTestRepository(t)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	_, err := repo.ActivationStatus(context.Background(), "/a.css")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "activated", StatusLabel(StatusActivated))
	assert.Equal(t, "modified", StatusLabel(StatusModified))
	assert.Equal(t, "not activated", StatusLabel(StatusNotActivated))
	assert.Equal(t, "status 7", StatusLabel(7))
}
