package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internetarchive/olclient/pkg/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "cache.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db, nil)
}

func TestPutAndGet(t *testing.T) {
	repo := newTestRepository(t)

	doc := []byte(`{"key": "/works/OL1W", "title": "A Work"}`)
	require.NoError(t, repo.Put("OL1W", doc))

	got, err := repo.Get("OL1W", 0)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestPutOverwrites(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Put("OL1W", []byte(`{"title": "old"}`)))
	require.NoError(t, repo.Put("OL1W", []byte(`{"title": "new"}`)))

	got, err := repo.Get("OL1W", 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "new"}`, string(got))

	n, err := repo.Count("")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPutRejectsInvalidOLID(t *testing.T) {
	repo := newTestRepository(t)
	assert.Error(t, repo.Put("bogus", []byte(`{}`)))
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get("OL404W", 0)
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestGetRespectsMaxAge(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Put("OL1W", []byte(`{}`)))

	_, err := repo.Get("OL1W", time.Hour)
	assert.NoError(t, err)

	_, err = repo.Get("OL1W", time.Nanosecond)
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Put("OL1M", []byte(`{}`)))

	require.NoError(t, repo.Delete("OL1M"))
	_, err := repo.Get("OL1M", 0)
	assert.ErrorIs(t, err, ErrNotCached)

	// deleting again is a no-op
	require.NoError(t, repo.Delete("OL1M"))
}

func TestPurge(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Put("OL1W", []byte(`{}`)))
	require.NoError(t, repo.Put("OL2M", []byte(`{}`)))

	// nothing is older than an hour ago
	removed, err := repo.Purge(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)

	removed, err = repo.Purge(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	n, err := repo.Count("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCountByKind(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Put("OL1W", []byte(`{}`)))
	require.NoError(t, repo.Put("OL2W", []byte(`{}`)))
	require.NoError(t, repo.Put("OL1M", []byte(`{}`)))

	works, err := repo.Count(models.KindWork)
	require.NoError(t, err)
	assert.Equal(t, int64(2), works)

	editions, err := repo.Count(models.KindEdition)
	require.NoError(t, err)
	assert.Equal(t, int64(1), editions)

	authors, err := repo.Count(models.KindAuthor)
	require.NoError(t, err)
	assert.Equal(t, int64(0), authors)
}
