package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, *Area) {
	t.Helper()
	a := newTestArea(t)
	return NewIndex(a), a
}

func TestIndexAllGlobal(t *testing.T) {
	ix, a := newTestIndex(t)

	_, err := a.ImportPhotoFromBytes(1, "b.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)
	_, err = a.ImportPhotoFromBytes(2, "a.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)
	_, err = a.ImportPhotoFromBytes(1, "img10.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)
	_, err = a.ImportPhotoFromBytes(2, "img2.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	all := ix.AllGlobal()
	require.Len(t, all, 4)

	// natural filename order, numeric segments compared as numbers
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Filename
	}
	assert.Equal(t, []string{"a.jpg", "b.jpg", "img2.jpg", "img10.jpg"}, names)
}

func TestIndexAllForPersonOwnedOrTagged(t *testing.T) {
	ix, a := newTestIndex(t)

	owned, err := a.ImportPhotoFromBytes(1, "own.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)
	tagged, err := a.ImportPhotoFromBytes(2, "tagged.jpg", []byte("x"), PhotoMeta{People: []int64{1}})
	require.NoError(t, err)
	_, err = a.ImportPhotoFromBytes(3, "other.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	got := ix.AllForPerson(1)
	require.Len(t, got, 2)
	ids := []int64{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []int64{owned.ID, tagged.ID}, ids)
}

func TestIndexCacheInvalidation(t *testing.T) {
	ix, a := newTestIndex(t)

	_, err := a.ImportPhotoFromBytes(1, "one.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)
	require.Len(t, ix.AllGlobal(), 1)

	_, err = a.ImportPhotoFromBytes(1, "two.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	// the cached scan is stale until invalidated
	assert.Len(t, ix.AllGlobal(), 1)
	ix.Invalidate()
	assert.Len(t, ix.AllGlobal(), 2)
}

func TestIndexFindPhotoPath(t *testing.T) {
	ix, a := newTestIndex(t)

	record, err := a.ImportPhotoFromBytes(4, "img.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	path, err := ix.FindPhotoPath(record.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a.PhotosDir(4), "img.jpg"), path)

	_, err = ix.FindPhotoPath(12345)
	assert.ErrorIs(t, err, ErrNotFound)

	// a record whose backing file is gone also reports not found
	require.NoError(t, os.Remove(path))
	_, err = ix.FindPhotoPath(record.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIndexResolveManySkipsUnknown(t *testing.T) {
	ix, a := newTestIndex(t)

	record, err := a.ImportPhotoFromBytes(1, "img.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	got := ix.ResolveMany([]int64{record.ID, 777})
	require.Len(t, got, 1)
	assert.Equal(t, record.ID, got[0].ID)
}

func TestIndexIgnoresNonNumericDirs(t *testing.T) {
	ix, a := newTestIndex(t)
	require.NoError(t, os.MkdirAll(filepath.Join(a.peopleRoot, "not-a-person"), 0755))

	_, err := a.ImportPhotoFromBytes(1, "img.jpg", []byte("x"), PhotoMeta{})
	require.NoError(t, err)

	assert.Len(t, ix.AllGlobal(), 1)
}
