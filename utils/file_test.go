package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRasterImage(t *testing.T) {
	assert.True(t, IsRasterImage("photo.jpg"))
	assert.True(t, IsRasterImage("PHOTO.JPEG"))
	assert.True(t, IsRasterImage("scan.tiff"))
	assert.False(t, IsRasterImage("notes.txt"))
	assert.False(t, IsRasterImage("archive.zip"))
	assert.False(t, IsRasterImage("noext"))
}

func TestUniqueFilename(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, "img.jpg", UniqueFilename(dir, "img.jpg"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "img.jpg"), []byte("x"), 0644))
	assert.Equal(t, "img_1.jpg", UniqueFilename(dir, "img.jpg"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "img_1.jpg"), []byte("x"), 0644))
	assert.Equal(t, "img_2.jpg", UniqueFilename(dir, "img.jpg"))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	require.NoError(t, WriteFileAtomic(path, []byte("v1")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, WriteFileAtomic(path, []byte("v2")))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	dst := filepath.Join(dir, "sub", "dst.bin")
	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = CopyFile(filepath.Join(dir, "missing.bin"), filepath.Join(dir, "out.bin"))
	assert.Error(t, err)
}

func TestLockPathSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc")

	counter := 0
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			unlock := LockPath(path)
			counter++
			unlock()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, 10, counter)
}
