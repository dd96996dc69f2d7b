package export

import (
	"archive/zip"
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/models"
	"github.com/tkoenig/genealogybackend/utils"
)

func newTestArea(t *testing.T) *media.Area {
	t.Helper()
	root := t.TempDir()
	return media.NewArea(filepath.Join(root, "people"), utils.NewImportLog(filepath.Join(root, "import-log.txt")))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func importTestPhoto(t *testing.T, a *media.Area, owner int64, filename string) models.Photo {
	t.Helper()
	record, err := a.ImportPhotoFromBytes(owner, filename, pngBytes(t), media.PhotoMeta{Title: filename})
	require.NoError(t, err)
	return record
}

func zipEntryNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCreatePhotoZip(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	p1 := importTestPhoto(t, a, 1, "one.png")
	p2 := importTestPhoto(t, a, 2, "two.png")

	path, size, err := CreatePhotoZip(a, []models.Photo{p1, p2}, dest)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".zip"))
	assert.Greater(t, size, int64(0))

	assert.ElementsMatch(t, []string{"one.png", "two.png"}, zipEntryNames(t, path))

	// no leftover partial file
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCreatePhotoZipSkipsMissingFiles(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	p1 := importTestPhoto(t, a, 1, "keep.png")
	missing := models.Photo{ID: 999, Owner: 1, Filename: "gone.png"}

	path, _, err := CreatePhotoZip(a, []models.Photo{missing, p1}, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.png"}, zipEntryNames(t, path))
}

func TestCreatePhotoZipSuffixesDuplicateEntryNames(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	// same filename under two different owners
	p1 := importTestPhoto(t, a, 1, "img.png")
	p2 := importTestPhoto(t, a, 2, "img.png")

	path, _, err := CreatePhotoZip(a, []models.Photo{p1, p2}, dest)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"img.png", "img_1.png"}, zipEntryNames(t, path))
}

func TestCreatePhotoZipNoFilesIsError(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	missing := models.Photo{ID: 1, Owner: 1, Filename: "gone.png"}
	_, _, err := CreatePhotoZip(a, []models.Photo{missing}, dest)
	require.Error(t, err)

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed export must not leave files behind")
}

func TestCreatePhotoPDF(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	p1 := importTestPhoto(t, a, 1, "one.png")
	p1.Description = "Family gathering"
	p1.DatePhoto = "1972"

	path, err := CreatePhotoPDF(a, []models.Photo{p1}, dest)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCreatePhotoPDFSkipsUnembeddableFormats(t *testing.T) {
	a := newTestArea(t)
	dest := t.TempDir()

	// bmp imports fine but cannot be embedded in the document
	bmp, err := a.ImportPhotoFromBytes(1, "scan.bmp", []byte("x"), media.PhotoMeta{})
	require.NoError(t, err)

	_, err = CreatePhotoPDF(a, []models.Photo{bmp}, dest)
	assert.Error(t, err)
}

func TestDestinationNameIsUnique(t *testing.T) {
	a := destinationName("photos", ".zip")
	b := destinationName("photos", ".zip")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "photos_"))
}
