package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/tkoenig/genealogybackend/models"
	"github.com/tkoenig/genealogybackend/utils"
)

const (
	AvatarBaseName     = "avatar"
	AvatarFileName     = "avatar.jpg"
	BiographyFileName  = "bio.md"
	PhotosMetaFileName = "photos.json"
	PhotosSubDir       = "photos"
	ThumbsSubDir       = ".thumbs"

	avatarJpegQuality = 85
)

// ErrNotFound is returned when a requested file or photo record is absent,
// as opposed to an OS-level failure touching it.
var ErrNotFound = errors.New("media: not found")

// Area manages the per-person on-disk media areas: one directory per person
// id holding an avatar, a biography document, and a photo collection with
// its metadata document. Areas are created lazily on first write.
type Area struct {
	peopleRoot string
	importLog  *utils.ImportLog
}

func NewArea(peopleRoot string, importLog *utils.ImportLog) *Area {
	return &Area{peopleRoot: peopleRoot, importLog: importLog}
}

// Dir returns the person's area directory; it may not exist yet.
func (a *Area) Dir(id int64) string {
	return filepath.Join(a.peopleRoot, strconv.FormatInt(id, 10))
}

// PhotosDir returns the person's photo subdirectory; it may not exist yet.
func (a *Area) PhotosDir(id int64) string {
	return filepath.Join(a.Dir(id), PhotosSubDir)
}

func (a *Area) ensureDir(id int64) (string, error) {
	dir := a.Dir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media area for person %d: %w", id, err)
	}
	return dir, nil
}

// Remove recursively deletes the person's entire media area.
func (a *Area) Remove(id int64) error {
	if err := os.RemoveAll(a.Dir(id)); err != nil {
		return fmt.Errorf("failed to remove media area for person %d: %w", id, err)
	}
	return nil
}

// AvatarPath resolves the person's avatar: the first file in the area whose
// name starts with the avatar convention. Returns ErrNotFound when the area
// or the file is absent.
func (a *Area) AvatarPath(id int64) (string, error) {
	dir := a.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read media area for person %d: %w", id, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isAvatarName(entry.Name()) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", ErrNotFound
}

func isAvatarName(name string) bool {
	return strings.HasPrefix(name, AvatarBaseName+".") && utils.IsRasterImage(name)
}

// SaveAvatar decodes the uploaded image data and writes it to the canonical
// avatar filename, unconditionally replacing any previous avatar.
func (a *Area) SaveAvatar(id int64, data io.Reader) (string, error) {
	dir, err := a.ensureDir(id)
	if err != nil {
		return "", err
	}

	img, format, err := image.Decode(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode avatar image for person %d: %w", id, err)
	}
	log.Printf("media: decoded avatar for person %d (format: %s)", id, format)

	// drop older avatars saved under other extensions
	if old, err := a.AvatarPath(id); err == nil && filepath.Base(old) != AvatarFileName {
		if rmErr := os.Remove(old); rmErr != nil {
			log.Printf("media: failed to remove stale avatar %s: %v", old, rmErr)
		}
	}

	savePath := filepath.Join(dir, AvatarFileName)
	if err := imaging.Save(img, savePath, imaging.JPEGQuality(avatarJpegQuality)); err != nil {
		return "", fmt.Errorf("failed to save avatar for person %d: %w", id, err)
	}
	return savePath, nil
}

// DeleteAvatar removes the person's avatar file. A missing avatar reports
// ErrNotFound, distinct from an I/O failure removing an existing one.
func (a *Area) DeleteAvatar(id int64) error {
	path, err := a.AvatarPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete avatar for person %d: %w", id, err)
	}
	return nil
}

// Biography reads the person's biography document as UTF-8 text. An absent
// or unreadable document reads as the empty string, never an error.
func (a *Area) Biography(id int64) string {
	data, err := os.ReadFile(filepath.Join(a.Dir(id), BiographyFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("media: failed to read biography for person %d: %v", id, err)
		}
		return ""
	}
	return string(data)
}

// SaveBiography writes the biography document and then runs the orphan
// cleanup pass over the person's area, deleting every file the saved text
// no longer references (protected names excepted).
func (a *Area) SaveBiography(id int64, text string) error {
	if _, err := a.ensureDir(id); err != nil {
		return err
	}
	path := filepath.Join(a.Dir(id), BiographyFileName)
	if err := utils.WriteFileAtomic(path, []byte(text)); err != nil {
		return fmt.Errorf("failed to save biography for person %d: %w", id, err)
	}

	removed, err := a.CleanupOrphans(id, text)
	if err != nil {
		log.Printf("media: orphan cleanup for person %d reported: %v", id, err)
	}
	if len(removed) > 0 {
		log.Printf("media: orphan cleanup removed %d file(s) from person %d's area", len(removed), id)
	}
	return nil
}

// AddBiographyImage copies a source image into the person's area under a
// collision-avoided filename and returns the relative filename to embed.
func (a *Area) AddBiographyImage(id int64, sourcePath string) (string, error) {
	if !utils.IsRasterImage(sourcePath) {
		return "", fmt.Errorf("unsupported image type: %s", filepath.Base(sourcePath))
	}
	dir, err := a.ensureDir(id)
	if err != nil {
		return "", err
	}
	filename := utils.UniqueFilename(dir, filepath.Base(sourcePath))
	if _, err := utils.CopyFile(sourcePath, filepath.Join(dir, filename)); err != nil {
		return "", err
	}
	return filename, nil
}

// AreaFilePath resolves a filename inside the person's area root (biography
// images, the avatar) to a displayable path, or ErrNotFound.
func (a *Area) AreaFilePath(id int64, filename string) (string, error) {
	return a.resolveIn(a.Dir(id), filename)
}

// ResolvePhotoPath resolves a filename inside the person's photo collection
// to a displayable path, or ErrNotFound.
func (a *Area) ResolvePhotoPath(id int64, filename string) (string, error) {
	return a.resolveIn(a.PhotosDir(id), filename)
}

// ThumbnailPath returns where the thumbnail for a photo filename lives; the
// file itself may not have been generated yet.
func (a *Area) ThumbnailPath(id int64, filename string) string {
	return filepath.Join(a.PhotosDir(id), ThumbsSubDir, filename+".jpg")
}

func (a *Area) resolveIn(dir, filename string) (string, error) {
	full := filepath.Clean(filepath.Join(dir, filename))
	if !strings.HasPrefix(full, filepath.Clean(dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid filename %q: resolves outside the media area", filename)
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat %s: %w", full, err)
	}
	return full, nil
}

// photo id assignment: unix-millisecond based with a monotonic guard so two
// imports in the same millisecond still get distinct ids
var (
	photoIDMu   sync.Mutex
	lastPhotoID int64
)

func nextPhotoID() int64 {
	photoIDMu.Lock()
	defer photoIDMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= lastPhotoID {
		id = lastPhotoID + 1
	}
	lastPhotoID = id
	return id
}

// PhotoMeta carries the caller-supplied metadata for a photo import.
// Defaults are merged in by the import: a fresh id, the creation timestamp,
// and the owner tagged into People.
type PhotoMeta struct {
	Title       string
	Description string
	DatePhoto   string
	People      []int64
}

func (a *Area) photosMetaPath(id int64) string {
	return filepath.Join(a.Dir(id), PhotosMetaFileName)
}

// loadPhotos reads the owner's photo metadata document without locking.
// Missing or malformed documents read as empty, logged.
func (a *Area) loadPhotos(owner int64) []models.Photo {
	data, err := os.ReadFile(a.photosMetaPath(owner))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("media: failed to read photo metadata for person %d: %v", owner, err)
		}
		return nil
	}
	var photos []models.Photo
	if err := json.Unmarshal(data, &photos); err != nil {
		log.Printf("media: malformed photo metadata for person %d, treating as empty: %v", owner, err)
		return nil
	}
	return photos
}

func (a *Area) savePhotos(owner int64, photos []models.Photo) error {
	if photos == nil {
		photos = []models.Photo{}
	}
	data, err := json.MarshalIndent(photos, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode photo metadata for person %d: %w", owner, err)
	}
	if err := utils.WriteFileAtomic(a.photosMetaPath(owner), data); err != nil {
		return fmt.Errorf("failed to persist photo metadata for person %d: %w", owner, err)
	}
	return nil
}

// Photos returns the owner's photo collection as stored in their metadata
// document, owner field normalized.
func (a *Area) Photos(owner int64) []models.Photo {
	unlock := utils.LockPath(a.photosMetaPath(owner))
	defer unlock()

	photos := a.loadPhotos(owner)
	out := make([]models.Photo, len(photos))
	for i := range photos {
		out[i] = photos[i].Clone()
		out[i].Owner = owner
	}
	return out
}

func (a *Area) buildPhotoRecord(owner int64, filename string, meta PhotoMeta) models.Photo {
	return models.Photo{
		ID:          nextPhotoID(),
		Filename:    filename,
		Owner:       owner,
		People:      models.AppendID(append([]int64(nil), meta.People...), owner),
		Title:       meta.Title,
		Description: meta.Description,
		DatePhoto:   meta.DatePhoto,
		Date:        time.Now().UTC().Format(time.RFC3339),
	}
}

func (a *Area) appendPhotoRecord(owner int64, record models.Photo) error {
	unlock := utils.LockPath(a.photosMetaPath(owner))
	defer unlock()

	photos := a.loadPhotos(owner)
	photos = append(photos, record)
	return a.savePhotos(owner, photos)
}

// ImportPhotoFromFile copies an image from an explicit source path into the
// owner's photo collection and appends its metadata record. Filename
// collisions get a numeric suffix; the first file is never overwritten.
func (a *Area) ImportPhotoFromFile(owner int64, sourcePath string, meta PhotoMeta) (models.Photo, error) {
	if !utils.IsRasterImage(sourcePath) {
		return models.Photo{}, fmt.Errorf("unsupported image type: %s", filepath.Base(sourcePath))
	}
	photosDir := a.PhotosDir(owner)
	if err := os.MkdirAll(photosDir, 0755); err != nil {
		return models.Photo{}, fmt.Errorf("failed to create photo directory for person %d: %w", owner, err)
	}

	filename := utils.UniqueFilename(photosDir, filepath.Base(sourcePath))
	if _, err := utils.CopyFile(sourcePath, filepath.Join(photosDir, filename)); err != nil {
		return models.Photo{}, err
	}

	record := a.buildPhotoRecord(owner, filename, meta)
	if err := a.appendPhotoRecord(owner, record); err != nil {
		return models.Photo{}, err
	}
	a.importLog.Append("imported %s for person %d (photo %d) from %s", filename, owner, record.ID, sourcePath)
	return record, nil
}

// ImportPhotoFromBytes writes uploaded image bytes into the owner's photo
// collection under a collision-avoided name and appends a metadata record.
func (a *Area) ImportPhotoFromBytes(owner int64, filename string, data []byte, meta PhotoMeta) (models.Photo, error) {
	if !utils.IsRasterImage(filename) {
		return models.Photo{}, fmt.Errorf("unsupported image type: %s", filename)
	}
	photosDir := a.PhotosDir(owner)
	if err := os.MkdirAll(photosDir, 0755); err != nil {
		return models.Photo{}, fmt.Errorf("failed to create photo directory for person %d: %w", owner, err)
	}

	finalName := utils.UniqueFilename(photosDir, filepath.Base(filename))
	if err := os.WriteFile(filepath.Join(photosDir, finalName), data, 0644); err != nil {
		return models.Photo{}, fmt.Errorf("failed to write photo %s for person %d: %w", finalName, owner, err)
	}

	record := a.buildPhotoRecord(owner, finalName, meta)
	if err := a.appendPhotoRecord(owner, record); err != nil {
		return models.Photo{}, err
	}
	a.importLog.Append("imported %s for person %d (photo %d) from upload", finalName, owner, record.ID)
	return record, nil
}

// UpdatePhoto replaces the metadata record matching updated.ID within the
// owner's document. Updating an id that is not present is a no-op.
func (a *Area) UpdatePhoto(owner int64, updated models.Photo) error {
	unlock := utils.LockPath(a.photosMetaPath(owner))
	defer unlock()

	photos := a.loadPhotos(owner)
	for i := range photos {
		if photos[i].ID == updated.ID {
			updated.Owner = owner
			photos[i] = updated.Clone()
			return a.savePhotos(owner, photos)
		}
	}
	return nil
}

// DeletePhoto removes the metadata record and then deletes the backing
// image file and its thumbnail if present. Metadata removal proceeds even
// when the file is already missing.
func (a *Area) DeletePhoto(owner, photoID int64) error {
	unlock := utils.LockPath(a.photosMetaPath(owner))
	defer unlock()

	photos := a.loadPhotos(owner)
	idx := -1
	for i := range photos {
		if photos[i].ID == photoID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	filename := photos[idx].Filename

	photos = append(photos[:idx], photos[idx+1:]...)
	if err := a.savePhotos(owner, photos); err != nil {
		return err
	}

	filePath := filepath.Join(a.PhotosDir(owner), filename)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete photo file %s: %w", filePath, err)
	}
	if err := os.Remove(a.ThumbnailPath(owner, filename)); err != nil && !os.IsNotExist(err) {
		log.Printf("media: failed to delete thumbnail for %s: %v", filename, err)
	}
	return nil
}
