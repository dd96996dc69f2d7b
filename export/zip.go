package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/models"
)

// destinationName builds a unique export filename so repeated exports never
// clobber each other.
func destinationName(prefix, ext string) string {
	exportUUID, _ := uuid.NewRandom()
	return fmt.Sprintf("%s_%d_%s%s", prefix, time.Now().Unix(), exportUUID.String()[:8], ext)
}

// finishTemp renames a completed temporary export into place. A destination
// file only ever appears under its final name once it is fully written.
func finishTemp(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize export %s: %w", finalPath, err)
	}
	return nil
}

// CreatePhotoZip streams the backing file of every resolved photo into a
// zip archive under destDir. Missing backing files are skipped, not fatal;
// an export that finds no files at all is an error. Returns the final
// archive path and its size.
func CreatePhotoZip(area *media.Area, photos []models.Photo, destDir string) (string, int64, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create export directory %s: %w", destDir, err)
	}

	finalPath := filepath.Join(destDir, destinationName("photos", ".zip"))
	tmpPath := finalPath + ".part"

	zipFile, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create export file %s: %w", tmpPath, err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	usedNames := make(map[string]bool)
	foundFiles := false
	for _, photo := range photos {
		srcPath, err := area.ResolvePhotoPath(photo.Owner, photo.Filename)
		if err != nil {
			log.Printf("export: skipping photo %d (%s): %v", photo.ID, photo.Filename, err)
			continue
		}

		fileToZip, err := os.Open(srcPath)
		if err != nil {
			log.Printf("export: failed to open %s for zipping: %v. Skipping.", srcPath, err)
			continue
		}

		entryName := photo.Filename
		for i := 1; usedNames[entryName]; i++ {
			ext := filepath.Ext(photo.Filename)
			entryName = fmt.Sprintf("%s_%d%s", photo.Filename[:len(photo.Filename)-len(ext)], i, ext)
		}
		usedNames[entryName] = true

		writer, err := zipWriter.Create(entryName)
		if err != nil {
			fileToZip.Close()
			log.Printf("export: failed to create zip entry for %s: %v. Skipping.", entryName, err)
			continue
		}
		_, err = io.Copy(writer, fileToZip)
		fileToZip.Close()
		if err != nil {
			log.Printf("export: failed to write %s to zip: %v. Skipping.", entryName, err)
			continue
		}
		foundFiles = true
	}

	if err := zipWriter.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to finalize zip writer for %s: %w", tmpPath, err)
	}
	if err := zipFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to close export file %s: %w", tmpPath, err)
	}

	if !foundFiles {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("no photo files available to export")
	}

	if err := finishTemp(tmpPath, finalPath); err != nil {
		return "", 0, err
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat created export %s: %w", finalPath, err)
	}

	log.Printf("export: created photo zip %s (%d bytes)", finalPath, info.Size())
	return finalPath, info.Size(), nil
}
