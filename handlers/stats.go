package handlers

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/tkoenig/genealogybackend/store"
)

type StatsHandler struct {
	ArchiveRoot string
	Store       *store.PersonStore
}

// GetStats walks the archive root and reports usage for the UI's size
// display. The walk tolerates files vanishing mid-scan; the watcher will
// trigger a refresh anyway.
func (sh *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var totalBytes uint64
	var fileCount int

	err := filepath.Walk(sh.ArchiveRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			totalBytes += uint64(info.Size())
			fileCount++
		}
		return nil
	})
	if err != nil {
		log.Printf("Error scanning archive for stats: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to scan archive"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"people":      len(sh.Store.GetAll()),
		"files":       fileCount,
		"total_bytes": totalBytes,
		"total_size":  humanize.Bytes(totalBytes),
	})
}
