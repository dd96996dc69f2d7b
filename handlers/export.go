package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/tkoenig/genealogybackend/export"
	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/realtime"
)

type ExportHandler struct {
	Media       *media.Area
	Index       *media.Index
	ExportsPath string
	Hub         *realtime.Hub
}

type exportRequest struct {
	PhotoIDs []int64 `json:"photo_ids"`
}

func (eh *ExportHandler) resolveRequest(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return nil, false
	}
	if len(req.PhotoIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: photo_ids"})
		return nil, false
	}
	return req.PhotoIDs, true
}

// ExportZip streams the selected photos into a zip archive and returns the
// destination path. Unknown ids and missing files are skipped.
func (eh *ExportHandler) ExportZip(w http.ResponseWriter, r *http.Request) {
	photoIDs, ok := eh.resolveRequest(w, r)
	if !ok {
		return
	}

	photos := eh.Index.ResolveMany(photoIDs)
	if len(photos) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No photos found for the given ids"})
		return
	}

	path, size, err := export.CreatePhotoZip(eh.Media, photos, eh.ExportsPath)
	if err != nil {
		log.Printf("Error creating zip export: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create zip export"})
		return
	}

	eh.Hub.Broadcast(realtime.Event{Type: realtime.EventExportDone, Detail: path})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":       path,
		"size_bytes": size,
		"size":       humanize.Bytes(uint64(size)),
		"photos":     len(photos),
	})
}

// ExportPDF writes the selected photos into a paginated document, one photo
// per page with its caption, and returns the destination path.
func (eh *ExportHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	photoIDs, ok := eh.resolveRequest(w, r)
	if !ok {
		return
	}

	photos := eh.Index.ResolveMany(photoIDs)
	if len(photos) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No photos found for the given ids"})
		return
	}

	path, err := export.CreatePhotoPDF(eh.Media, photos, eh.ExportsPath)
	if err != nil {
		log.Printf("Error creating pdf export: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create pdf export"})
		return
	}

	eh.Hub.Broadcast(realtime.Event{Type: realtime.EventExportDone, Detail: path})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":   path,
		"photos": len(photos),
	})
}
