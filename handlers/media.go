package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/models"
	"github.com/tkoenig/genealogybackend/realtime"
	"github.com/tkoenig/genealogybackend/store"
	"github.com/tkoenig/genealogybackend/workers"
)

const maxUploadBytes = 64 << 20 // 64 MiB

type MediaHandler struct {
	Store     *store.PersonStore
	Media     *media.Area
	Index     *media.Index
	Processor *workers.PhotoProcessor
	Hub       *realtime.Hub
}

// mediaURL builds the displayable reference the UI can feed to an <img>
// tag; files under it are served by the asset server.
func mediaURL(personID int64, parts ...string) string {
	return "/api/media/" + strconv.FormatInt(personID, 10) + "/" + strings.Join(parts, "/")
}

func (mh *MediaHandler) personExists(w http.ResponseWriter, personID int64) bool {
	if _, err := mh.Store.GetByID(personID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Person not found"})
		} else {
			log.Printf("Error checking person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to verify person"})
		}
		return false
	}
	return true
}

// GetAvatar resolves the person's avatar to a displayable reference, or a
// distinct 404 when none exists.
func (mh *MediaHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	path, err := mh.Media.AvatarPath(personID)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Avatar not found"})
		} else {
			log.Printf("Error resolving avatar for person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to resolve avatar"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": mediaURL(personID, filepath.Base(path))})
}

func (mh *MediaHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	if !mh.personExists(w, personID) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required file field: file"})
		return
	}
	defer file.Close()

	savedPath, err := mh.Media.SaveAvatar(personID, file)
	if err != nil {
		log.Printf("Error saving avatar for person %d: %v", personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save avatar"})
		return
	}

	mh.Hub.Broadcast(realtime.Event{Type: realtime.EventArchiveChanged, PersonID: personID, Detail: "avatar updated"})
	writeJSON(w, http.StatusOK, map[string]string{"path": mediaURL(personID, filepath.Base(savedPath))})
}

func (mh *MediaHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	if err := mh.Media.DeleteAvatar(personID); err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Avatar not found"})
		} else {
			log.Printf("Error deleting avatar for person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete avatar"})
		}
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// GetBiography reads the biography text; absent documents read as empty.
func (mh *MediaHandler) GetBiography(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": mh.Media.Biography(personID)})
}

// PutBiography saves the biography text; the orphan cleanup pass runs
// synchronously inside the save.
func (mh *MediaHandler) PutBiography(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	if !mh.personExists(w, personID) {
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := mh.Media.SaveBiography(personID, req.Text); err != nil {
		log.Printf("Error saving biography for person %d: %v", personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save biography"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Biography saved"})
}

// AddBiographyImage copies a source image into the person's area and
// returns the relative filename to embed in the markdown.
func (mh *MediaHandler) AddBiographyImage(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	if !mh.personExists(w, personID) {
		return
	}

	var req struct {
		SourcePath string `json:"source_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SourcePath) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: source_path"})
		return
	}

	filename, err := mh.Media.AddBiographyImage(personID, req.SourcePath)
	if err != nil {
		log.Printf("Error adding biography image for person %d: %v", personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to add biography image"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"filename": filename,
		"path":     mediaURL(personID, filename),
	})
}

func parsePeopleList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// UploadPhoto imports one photo into the person's collection. A multipart
// body imports uploaded bytes; a JSON body with source_path imports from an
// explicit file on disk.
func (mh *MediaHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	if !mh.personExists(w, personID) {
		return
	}

	var record models.Photo
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid multipart form: " + err.Error()})
			return
		}
		file, header, formErr := r.FormFile("file")
		if formErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required file field: file"})
			return
		}
		defer file.Close()

		data, readErr := io.ReadAll(file)
		if readErr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read upload"})
			return
		}
		meta := media.PhotoMeta{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			DatePhoto:   r.FormValue("date_photo"),
			People:      parsePeopleList(r.FormValue("people")),
		}
		record, err = mh.Media.ImportPhotoFromBytes(personID, header.Filename, data, meta)
	} else {
		var req struct {
			SourcePath  string  `json:"source_path"`
			Title       string  `json:"title"`
			Description string  `json:"description"`
			DatePhoto   string  `json:"datePhoto"`
			People      []int64 `json:"people"`
		}
		if decErr := json.NewDecoder(r.Body).Decode(&req); decErr != nil || strings.TrimSpace(req.SourcePath) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: source_path"})
			return
		}
		meta := media.PhotoMeta{
			Title:       req.Title,
			Description: req.Description,
			DatePhoto:   req.DatePhoto,
			People:      req.People,
		}
		record, err = mh.Media.ImportPhotoFromFile(personID, req.SourcePath, meta)
	}

	if err != nil {
		log.Printf("Error importing photo for person %d: %v", personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to import photo: " + err.Error()})
		return
	}

	mh.Processor.EnqueuePhoto(personID, record.ID, record.Filename)
	mh.Index.Invalidate()
	mh.Hub.Broadcast(realtime.Event{Type: realtime.EventPhotoImported, PersonID: personID, Detail: record.Filename})
	writeJSON(w, http.StatusCreated, record)
}

// ListPersonPhotos returns every photo owned by or tagging the person.
func (mh *MediaHandler) ListPersonPhotos(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	photos := mh.Index.AllForPerson(personID)
	if photos == nil {
		photos = []models.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

// ListAllPhotos returns every photo record in the archive.
func (mh *MediaHandler) ListAllPhotos(w http.ResponseWriter, r *http.Request) {
	photos := mh.Index.AllGlobal()
	if photos == nil {
		photos = []models.Photo{}
	}
	writeJSON(w, http.StatusOK, photos)
}

func (mh *MediaHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	photoID, ok := parseIDParam(r, "photo_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid photo ID format"})
		return
	}

	var photo models.Photo
	if err := json.NewDecoder(r.Body).Decode(&photo); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	photo.ID = photoID

	if err := mh.Media.UpdatePhoto(personID, photo); err != nil {
		log.Printf("Error updating photo %d for person %d: %v", photoID, personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update photo"})
		return
	}
	mh.Index.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Photo updated"})
}

func (mh *MediaHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}
	photoID, ok := parseIDParam(r, "photo_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid photo ID format"})
		return
	}

	if err := mh.Media.DeletePhoto(personID, photoID); err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Photo not found"})
		} else {
			log.Printf("Error deleting photo %d for person %d: %v", photoID, personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete photo"})
		}
		return
	}
	mh.Index.Invalidate()
	writeJSON(w, http.StatusNoContent, nil)
}

// GetPhotoPath resolves a photo id (whoever owns it) to a displayable
// reference, or a distinct 404 when neither the record nor the file exists.
func (mh *MediaHandler) GetPhotoPath(w http.ResponseWriter, r *http.Request) {
	photoID, ok := parseIDParam(r, "photo_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid photo ID format"})
		return
	}

	photo, err := mh.Index.FindPhoto(photoID)
	if err == nil {
		_, err = mh.Media.ResolvePhotoPath(photo.Owner, photo.Filename)
	}
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Photo not found"})
		} else {
			log.Printf("Error resolving photo %d: %v", photoID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to resolve photo"})
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path": mediaURL(photo.Owner, media.PhotosSubDir, photo.Filename),
	})
}
