package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/tkoenig/genealogybackend/media"
	"github.com/tkoenig/genealogybackend/models"
	"github.com/tkoenig/genealogybackend/realtime"
	"github.com/tkoenig/genealogybackend/store"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

type PersonHandler struct {
	Store    *store.PersonStore
	Media    *media.Area
	Hub      *realtime.Hub
	Validate *validator.Validate
}

// personPayload is the add/edit form body. The id always comes from the
// URL (or is assigned on create), never from the body.
type personPayload struct {
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	Patronymic string        `json:"patronymic"`
	MaidenName string        `json:"maidenName"`
	Gender     models.Gender `json:"gender" validate:"omitempty,oneof=male female unknown"`
	Birthday   string        `json:"birthday"`
	Died       string        `json:"died"`
	Generation int           `json:"generation" validate:"omitempty,min=1"`
	Father     *int64        `json:"father"`
	Mother     *int64        `json:"mother"`
	Children   []int64       `json:"children"`
	Spouse     []int64       `json:"spouse"`
	Siblings   []int64       `json:"siblings"`
	Archived   bool          `json:"archived"`
}

func (p personPayload) toModel(id int64) models.Person {
	return models.Person{
		ID:         id,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Patronymic: p.Patronymic,
		MaidenName: p.MaidenName,
		Gender:     p.Gender,
		Birthday:   p.Birthday,
		Died:       p.Died,
		Generation: p.Generation,
		Father:     p.Father,
		Mother:     p.Mother,
		Children:   p.Children,
		Spouse:     p.Spouse,
		Siblings:   p.Siblings,
		Archived:   p.Archived,
	}
}

// decodeAndValidate rejects the form before any write: malformed body,
// invalid enum/range values, or a person with no name fields at all.
func (ph *PersonHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request) (personPayload, bool) {
	var req personPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return req, false
	}
	if err := ph.Validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person fields: " + err.Error()})
		return req, false
	}
	probe := req.toModel(0)
	if !probe.HasName() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "At least one name field is required"})
		return req, false
	}
	return req, true
}

func (ph *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	req, ok := ph.decodeAndValidate(w, r)
	if !ok {
		return
	}

	person := req.toModel(ph.Store.NextID())
	if err := ph.Store.Add(person); err != nil {
		log.Printf("Error creating person '%s': %v", person.DisplayName(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create person"})
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

func (ph *PersonHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people := ph.Store.GetAll()

	// archived people are soft-deleted and excluded from default listings
	includeArchived := r.URL.Query().Get("include_archived") == "true"
	out := make([]models.Person, 0, len(people))
	for _, p := range people {
		if p.Archived && !includeArchived {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (ph *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	person, err := ph.Store.GetByID(personID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Person not found"})
		} else {
			log.Printf("Error getting person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve person"})
		}
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// UpdatePerson is the reconciled full-edit path: the stored record is
// diffed against the submitted form and every related person's mutual
// references are corrected in the same write.
func (ph *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	req, ok := ph.decodeAndValidate(w, r)
	if !ok {
		return
	}

	updated, err := ph.Store.ApplyEdit(req.toModel(personID))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Person not found"})
		case errors.Is(err, store.ErrValidation):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("Error updating person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update person"})
		}
		return
	}

	ph.Hub.Broadcast(realtime.Event{Type: realtime.EventArchiveChanged, PersonID: personID, Detail: "person updated"})
	writeJSON(w, http.StatusOK, updated)
}

// PatchPerson merges the named fields into the stored record without
// touching relationships on other people.
func (ph *PersonHandler) PatchPerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	delete(fields, "id")

	merged, err := ph.Store.Update(personID, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Person not found"})
		case errors.Is(err, store.ErrValidation):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("Error patching person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update person"})
		}
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

// DeletePerson hard-deletes: the record is removed and purged from every
// other person's relationship sets first, and the media area is removed
// only after that rewrite succeeds.
func (ph *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	personID, ok := parseIDParam(r, "person_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid person ID format"})
		return
	}

	if err := ph.Store.DeletePerson(personID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Person not found"})
		} else {
			log.Printf("Error deleting person %d: %v", personID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to delete person"})
		}
		return
	}

	if err := ph.Media.Remove(personID); err != nil {
		log.Printf("Error removing media area for deleted person %d: %v", personID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Person deleted but media area removal failed"})
		return
	}

	ph.Hub.Broadcast(realtime.Event{Type: realtime.EventArchiveChanged, PersonID: personID, Detail: "person deleted"})
	writeJSON(w, http.StatusNoContent, nil)
}

// UpsertPerson replaces or appends a single record without reconciliation.
func (ph *PersonHandler) UpsertPerson(w http.ResponseWriter, r *http.Request) {
	var person models.Person
	if err := json.NewDecoder(r.Body).Decode(&person); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}
	if person.ID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required field: id"})
		return
	}
	if !person.HasName() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "At least one name field is required"})
		return
	}

	if err := ph.Store.Upsert(person); err != nil {
		log.Printf("Error upserting person %d: %v", person.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to upsert person"})
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// ImportPeople is the trusted bulk path for restore/import flows: it
// replaces the whole document and intentionally skips reconciliation, so a
// restore reproduces its backup exactly.
func (ph *PersonHandler) ImportPeople(w http.ResponseWriter, r *http.Request) {
	var people []models.Person
	if err := json.NewDecoder(r.Body).Decode(&people); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body: " + err.Error()})
		return
	}

	log.Printf("Importing %d people (bulk path, relationship reconciliation skipped)", len(people))
	if err := ph.Store.SaveAll(people); err != nil {
		log.Printf("Error importing people: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to import people"})
		return
	}

	ph.Hub.Broadcast(realtime.Event{Type: realtime.EventArchiveChanged, Detail: "bulk import"})
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": len(people)})
}
