package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/tkoenig/genealogybackend/models"
	"github.com/tkoenig/genealogybackend/utils"
)

// PersonStore persists the whole person collection as one JSON document.
// Every operation is a whole-document read-modify-write serialized by an
// in-process lock on the document path; there is no per-record granularity
// on disk. That bounds the design to personal-archive scale (thousands of
// records) and keeps the on-disk layout a plain, inspectable file.
type PersonStore struct {
	path string
}

// NewPersonStore creates a store over the given document path. The document
// is created lazily on the first write.
func NewPersonStore(path string) *PersonStore {
	return &PersonStore{path: path}
}

// load reads the document without locking. A missing document is an empty
// collection; a malformed one is logged and also treated as empty, so the
// next successful write repairs it.
func (s *PersonStore) load() []models.Person {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: failed to read %s: %v", s.path, err)
		}
		return nil
	}
	var people []models.Person
	if err := json.Unmarshal(data, &people); err != nil {
		log.Printf("store: malformed document %s, treating as empty: %v", s.path, err)
		return nil
	}
	return people
}

// save rewrites the whole document atomically. Write failures always
// surface to the caller.
func (s *PersonStore) save(people []models.Person) error {
	if people == nil {
		people = []models.Person{}
	}
	data, err := json.MarshalIndent(people, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode person collection: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to persist person collection: %w", err)
	}
	return nil
}

// GetAll returns the full person collection. Read paths are tolerant and
// never fail: missing or malformed documents yield an empty collection.
func (s *PersonStore) GetAll() []models.Person {
	unlock := utils.LockPath(s.path)
	defer unlock()
	people := s.load()
	out := make([]models.Person, len(people))
	for i := range people {
		out[i] = people[i].Clone()
	}
	return out
}

// GetByID returns a single person or ErrNotFound.
func (s *PersonStore) GetByID(id int64) (models.Person, error) {
	unlock := utils.LockPath(s.path)
	defer unlock()
	for _, p := range s.load() {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return models.Person{}, ErrNotFound
}

// Add appends one record and rewrites the document. No uniqueness check is
// performed on the id; the caller assigns ids and must keep them unique.
func (s *PersonStore) Add(person models.Person) error {
	unlock := utils.LockPath(s.path)
	defer unlock()
	people := s.load()
	people = append(people, person.Clone())
	return s.save(people)
}

// Update merges the named fields into the stored record. Each named field
// fully replaces the prior value (a JSON null clears it); unnamed fields
// are untouched. The record id cannot be changed this way.
func (s *PersonStore) Update(id int64, fields map[string]json.RawMessage) (models.Person, error) {
	unlock := utils.LockPath(s.path)
	defer unlock()

	people := s.load()
	for i := range people {
		if people[i].ID != id {
			continue
		}
		merged, err := mergeFields(people[i], fields)
		if err != nil {
			return models.Person{}, err
		}
		merged.ID = id
		if !merged.HasName() {
			return models.Person{}, fmt.Errorf("%w: at least one name field is required", ErrValidation)
		}
		people[i] = merged
		if err := s.save(people); err != nil {
			return models.Person{}, err
		}
		return merged.Clone(), nil
	}
	return models.Person{}, ErrNotFound
}

func mergeFields(p models.Person, fields map[string]json.RawMessage) (models.Person, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return models.Person{}, fmt.Errorf("failed to encode stored person %d: %w", p.ID, err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Person{}, fmt.Errorf("failed to decode stored person %d: %w", p.ID, err)
	}
	for k, v := range fields {
		if string(v) == "null" {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return models.Person{}, fmt.Errorf("failed to merge fields for person %d: %w", p.ID, err)
	}
	var merged models.Person
	if err := json.Unmarshal(out, &merged); err != nil {
		return models.Person{}, fmt.Errorf("invalid field payload for person %d: %w", p.ID, err)
	}
	return merged, nil
}

// Upsert replaces the record with a matching id, or appends it if absent.
// This is a trusted bulk-style path: it does not reconcile relationships.
func (s *PersonStore) Upsert(person models.Person) error {
	unlock := utils.LockPath(s.path)
	defer unlock()

	people := s.load()
	for i := range people {
		if people[i].ID == person.ID {
			people[i] = person.Clone()
			return s.save(people)
		}
	}
	people = append(people, person.Clone())
	return s.save(people)
}

// SaveAll wholesale-replaces the document. Used by import/restore flows and
// by the reconciler's single persistence call; relationship invariants are
// the caller's responsibility here.
func (s *PersonStore) SaveAll(people []models.Person) error {
	unlock := utils.LockPath(s.path)
	defer unlock()
	return s.save(people)
}

// ApplyEdit runs a full person edit through the reconciler: it diffs the
// stored record against updated, fixes every related person's mutual
// references, and persists the whole corrected collection in one write. If
// the write fails nothing on disk changes.
func (s *PersonStore) ApplyEdit(updated models.Person) (models.Person, error) {
	if !updated.HasName() {
		return models.Person{}, fmt.Errorf("%w: at least one name field is required", ErrValidation)
	}

	unlock := utils.LockPath(s.path)
	defer unlock()

	people := s.load()
	var old *models.Person
	for i := range people {
		if people[i].ID == updated.ID {
			old = &people[i]
			break
		}
	}
	if old == nil {
		return models.Person{}, ErrNotFound
	}

	reconciled := Reconcile(*old, updated, people)
	if err := s.save(reconciled); err != nil {
		return models.Person{}, err
	}
	return updated.Clone(), nil
}

// DeletePerson removes the record and purges the id from every other
// person's relationship sets, rewriting the document once. Media-area
// removal is the caller's second step, taken only after this rewrite
// succeeds, so a crash in between leaves an orphaned directory rather than
// a dangling record.
func (s *PersonStore) DeletePerson(id int64) error {
	unlock := utils.LockPath(s.path)
	defer unlock()

	people := s.load()
	idx := -1
	for i := range people {
		if people[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}

	people = append(people[:idx], people[idx+1:]...)
	PurgeReferences(people, id)
	return s.save(people)
}

// NextID returns an id greater than every id currently in the document.
func (s *PersonStore) NextID() int64 {
	unlock := utils.LockPath(s.path)
	defer unlock()

	var max int64
	for _, p := range s.load() {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}
