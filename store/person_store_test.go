package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoenig/genealogybackend/models"
)

func newTestStore(t *testing.T) *PersonStore {
	t.Helper()
	return NewPersonStore(filepath.Join(t.TempDir(), "genealogy-data.json"))
}

func TestPersonStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	people := []models.Person{
		{ID: 1, FirstName: "Anna", Gender: models.GenderFemale},
		{ID: 2, FirstName: "Boris", Gender: models.GenderMale},
	}
	require.NoError(t, s.SaveAll(people))

	got := s.GetAll()
	require.Len(t, got, 2)
	assert.Equal(t, "Anna", got[0].FirstName)
	assert.Equal(t, "Boris", got[1].FirstName)

	p, err := s.GetByID(2)
	require.NoError(t, err)
	assert.Equal(t, "Boris", p.FirstName)

	_, err = s.GetByID(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonStoreMissingDocumentReadsEmpty(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.GetAll())
}

func TestPersonStoreMalformedDocumentReadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genealogy-data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s := NewPersonStore(path)

	assert.Empty(t, s.GetAll())

	// a successful write repairs the document
	require.NoError(t, s.Add(models.Person{ID: 1, FirstName: "Anna"}))
	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, "Anna", got[0].FirstName)
}

func TestPersonStoreUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(models.Person{ID: 1, FirstName: "Anna", LastName: "Keller", Birthday: "1950-04-01"}))

	updated, err := s.Update(1, map[string]json.RawMessage{
		"lastName": json.RawMessage(`"Meier"`),
		"birthday": json.RawMessage(`null`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Anna", updated.FirstName)
	assert.Equal(t, "Meier", updated.LastName)
	assert.Empty(t, updated.Birthday)

	stored, err := s.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Meier", stored.LastName)
	assert.Empty(t, stored.Birthday)
}

func TestPersonStoreUpdateCannotChangeID(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(models.Person{ID: 1, FirstName: "Anna"}))

	updated, err := s.Update(1, map[string]json.RawMessage{
		"id": json.RawMessage(`42`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ID)
}

func TestPersonStoreUpdateRejectsNameless(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(models.Person{ID: 1, FirstName: "Anna"}))

	_, err := s.Update(1, map[string]json.RawMessage{
		"firstName": json.RawMessage(`null`),
	})
	assert.ErrorIs(t, err, ErrValidation)

	// nothing was written
	stored, err := s.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", stored.FirstName)
}

func TestPersonStoreUpdateMissingPerson(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(7, map[string]json.RawMessage{"firstName": json.RawMessage(`"X"`)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonStoreUpsert(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(models.Person{ID: 5, FirstName: "Clara"}))
	require.NoError(t, s.Upsert(models.Person{ID: 5, FirstName: "Clara", LastName: "Brandt"}))

	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, "Brandt", got[0].LastName)
}

func TestPersonStoreApplyEditReconciles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveAll([]models.Person{
		{ID: 1, FirstName: "Anna", Gender: models.GenderFemale},
		{ID: 2, FirstName: "Boris", Gender: models.GenderMale},
	}))

	edited := models.Person{ID: 1, FirstName: "Anna", Gender: models.GenderFemale, Spouse: []int64{2}}
	_, err := s.ApplyEdit(edited)
	require.NoError(t, err)

	other, err := s.GetByID(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, other.Spouse)
}

func TestPersonStoreApplyEditErrors(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(models.Person{ID: 1, FirstName: "Anna"}))

	_, err := s.ApplyEdit(models.Person{ID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.ApplyEdit(models.Person{ID: 9, FirstName: "Ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPersonStoreDeletePurgesReferences(t *testing.T) {
	s := newTestStore(t)
	father := int64(1)
	require.NoError(t, s.SaveAll([]models.Person{
		{ID: 1, FirstName: "Boris", Gender: models.GenderMale, Children: []int64{2}, Spouse: []int64{3}},
		{ID: 2, FirstName: "Child", Father: &father, Siblings: []int64{4}},
		{ID: 3, FirstName: "Anna", Spouse: []int64{1}},
		{ID: 4, FirstName: "Sib", Siblings: []int64{2}},
	}))

	require.NoError(t, s.DeletePerson(1))

	got := s.GetAll()
	require.Len(t, got, 3)
	for _, p := range got {
		assert.Nil(t, p.Father, "person %d still references deleted father", p.ID)
		assert.NotContains(t, p.Spouse, int64(1))
		assert.NotContains(t, p.Children, int64(1))
	}

	assert.ErrorIs(t, s.DeletePerson(1), ErrNotFound)
}

func TestPersonStoreNextID(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, int64(1), s.NextID())

	require.NoError(t, s.SaveAll([]models.Person{
		{ID: 3, FirstName: "A"},
		{ID: 11, FirstName: "B"},
	}))
	assert.Equal(t, int64(12), s.NextID())
}
