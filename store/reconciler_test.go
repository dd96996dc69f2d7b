package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoenig/genealogybackend/models"
)

func findByID(t *testing.T, people []models.Person, id int64) models.Person {
	t.Helper()
	for _, p := range people {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("person %d not found in collection", id)
	return models.Person{}
}

func TestReconcileAddFatherLinksChild(t *testing.T) {
	people := []models.Person{
		{ID: 1, FirstName: "Boris", Gender: models.GenderMale},
		{ID: 2, FirstName: "Child"},
	}
	father := int64(1)
	old := people[1]
	updated := old.Clone()
	updated.Father = &father

	result := Reconcile(old, updated, people)

	assert.Equal(t, []int64{2}, findByID(t, result, 1).Children)
	got := findByID(t, result, 2)
	require.NotNil(t, got.Father)
	assert.Equal(t, int64(1), *got.Father)

	// input collection untouched
	assert.Empty(t, people[0].Children)
}

func TestReconcileRemoveFatherUnlinksChild(t *testing.T) {
	father := int64(1)
	people := []models.Person{
		{ID: 1, FirstName: "Boris", Gender: models.GenderMale, Children: []int64{2}},
		{ID: 2, FirstName: "Child", Father: &father},
	}
	old := people[1]
	updated := old.Clone()
	updated.Father = nil

	result := Reconcile(old, updated, people)

	assert.Empty(t, findByID(t, result, 1).Children)
	assert.Nil(t, findByID(t, result, 2).Father)
}

func TestReconcileAddChildSetsParentSlotByGender(t *testing.T) {
	tests := []struct {
		name   string
		gender models.Gender
		father bool
		mother bool
	}{
		{"male editor fills father", models.GenderMale, true, false},
		{"female editor fills mother", models.GenderFemale, false, true},
		{"unknown gender fills neither", models.GenderUnknown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			people := []models.Person{
				{ID: 1, FirstName: "Parent", Gender: tt.gender},
				{ID: 3, FirstName: "Child"},
			}
			old := people[0]
			updated := old.Clone()
			updated.Children = []int64{3}

			result := Reconcile(old, updated, people)
			child := findByID(t, result, 3)

			if tt.father {
				require.NotNil(t, child.Father)
				assert.Equal(t, int64(1), *child.Father)
			} else {
				assert.Nil(t, child.Father)
			}
			if tt.mother {
				require.NotNil(t, child.Mother)
				assert.Equal(t, int64(1), *child.Mother)
			} else {
				assert.Nil(t, child.Mother)
			}
		})
	}
}

func TestReconcileRemoveChildClearsMatchingParentSlot(t *testing.T) {
	mother := int64(1)
	father := int64(5)
	people := []models.Person{
		{ID: 1, FirstName: "Anna", Gender: models.GenderFemale, Children: []int64{3}},
		{ID: 3, FirstName: "Child", Mother: &mother, Father: &father},
		{ID: 5, FirstName: "Boris", Gender: models.GenderMale, Children: []int64{3}},
	}
	old := people[0]
	updated := old.Clone()
	updated.Children = nil

	result := Reconcile(old, updated, people)
	child := findByID(t, result, 3)

	assert.Nil(t, child.Mother)
	// the other parent's slot is untouched
	require.NotNil(t, child.Father)
	assert.Equal(t, int64(5), *child.Father)
}

func TestReconcileSpouseAndSiblingsSymmetry(t *testing.T) {
	people := []models.Person{
		{ID: 1, FirstName: "Anna"},
		{ID: 2, FirstName: "Boris"},
		{ID: 3, FirstName: "Clara"},
	}
	old := people[0]
	updated := old.Clone()
	updated.Spouse = []int64{2}
	updated.Siblings = []int64{3}

	result := Reconcile(old, updated, people)
	assert.Equal(t, []int64{1}, findByID(t, result, 2).Spouse)
	assert.Equal(t, []int64{1}, findByID(t, result, 3).Siblings)

	// removing the links is symmetric too
	old2 := findByID(t, result, 1)
	updated2 := old2.Clone()
	updated2.Spouse = nil
	updated2.Siblings = nil

	result2 := Reconcile(old2, updated2, result)
	assert.Empty(t, findByID(t, result2, 2).Spouse)
	assert.Empty(t, findByID(t, result2, 3).Siblings)
}

func TestReconcileNoChangeIsIdentity(t *testing.T) {
	father := int64(1)
	people := []models.Person{
		{ID: 1, FirstName: "Boris", Gender: models.GenderMale, Children: []int64{2}},
		{ID: 2, FirstName: "Child", Father: &father, Spouse: []int64{3}},
		{ID: 3, FirstName: "Clara", Spouse: []int64{2}},
	}
	old := people[1]

	result := Reconcile(old, old.Clone(), people)
	assert.Equal(t, people, result)
}

func TestReconcileReAddExistingLinkDoesNotDuplicate(t *testing.T) {
	people := []models.Person{
		{ID: 1, FirstName: "Anna", Spouse: []int64{2}},
		{ID: 2, FirstName: "Boris", Spouse: []int64{1}},
	}
	old := models.Person{ID: 1, FirstName: "Anna"} // stored state without the link
	updated := people[0].Clone()

	result := Reconcile(old, updated, people)
	assert.Equal(t, []int64{1}, findByID(t, result, 2).Spouse)
}

func TestReconcileSkipsDanglingAndSelfReferences(t *testing.T) {
	people := []models.Person{
		{ID: 1, FirstName: "Anna"},
	}
	old := people[0]
	updated := old.Clone()
	updated.Spouse = []int64{99, 1}

	result := Reconcile(old, updated, people)

	// the edited record keeps what the caller wrote; no one else changed
	got := findByID(t, result, 1)
	assert.Equal(t, []int64{99, 1}, got.Spouse)
	assert.Len(t, result, 1)
}

func TestPurgeReferences(t *testing.T) {
	father := int64(7)
	mother := int64(7)
	people := []models.Person{
		{ID: 2, Father: &father, Mother: &mother, Children: []int64{7, 8}, Spouse: []int64{7}, Siblings: []int64{7, 9}},
	}
	PurgeReferences(people, 7)

	assert.Nil(t, people[0].Father)
	assert.Nil(t, people[0].Mother)
	assert.Equal(t, []int64{8}, people[0].Children)
	assert.Empty(t, people[0].Spouse)
	assert.Equal(t, []int64{9}, people[0].Siblings)
}
