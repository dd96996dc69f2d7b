package store

import "github.com/tkoenig/genealogybackend/models"

// relationshipKind describes one kind of mutual reference between people:
// which ids the edited person's record carries for it, and how to link or
// unlink the edited person on the other side of the relationship.
//
// father/mother are single-valued and paired with the target's children
// set; children is multi-valued and paired with the target's father or
// mother slot, chosen by the editor's gender; spouse and siblings are
// multi-valued and symmetric.
type relationshipKind struct {
	name   string
	ids    func(p *models.Person) []int64
	link   func(target *models.Person, editor *models.Person)
	unlink func(target *models.Person, editorID int64)
}

func parentIDs(ref *int64) []int64 {
	if ref == nil {
		return nil
	}
	return []int64{*ref}
}

var relationshipKinds = []relationshipKind{
	{
		name: "father",
		ids:  func(p *models.Person) []int64 { return parentIDs(p.Father) },
		link: func(target, editor *models.Person) {
			target.Children = models.AppendID(target.Children, editor.ID)
		},
		unlink: func(target *models.Person, editorID int64) {
			target.Children = models.RemoveID(target.Children, editorID)
		},
	},
	{
		name: "mother",
		ids:  func(p *models.Person) []int64 { return parentIDs(p.Mother) },
		link: func(target, editor *models.Person) {
			target.Children = models.AppendID(target.Children, editor.ID)
		},
		unlink: func(target *models.Person, editorID int64) {
			target.Children = models.RemoveID(target.Children, editorID)
		},
	},
	{
		name: "children",
		ids:  func(p *models.Person) []int64 { return p.Children },
		link: func(target, editor *models.Person) {
			// the parent slot is chosen by the editor's gender; an unknown
			// gender links the child into children without setting either
			// slot, leaving a deliberately incomplete link
			id := editor.ID
			switch editor.Gender {
			case models.GenderMale:
				target.Father = &id
			case models.GenderFemale:
				target.Mother = &id
			}
		},
		unlink: func(target *models.Person, editorID int64) {
			if target.Father != nil && *target.Father == editorID {
				target.Father = nil
			}
			if target.Mother != nil && *target.Mother == editorID {
				target.Mother = nil
			}
		},
	},
	{
		name: "spouse",
		ids:  func(p *models.Person) []int64 { return p.Spouse },
		link: func(target, editor *models.Person) {
			target.Spouse = models.AppendID(target.Spouse, editor.ID)
		},
		unlink: func(target *models.Person, editorID int64) {
			target.Spouse = models.RemoveID(target.Spouse, editorID)
		},
	},
	{
		name: "siblings",
		ids:  func(p *models.Person) []int64 { return p.Siblings },
		link: func(target, editor *models.Person) {
			target.Siblings = models.AppendID(target.Siblings, editor.ID)
		},
		unlink: func(target *models.Person, editorID int64) {
			target.Siblings = models.RemoveID(target.Siblings, editorID)
		},
	},
}

// missingFrom returns the ids present in a but absent from b.
func missingFrom(a, b []int64) []int64 {
	var out []int64
	for _, id := range a {
		if !models.ContainsID(b, id) {
			out = append(out, id)
		}
	}
	return out
}

// Reconcile takes the stored state of a person, the proposed new state, and
// the full collection, and returns a new collection in which every mutual
// reference is consistent again. The input collection is not mutated, and
// nothing is persisted here; the caller commits the result with one
// SaveAll. Ids that reference nobody in the collection are skipped on the
// target side and left as-is in the edited record.
//
// Running Reconcile with old == updated returns a collection identical to
// the input.
func Reconcile(old, updated models.Person, people []models.Person) []models.Person {
	result := make([]models.Person, len(people))
	byID := make(map[int64]*models.Person, len(people))
	for i := range people {
		result[i] = people[i].Clone()
		byID[result[i].ID] = &result[i]
	}

	for _, kind := range relationshipKinds {
		oldIDs := kind.ids(&old)
		newIDs := kind.ids(&updated)

		for _, id := range missingFrom(oldIDs, newIDs) {
			if target, ok := byID[id]; ok && id != updated.ID {
				kind.unlink(target, updated.ID)
			}
		}
		for _, id := range missingFrom(newIDs, oldIDs) {
			if target, ok := byID[id]; ok && id != updated.ID {
				kind.link(target, &updated)
			}
		}
	}

	// the edited person's own record is replaced wholesale
	if self, ok := byID[updated.ID]; ok {
		*self = updated.Clone()
	}
	return result
}

// PurgeReferences strips id from every record in place: parent slots equal
// to id are cleared and the id is removed from all children, spouse and
// sibling sets. This is the reverse of the reconciler's link step, applied
// when a person is hard-deleted.
func PurgeReferences(people []models.Person, id int64) {
	for i := range people {
		p := &people[i]
		if p.Father != nil && *p.Father == id {
			p.Father = nil
		}
		if p.Mother != nil && *p.Mother == id {
			p.Mother = nil
		}
		p.Children = models.RemoveID(p.Children, id)
		p.Spouse = models.RemoveID(p.Spouse, id)
		p.Siblings = models.RemoveID(p.Siblings, id)
	}
}
