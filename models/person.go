package models

import "strings"

// Gender is the declared gender of a person. It drives which parent slot
// (father or mother) the reconciler fills when this person gains a child.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Person represents one individual in the archive. The ID doubles as the
// name of the person's media area directory and must never change once
// assigned.
type Person struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Patronymic string `json:"patronymic,omitempty"`
	MaidenName string `json:"maidenName,omitempty"`
	Gender     Gender `json:"gender,omitempty"`
	Birthday   string `json:"birthday,omitempty"`
	Died       string `json:"died,omitempty"`
	Generation int    `json:"generation,omitempty"`

	Father   *int64  `json:"father,omitempty"`
	Mother   *int64  `json:"mother,omitempty"`
	Children []int64 `json:"children,omitempty"`
	Spouse   []int64 `json:"spouse,omitempty"`
	Siblings []int64 `json:"siblings,omitempty"`

	Archived bool `json:"archived,omitempty"`
}

// HasName reports whether at least one name field is non-blank. A person
// with no name at all is rejected before any write.
func (p *Person) HasName() bool {
	for _, s := range []string{p.FirstName, p.LastName, p.Patronymic, p.MaidenName} {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// DisplayName builds a best-effort label for logs and export captions.
func (p *Person) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.Patronymic, p.LastName} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	if len(parts) == 0 && strings.TrimSpace(p.MaidenName) != "" {
		parts = append(parts, strings.TrimSpace(p.MaidenName))
	}
	return strings.Join(parts, " ")
}

// Clone returns a deep copy; relationship slices and parent pointers are
// duplicated so mutating the copy never aliases the original.
func (p Person) Clone() Person {
	c := p
	if p.Father != nil {
		f := *p.Father
		c.Father = &f
	}
	if p.Mother != nil {
		m := *p.Mother
		c.Mother = &m
	}
	c.Children = append([]int64(nil), p.Children...)
	c.Spouse = append([]int64(nil), p.Spouse...)
	c.Siblings = append([]int64(nil), p.Siblings...)
	return c
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendID adds id to ids unless it is already present.
func AppendID(ids []int64, id int64) []int64 {
	if ContainsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

// RemoveID strips every occurrence of id from ids. The input slice is left
// untouched.
func RemoveID(ids []int64, id int64) []int64 {
	var out []int64
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
