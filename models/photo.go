package models

// Photo is one stored image inside a person's media area. The person whose
// area physically holds the file is the owner; People lists everyone tagged
// as appearing in the shot, owner included.
type Photo struct {
	ID          int64   `json:"id"`
	Filename    string  `json:"filename"`
	Owner       int64   `json:"owner"`
	People      []int64 `json:"people,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	DatePhoto   string  `json:"datePhoto,omitempty"`
	Date        string  `json:"date,omitempty"`
	AspectRatio float64 `json:"aspectRatio,omitempty"`
}

// Clone returns a copy whose People slice does not alias the original.
func (p Photo) Clone() Photo {
	c := p
	c.People = append([]int64(nil), p.People...)
	return c
}
