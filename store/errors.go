package store

import "errors"

// ErrNotFound is returned when a requested person does not exist in the
// archive document.
var ErrNotFound = errors.New("person not found")

// ErrValidation is returned when an edit is rejected before any write.
var ErrValidation = errors.New("validation failed")
