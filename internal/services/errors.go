package services

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound also covers callers who are not allowed to see the resource.
	ErrNotFound = errors.New("not found")
	// ErrConflict means someone already acted on the resource.
	ErrConflict = errors.New("conflict")
	// ErrForbidden is for visible resources the caller may not act on.
	ErrForbidden = errors.New("forbidden")
)
