// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidRating = errors.New("invalid rating")
	ErrInvalidState  = errors.New("invalid card state")
	ErrInvalidTime   = errors.New("invalid answer time")
	ErrNothingToUndo = errors.New("nothing to undo")
)
