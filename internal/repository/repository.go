package repository

import "errors"

var (
	// ErrNotFound lookup missed.
	ErrNotFound = errors.New("not found")
	// ErrConflict create collided with an existing record.
	ErrConflict = errors.New("already exists")
)
