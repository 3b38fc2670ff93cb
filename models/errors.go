package models

import "errors"

var (
	// ErrValidation marks input rejected before reaching the database.
	ErrValidation = errors.New("validation error")
	// ErrStorage wraps any failure reported by the database.
	ErrStorage = errors.New("storage error")
)
