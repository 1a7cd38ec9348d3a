package app

import "errors"

// ErrNotFound and related errors describe store and engine failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidStatus = errors.New("invalid status")
)
