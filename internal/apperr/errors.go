// Package apperr holds the sentinel errors shared by the API surfaces.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
)
