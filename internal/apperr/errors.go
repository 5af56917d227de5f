// Package apperr holds the sentinel errors shared across mdpad layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotText       = errors.New("content is not valid UTF-8 text")
)
