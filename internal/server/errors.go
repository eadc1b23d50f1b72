package server

import "errors"

var (
	// ErrMissingFile is returned when the multipart form has no "file" field.
	ErrMissingFile = errors.New("missing file field")

	// ErrInvalidUpload is returned for oversized or malformed multipart bodies.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrPathNotAllowed is returned when a download or output path is outside
	// every allowed directory.
	ErrPathNotAllowed = errors.New("path is not in an allowed directory")
)
