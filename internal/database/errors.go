package database

import "errors"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is false
// and the database file does not exist.
var ErrDatabaseNotFound = errors.New("history database not found")
