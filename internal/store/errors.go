package store

import (
	"errors"
	"strings"
)

// Sentinel errors surfaced to callers. Handlers map these onto HTTP
// status codes; everything else is treated as an internal failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("invalid value")
)

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure on insert or rename.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
