package database

import "errors"

// Sentinel errors returned by Database implementations. Handlers map these
// onto HTTP status codes directly; neither one is ever a 500, since both
// describe something the caller can act on.
var (
	ErrNotFound = errors.New("database: not found")
	ErrConflict = errors.New("database: conflict")
)
