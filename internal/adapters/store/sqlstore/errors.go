package sqlstore

import "errors"

var (
	// ErrUnknownQuery is returned for a method with no registered query.
	ErrUnknownQuery = errors.New("unknown query")
	// ErrQuery wraps driver failures.
	ErrQuery = errors.New("query failed")
	// ErrOpen is returned when the database cannot be reached.
	ErrOpen = errors.New("open database")
)
