package redisfeed

import "errors"

var (
	// ErrDecode is returned for payloads that are not a named event.
	ErrDecode = errors.New("decode event")
	// ErrConnect is returned when redis cannot be reached.
	ErrConnect = errors.New("connect redis")
)
