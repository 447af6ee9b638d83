package dispatch

import "errors"

var (
	// ErrUnknownMethod is returned when no method is registered under the name.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrDispatch wraps failures of a registered method.
	ErrDispatch = errors.New("dispatch failed")
	// ErrInvalidParams is returned when params cannot be read.
	ErrInvalidParams = errors.New("invalid params")
)
