package reconcile

import "errors"

// Sentinel errors for the reconciliation engine.
var (
	// ErrHandler wraps any failure or panic raised by one event handler.
	ErrHandler = errors.New("event handler failed")
	// ErrIncompleteTaxonomy is returned when the handler table misses a known event name.
	ErrIncompleteTaxonomy = errors.New("handler table does not cover the event taxonomy")
	// ErrTask wraps failures of supervised secondary loads.
	ErrTask = errors.New("task failed")
)
