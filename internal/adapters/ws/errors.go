package ws

import "errors"

var (
	// ErrProtocol marks an inbound frame that is not a valid request envelope.
	ErrProtocol = errors.New("protocol error")
	// ErrTransport marks a connection-level failure.
	ErrTransport = errors.New("transport error")
)
