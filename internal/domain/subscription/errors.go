package subscription

import "errors"

// ErrUnsupportedEvent is returned when subscribing to an event outside the supported set.
var ErrUnsupportedEvent = errors.New("unsupported event")
