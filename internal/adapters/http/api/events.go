package api

import (
	"errors"
	"net/http"

	"github.com/okian/tradesync/internal/domain/model"
)

// EventPublisher hands events to the Event Source.
type EventPublisher interface {
	Publish(ev model.Event) int
}

// EventsHandler handles event requests.
type EventsHandler struct {
	pub EventPublisher
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(pub EventPublisher) *EventsHandler {
	return &EventsHandler{pub: pub}
}

type publishResponse struct {
	Status    string `json:"status"`
	Listeners int    `json:"listeners"`
}

// HandlePostEvent handles POST /events requests. The body is a decoded
// event as emitted by the chain-log decoder.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var ev model.Event
	if err := decodeBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if ev.Name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing name")))
		return
	}

	n := h.pub.Publish(ev)
	writeJSON(w, http.StatusAccepted, publishResponse{Status: "accepted", Listeners: n})
}
