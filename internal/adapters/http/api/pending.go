package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/tradesync/internal/domain/model"
)

// PendingStore records and cancels pending actions.
type PendingStore interface {
	PutPending(key model.PendingKey, status model.PendingStatus, data any)
	RemovePending(key model.PendingKey) bool
}

// PendingHandler handles pending-action requests.
type PendingHandler struct {
	store PendingStore
}

// NewPendingHandler creates a new pending handler.
func NewPendingHandler(store PendingStore) *PendingHandler {
	return &PendingHandler{store: store}
}

// pendingRequest creates or updates a pending action. A PLACE_ORDER
// without resource_id is keyed by its order parameters.
type pendingRequest struct {
	ResourceID string      `json:"resource_id"`
	Kind       string      `json:"kind"`
	Status     string      `json:"status"`
	Data       any         `json:"data"`
	Amount     json.Number `json:"amount"`
	Price      json.Number `json:"price"`
	Outcome    json.Number `json:"outcome"`
	Market     string      `json:"market"`
}

func (p pendingRequest) key() (model.PendingKey, error) {
	kind, ok := model.ParsePendingKind(strings.TrimSpace(p.Kind))
	if !ok {
		return model.PendingKey{}, errors.New("unknown kind " + p.Kind)
	}
	id := strings.TrimSpace(p.ResourceID)
	if id == "" && kind == model.PlaceOrder {
		ord, found := model.OrderKeyFromEvent(model.Event{Fields: map[string]any{
			model.FieldAmount:  p.Amount,
			model.FieldPrice:   p.Price,
			model.FieldOutcome: p.Outcome,
			model.FieldMarket:  p.Market,
		}})
		if !found || p.Market == "" {
			return model.PendingKey{}, errors.New("order requires amount, price, outcome and market")
		}
		id = ord.String()
	}
	if id == "" {
		return model.PendingKey{}, errors.New("missing resource_id")
	}
	return model.PendingKey{ResourceID: id, Kind: kind}, nil
}

type pendingResponse struct {
	Key     model.PendingKey    `json:"key"`
	Status  model.PendingStatus `json:"status,omitempty"`
	Removed bool                `json:"removed,omitempty"`
}

// HandlePending handles POST and DELETE /pending.
func (h *PendingHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	const op = "api.pending"
	switch r.Method {
	case http.MethodPost:
		var req pendingRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		key, err := req.key()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		status, ok := model.ParsePendingStatus(req.Status)
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("unknown status "+req.Status)))
			return
		}
		h.store.PutPending(key, status, req.Data)
		writeJSON(w, http.StatusOK, pendingResponse{Key: key, Status: status})

	case http.MethodDelete:
		q := r.URL.Query()
		kind, ok := model.ParsePendingKind(q.Get("kind"))
		id := q.Get("resource_id")
		if !ok || id == "" {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		key := model.PendingKey{ResourceID: id, Kind: kind}
		if !h.store.RemovePending(key) {
			writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
			return
		}
		writeJSON(w, http.StatusOK, pendingResponse{Key: key, Removed: true})

	default:
		http.NotFound(w, r)
	}
}
