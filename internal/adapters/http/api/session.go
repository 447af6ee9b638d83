package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/tradesync/internal/domain/model"
)

// SessionStore mutates the authoritative session.
type SessionStore interface {
	Session() model.Session
	SignIn(address string)
	SignOut()
	SetView(page model.Page, marketID string)
}

// SessionHandler handles sign-in, sign-out and view changes.
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

type signInRequest struct {
	Address string `json:"address"`
}

type viewRequest struct {
	Page   string `json:"page"`
	Market string `json:"market"`
}

// HandleSession handles GET, POST and DELETE /session.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.session"
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req signInRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		addr := strings.TrimSpace(req.Address)
		if addr == "" {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing address")))
			return
		}
		h.store.SignIn(addr)
	case http.MethodDelete:
		h.store.SignOut()
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Session())
}

// HandleView handles PUT /session/view.
func (h *SessionHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_view"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	var req viewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	page := model.ParsePage(req.Page)
	if page == model.PageNone && req.Page != "" && req.Page != string(model.PageNone) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("unknown page "+req.Page)))
		return
	}
	h.store.SetView(page, strings.TrimSpace(req.Market))
	writeJSON(w, http.StatusOK, h.store.Session())
}
