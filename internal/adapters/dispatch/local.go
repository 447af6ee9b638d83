package dispatch

import (
	"context"
	"fmt"

	"github.com/okian/tradesync/internal/adapters/views"
	"github.com/okian/tradesync/internal/domain/model"
)

// Local method names.
const (
	MethodSyncStatus      = "getSyncStatus"
	MethodSession         = "getSession"
	MethodAlerts          = "getAlerts"
	MethodPendingActions  = "getPendingActions"
	MethodView            = "getView"
	MethodSupportedEvents = "getSupportedEvents"
)

// ChainState exposes the engine's chain head and fork state.
type ChainState interface {
	ChainHead() model.ChainHead
	Forking() (model.ForkingInfo, bool)
}

// Sessions exposes the current session.
type Sessions interface {
	Snapshot() model.Session
}

// AlertLister lists alerts, newest first.
type AlertLister interface {
	List() []model.Alert
}

// PendingLister lists pending actions, newest first.
type PendingLister interface {
	List() []model.PendingAction
}

// ViewReader reads cached views.
type ViewReader interface {
	Get(key string) (views.Entry, bool)
}

// Local groups the in-process state served by the local methods. Nil
// fields leave the corresponding method unregistered.
type Local struct {
	Chain     ChainState
	Sessions  Sessions
	Alerts    AlertLister
	Pending   PendingLister
	Views     ViewReader
	Supported []model.EventName
}

// SyncStatus is the result of getSyncStatus.
type SyncStatus struct {
	model.ChainHead
	Forking     bool               `json:"forking"`
	ForkingInfo *model.ForkingInfo `json:"forking_info,omitempty"`
}

// RegisterLocal adds the methods backed by in-process state.
func RegisterLocal(d *Dispatcher, l Local) {
	if l.Chain != nil {
		d.Register(MethodSyncStatus, func(context.Context, []any) (any, error) {
			st := SyncStatus{ChainHead: l.Chain.ChainHead()}
			if f, ok := l.Chain.Forking(); ok {
				st.Forking = true
				st.ForkingInfo = &f
			}
			return st, nil
		})
	}
	if l.Sessions != nil {
		d.Register(MethodSession, func(context.Context, []any) (any, error) {
			return l.Sessions.Snapshot(), nil
		})
	}
	if l.Alerts != nil {
		d.Register(MethodAlerts, func(context.Context, []any) (any, error) {
			return l.Alerts.List(), nil
		})
	}
	if l.Pending != nil {
		d.Register(MethodPendingActions, func(context.Context, []any) (any, error) {
			return l.Pending.List(), nil
		})
	}
	if l.Views != nil {
		d.Register(MethodView, func(_ context.Context, params []any) (any, error) {
			obj, err := ObjectParam(params)
			if err != nil {
				return nil, err
			}
			key, _ := obj["key"].(string)
			if key == "" {
				return nil, fmt.Errorf("%w: key is required", ErrInvalidParams)
			}
			e, ok := l.Views.Get(key)
			if !ok {
				return nil, nil
			}
			return e, nil
		})
	}
	supported := append([]model.EventName(nil), l.Supported...)
	d.Register(MethodSupportedEvents, func(context.Context, []any) (any, error) {
		return supported, nil
	})
}
