package ws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tradesync/internal/domain/model"
	"github.com/okian/tradesync/internal/domain/subscription"
	"github.com/okian/tradesync/pkg/logger"
	"github.com/okian/tradesync/pkg/metrics"
	"github.com/sourcegraph/conc"
)

// conn owns one socket. Reads happen on the serving goroutine, writes on
// the write pump only.
type conn struct {
	srv      *Server
	ws       *websocket.Conn
	registry *subscription.Registry
	log      logger.Logger

	send     chan []byte
	done     chan struct{}
	pumpDone chan struct{}
	inflight conc.WaitGroup
}

func newConn(s *Server, wsConn *websocket.Conn) *conn {
	return &conn{
		srv:      s,
		ws:       wsConn,
		registry: subscription.New(s.source, subscription.WithSupportedEvents(s.supported...)),
		log:      s.log.Named("conn"),
		send:     make(chan []byte, s.sendBuffer),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

func (c *conn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	go c.writePump(ctx)
	c.readLoop(ctx)

	cancel()
	c.registry.CloseAll()
	if r := c.inflight.WaitAndRecover(); r != nil {
		c.log.Error(ctx, "dispatch panicked", logger.Error(r.AsError()))
	}
	close(c.done)
	<-c.pumpDone
	_ = c.ws.Close()
}

func (c *conn) readLoop(ctx context.Context) {
	pongWait := 2 * c.srv.pingInterval
	c.ws.SetReadLimit(c.srv.readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn(ctx, "connection read failed", logger.Error(fmt.Errorf("%w: %w", ErrTransport, err)))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(ctx, data)
	}
}

func (c *conn) writePump(ctx context.Context) {
	defer close(c.pumpDone)
	ticker := time.NewTicker(c.srv.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.fail(ctx, err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.fail(ctx, err)
				return
			}
		}
	}
}

// fail closes the socket so the read loop returns and runs teardown.
func (c *conn) fail(ctx context.Context, err error) {
	c.log.Warn(ctx, "connection write failed", logger.Error(fmt.Errorf("%w: %w", ErrTransport, err)))
	_ = c.ws.Close()
}

// reply queues a response without blocking. A full buffer drops the frame.
func (c *conn) reply(ctx context.Context, id, result any) {
	frame, err := encodeResponse(id, result)
	if err != nil {
		c.log.Error(ctx, "encode response failed", logger.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- frame:
	default:
		metrics.RecordWSDroppedFrame()
		c.log.Warn(ctx, "send buffer full, dropping frame")
	}
}

func (c *conn) handle(ctx context.Context, data []byte) {
	req, params, err := decodeRequest(data)
	if err != nil {
		metrics.RecordWSProtocolError()
		c.log.Warn(ctx, "dropping malformed message", logger.Error(err))
		return
	}
	metrics.RecordWSMessage(req.Method)

	switch req.Method {
	case MethodSubscribe:
		c.subscribe(ctx, req, params)
	case MethodUnsubscribe:
		c.registry.Unsubscribe(params[0].(string))
		c.reply(ctx, req.ID, true)
	default:
		c.inflight.Go(func() { c.dispatch(ctx, req, params) })
	}
}

func (c *conn) subscribe(ctx context.Context, req Request, params []any) {
	name := model.EventName(params[0].(string))
	id, err := c.registry.Subscribe(name, params[1:], func(subID string, ev model.Event) {
		c.reply(ctx, req.ID, Delivery{Subscription: subID, Result: ev})
	})
	switch {
	case errors.Is(err, subscription.ErrUnsupportedEvent):
		c.log.Info(ctx, "unsupported subscription", logger.String("event", string(name)))
		c.reply(ctx, req.ID, false)
	case err != nil:
		c.log.Error(ctx, "subscribe failed", logger.String("event", string(name)), logger.Error(err))
	default:
		c.reply(ctx, req.ID, SubscriptionAck{Subscription: id})
	}
}

func (c *conn) dispatch(ctx context.Context, req Request, params []any) {
	res, err := c.srv.dispatcher.Dispatch(ctx, req.Method, params)
	if err != nil {
		c.log.Error(ctx, "dispatch failed", logger.String("method", req.Method), logger.Error(err))
		return
	}
	c.reply(ctx, req.ID, res)
}
