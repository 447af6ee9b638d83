package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/tradesync/internal/adapters/mq/broadcast"
	"github.com/okian/tradesync/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDispatcher struct{}

func (fakeDispatcher) Dispatch(ctx context.Context, method string, params []any) (any, error) {
	switch method {
	case "getSyncStatus":
		return map[string]any{"block": 10}, nil
	case "getNothing":
		return nil, nil
	default:
		return nil, errors.New("unknown method")
	}
}

type harness struct {
	bus  *broadcast.Broadcaster
	srv  *Server
	http *httptest.Server
}

func newHarness() *harness {
	bus := broadcast.New()
	srv := NewServer(bus, fakeDispatcher{}, WithPingInterval(time.Second))
	return &harness{bus: bus, srv: srv, http: httptest.NewServer(srv)}
}

func (h *harness) dial() (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(h.http.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	return c, err
}

func (h *harness) close() {
	h.srv.Close()
	h.http.Close()
}

func readJSON(c *websocket.Conn) (map[string]any, error) {
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	var out map[string]any
	err := c.ReadJSON(&out)
	return out, err
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestServer(t *testing.T) {
	Convey("Given a connected client", t, func() {
		h := newHarness()
		defer h.close()

		c, err := h.dial()
		So(err, ShouldBeNil)
		defer c.Close()

		Convey("A supported subscription is acked and receives events", func() {
			So(c.WriteJSON(map[string]any{"id": 1, "method": "subscribe", "params": []any{"MarketCreated", "u1"}}), ShouldBeNil)
			ack, err := readJSON(c)
			So(err, ShouldBeNil)
			So(ack["id"], ShouldEqual, float64(1))
			result := ack["result"].(map[string]any)
			subID := result["subscription"].(string)
			So(subID, ShouldNotBeEmpty)
			So(h.bus.Count(model.MarketCreated), ShouldEqual, 1)

			h.bus.Publish(model.Event{Name: model.MarketCreated, Fields: map[string]any{"market": "m1"}})
			msg, err := readJSON(c)
			So(err, ShouldBeNil)
			delivery := msg["result"].(map[string]any)
			So(delivery["subscription"], ShouldEqual, subID)
			So(delivery["result"].(map[string]any)["name"], ShouldEqual, "MarketCreated")

			Convey("Unsubscribe stops deliveries and always answers true", func() {
				So(c.WriteJSON(map[string]any{"id": 2, "method": "unsubscribe", "params": []any{subID}}), ShouldBeNil)
				res, err := readJSON(c)
				So(err, ShouldBeNil)
				So(res["result"], ShouldEqual, true)
				So(h.bus.Count(model.MarketCreated), ShouldEqual, 0)

				So(c.WriteJSON(map[string]any{"id": 3, "method": "unsubscribe", "params": []any{subID}}), ShouldBeNil)
				res, err = readJSON(c)
				So(err, ShouldBeNil)
				So(res["result"], ShouldEqual, true)
			})
		})

		Convey("An unsupported subscription answers false and adds no listener", func() {
			So(c.WriteJSON(map[string]any{"id": "a", "method": "subscribe", "params": []any{"OrderFilled"}}), ShouldBeNil)
			res, err := readJSON(c)
			So(err, ShouldBeNil)
			So(res["id"], ShouldEqual, "a")
			So(res["result"], ShouldEqual, false)
			So(h.bus.Len(), ShouldEqual, 0)
		})

		Convey("Malformed messages and dispatch errors get no response", func() {
			So(c.WriteMessage(websocket.TextMessage, []byte(`{not json`)), ShouldBeNil)
			So(c.WriteJSON(map[string]any{"method": "getSyncStatus"}), ShouldBeNil)
			So(c.WriteJSON(map[string]any{"id": 4, "method": "subscribe", "params": "MarketCreated"}), ShouldBeNil)
			So(c.WriteJSON(map[string]any{"id": 5, "method": "getBroken"}), ShouldBeNil)
			So(c.WriteJSON(map[string]any{"id": 6, "method": "getSyncStatus", "params": []any{}}), ShouldBeNil)

			res, err := readJSON(c)
			So(err, ShouldBeNil)
			So(res["id"], ShouldEqual, float64(6))
			So(res["result"].(map[string]any)["block"], ShouldEqual, float64(10))
		})

		Convey("A nil dispatch result is sent as null", func() {
			So(c.WriteJSON(map[string]any{"id": 7, "method": "getNothing"}), ShouldBeNil)
			res, err := readJSON(c)
			So(err, ShouldBeNil)
			v, ok := res["result"]
			So(ok, ShouldBeTrue)
			So(v, ShouldBeNil)
		})

		Convey("Closing the connection removes every listener", func() {
			for i := 0; i < 3; i++ {
				So(c.WriteJSON(map[string]any{"id": i, "method": "subscribe", "params": []any{"MarketCreated"}}), ShouldBeNil)
				_, err := readJSON(c)
				So(err, ShouldBeNil)
			}
			So(h.bus.Len(), ShouldEqual, 3)

			_ = c.Close()
			So(waitFor(func() bool { return h.bus.Len() == 0 && h.srv.Connections() == 0 }), ShouldBeTrue)
		})
	})
}

func TestDecodeRequest(t *testing.T) {
	Convey("decodeRequest validates envelopes", t, func() {
		_, params, err := decodeRequest([]byte(`{"jsonrpc":"2.0","id":1,"method":"getMarkets","params":[{"universe":"u1"}]}`))
		So(err, ShouldBeNil)
		So(params, ShouldHaveLength, 1)

		_, params, err = decodeRequest([]byte(`{"id":1,"method":"getSession"}`))
		So(err, ShouldBeNil)
		So(params, ShouldBeEmpty)

		for _, bad := range []string{
			`[]`,
			`{"id":1}`,
			`{"method":"x"}`,
			`{"id":1,"method":"x","params":{}}`,
			`{"id":1,"method":"subscribe","params":[]}`,
			`{"id":1,"method":"unsubscribe","params":[5]}`,
		} {
			_, _, err := decodeRequest([]byte(bad))
			So(errors.Is(err, ErrProtocol), ShouldBeTrue)
		}
	})
}
