package ws

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Reserved methods handled by the subscription registry.
const (
	MethodSubscribe   = "subscribe"
	MethodUnsubscribe = "unsubscribe"
)

const jsonRPCVersion = "2.0"

// numeric ids are echoed back exactly as received.
var codec = sonic.Config{UseNumber: true}.Froze()

// Request is an inbound envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc,omitempty"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is an outbound envelope. Result is always present and may be null.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

// SubscriptionAck acknowledges a subscribe request.
type SubscriptionAck struct {
	Subscription string `json:"subscription"`
}

// Delivery carries one event on a subscription.
type Delivery struct {
	Subscription string `json:"subscription"`
	Result       any    `json:"result"`
}

// decodeRequest parses and validates one inbound frame. Absent params are
// treated as an empty list.
func decodeRequest(data []byte) (Request, []any, error) {
	var req Request
	if err := codec.Unmarshal(data, &req); err != nil {
		return Request{}, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if req.Method == "" {
		return Request{}, nil, fmt.Errorf("%w: missing method", ErrProtocol)
	}
	if req.ID == nil {
		return Request{}, nil, fmt.Errorf("%w: missing id", ErrProtocol)
	}

	var params []any
	switch p := req.Params.(type) {
	case nil:
	case []any:
		params = p
	default:
		return Request{}, nil, fmt.Errorf("%w: params must be an array", ErrProtocol)
	}

	if req.Method == MethodSubscribe || req.Method == MethodUnsubscribe {
		if len(params) == 0 {
			return Request{}, nil, fmt.Errorf("%w: %s requires a first param", ErrProtocol, req.Method)
		}
		if _, ok := params[0].(string); !ok {
			return Request{}, nil, fmt.Errorf("%w: %s first param must be a string", ErrProtocol, req.Method)
		}
	}
	return req, params, nil
}

func encodeResponse(id, result any) ([]byte, error) {
	return codec.Marshal(Response{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}
