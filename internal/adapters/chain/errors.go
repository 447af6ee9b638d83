package chain

import "errors"

var (
	// ErrNoClient is returned when no RPC endpoint is configured.
	ErrNoClient = errors.New("chain client not configured")
	// ErrNoToken is returned for token reads without a token address.
	ErrNoToken = errors.New("trading token not configured")
	// ErrCall wraps failed contract calls.
	ErrCall = errors.New("contract call failed")
)
