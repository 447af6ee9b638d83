// Package chain reads account state from an Ethereum JSON-RPC endpoint.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Caller is the subset of ethclient.Client the reader needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
}

// Reader answers balance and allowance reads for the trading token.
type Reader struct {
	client  Caller
	rpc     *rpc.Client
	token   common.Address
	spender common.Address
}

// Option configures a Reader.
type Option func(*Reader)

// WithToken sets the ERC-20 used for trading.
func WithToken(addr string) Option {
	return func(r *Reader) {
		if common.IsHexAddress(addr) {
			r.token = common.HexToAddress(addr)
		}
	}
}

// WithSpender sets the contract whose allowance is checked.
func WithSpender(addr string) Option {
	return func(r *Reader) {
		if common.IsHexAddress(addr) {
			r.spender = common.HexToAddress(addr)
		}
	}
}

// New wraps an existing client. A nil client yields ErrNoClient on reads.
func New(client Caller, opts ...Option) *Reader {
	r := &Reader{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to rpcURL.
func Dial(ctx context.Context, rpcURL string, opts ...Option) (*Reader, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	r := New(ethclient.NewClient(rpcClient), opts...)
	r.rpc = rpcClient
	return r, nil
}

// Close closes the underlying RPC client.
func (r *Reader) Close() {
	if r.rpc != nil {
		r.rpc.Close()
	}
}

// Balance returns the native balance of account at the latest block.
func (r *Reader) Balance(ctx context.Context, account string) (*big.Int, error) {
	if r.client == nil {
		return nil, ErrNoClient
	}
	bal, err := r.client.BalanceAt(ctx, common.HexToAddress(account), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: balance: %w", ErrCall, err)
	}
	return bal, nil
}

// TokenBalance returns the trading-token balance of account.
func (r *Reader) TokenBalance(ctx context.Context, account string) (*big.Int, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	data, err := PackBalanceOf(common.HexToAddress(account))
	if err != nil {
		return nil, err
	}
	return r.call(ctx, "balanceOf", data)
}

// Allowance returns how much of the trading token the spender may move
// on behalf of account.
func (r *Reader) Allowance(ctx context.Context, account string) (*big.Int, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	data, err := PackAllowance(common.HexToAddress(account), r.spender)
	if err != nil {
		return nil, err
	}
	return r.call(ctx, "allowance", data)
}

func (r *Reader) ready() error {
	if r.client == nil {
		return ErrNoClient
	}
	if r.token == (common.Address{}) {
		return ErrNoToken
	}
	return nil
}

func (r *Reader) call(ctx context.Context, method string, data []byte) (*big.Int, error) {
	token := r.token
	resp, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCall, method, err)
	}
	v, err := unpackUint(method, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCall, method, err)
	}
	return v, nil
}
