package chain

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"inputs": [{"name": "owner", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
	erc20ABIErr  error
)

func erc20() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

// PackBalanceOf encodes balanceOf(owner).
func PackBalanceOf(owner common.Address) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("balanceOf", owner)
}

// PackAllowance encodes allowance(owner, spender).
func PackAllowance(owner, spender common.Address) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("allowance", owner, spender)
}

func unpackUint(method string, data []byte) (*big.Int, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: unexpected output count %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, values[0])
	}
	return v, nil
}
