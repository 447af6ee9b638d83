package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	owner   = "0x52908400098527886E0F7030069857D2E4169EE7"
	token   = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	spender = "0xde709f2102306220921060314715629080e2fb77"
)

type fakeCaller struct {
	lastMsg ethereum.CallMsg
	out     *big.Int
	err     error
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.lastMsg = msg
	if f.err != nil {
		return nil, f.err
	}
	parsed, err := erc20()
	if err != nil {
		return nil, err
	}
	return parsed.Methods["balanceOf"].Outputs.Pack(f.out)
}

func (f *fakeCaller) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return f.out, f.err
}

func TestPacking(t *testing.T) {
	Convey("ERC-20 calls are packed with the standard selectors", t, func() {
		data, err := PackBalanceOf(common.HexToAddress(owner))
		So(err, ShouldBeNil)
		So(data, ShouldHaveLength, 4+32)
		So(hex.EncodeToString(data[:4]), ShouldEqual, "70a08231")

		data, err = PackAllowance(common.HexToAddress(owner), common.HexToAddress(spender))
		So(err, ShouldBeNil)
		So(data, ShouldHaveLength, 4+64)
		So(hex.EncodeToString(data[:4]), ShouldEqual, "dd62ed3e")
	})
}

func TestReader(t *testing.T) {
	Convey("Given a reader over a fake client", t, func() {
		fc := &fakeCaller{out: big.NewInt(42)}
		r := New(fc, WithToken(token), WithSpender(spender))
		ctx := context.Background()

		Convey("TokenBalance calls the token contract", func() {
			v, err := r.TokenBalance(ctx, owner)
			So(err, ShouldBeNil)
			So(v.Int64(), ShouldEqual, int64(42))
			So(*fc.lastMsg.To, ShouldEqual, common.HexToAddress(token))
		})

		Convey("Allowance decodes the result", func() {
			v, err := r.Allowance(ctx, owner)
			So(err, ShouldBeNil)
			So(v.Int64(), ShouldEqual, int64(42))
		})

		Convey("Call failures wrap ErrCall", func() {
			fc.err = errors.New("reverted")
			_, err := r.Allowance(ctx, owner)
			So(errors.Is(err, ErrCall), ShouldBeTrue)
		})
	})

	Convey("Without a client reads fail with ErrNoClient", t, func() {
		r := New(nil)
		_, err := r.Balance(context.Background(), owner)
		So(errors.Is(err, ErrNoClient), ShouldBeTrue)
		_, err = r.TokenBalance(context.Background(), owner)
		So(errors.Is(err, ErrNoClient), ShouldBeTrue)
	})

	Convey("Without a token, token reads fail with ErrNoToken", t, func() {
		r := New(&fakeCaller{out: big.NewInt(1)})
		_, err := r.TokenBalance(context.Background(), owner)
		So(errors.Is(err, ErrNoToken), ShouldBeTrue)
		v, err := r.Balance(context.Background(), owner)
		So(err, ShouldBeNil)
		So(v.Int64(), ShouldEqual, int64(1))
	})
}
