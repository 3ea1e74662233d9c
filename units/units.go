// Package units holds the typed token-amount helpers test code denominates
// balances and quantities with.
package units

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/ethereum/go-ethereum/params"
)

// internal denomination factors
var (
	weiPerGWei = uint256.NewInt(params.GWei)
	weiPerEth  = uint256.NewInt(params.Ether)
	// raw units of the common test tokens, per whole token
	rawPerUsdc = uint256.NewInt(1_000_000)   // 6 decimals
	rawPerWbtc = uint256.NewInt(100_000_000) // 8 decimals
)

// Wei is a typed token-amount integer, expressed in the token's smallest
// raw unit. Methods return new values instead of mutating in place, to
// remove mutability foot-guns in test code. Not optimized for speed.
type Wei uint256.Int

// String prints the amount with a thousands separator and unit suffix:
// in ether when perfectly divisible by 1e18, in gwei when divisible by 1e9,
// in wei otherwise. No precision is ever hidden.
func (w Wei) String() string {
	v := (*uint256.Int)(&w)
	if v.Sign() == 0 {
		return "0 wei"
	}
	var quot, rem uint256.Int
	quot.DivMod(v, weiPerEth, &rem)
	if rem.Sign() == 0 {
		return quot.PrettyDec(',') + " ether"
	}
	quot.DivMod(v, weiPerGWei, &rem)
	if rem.Sign() == 0 {
		return quot.PrettyDec(',') + " gwei"
	}
	return v.PrettyDec(',') + " wei"
}

// Decimal returns the raw amount in decimal form.
func (w Wei) Decimal() string {
	return (*uint256.Int)(&w).String()
}

// Hex returns the raw amount in hexadecimal form with 0x prefix.
func (w Wei) Hex() string {
	return (*uint256.Int)(&w).Hex()
}

// ToBig converts to *big.Int, in raw units.
func (w Wei) ToBig() *big.Int {
	return (*uint256.Int)(&w).ToBig()
}

// ToU256 converts to *uint256.Int, in raw units. This returns a clone.
func (w Wei) ToU256() *uint256.Int {
	return (*uint256.Int)(&w).Clone()
}

// Bytes32 converts to [32]byte, as big-endian uint256.
func (w Wei) Bytes32() [32]byte {
	return (*uint256.Int)(&w).Bytes32()
}

// Add adds v and returns the result. Add panics on uint256 overflow.
func (w Wei) Add(v Wei) (out Wei) {
	var overflow bool
	out, overflow = w.AddOverflow(v)
	if overflow {
		panic(fmt.Errorf("add overflow: %s + %s", w, v))
	}
	return
}

// AddOverflow adds v, also returning whether the computation overflowed.
func (w Wei) AddOverflow(v Wei) (out Wei, overflow bool) {
	_, overflow = (*uint256.Int)(&out).AddOverflow((*uint256.Int)(&w), (*uint256.Int)(&v))
	return
}

// Sub subtracts v and returns the result. Sub panics on underflow.
func (w Wei) Sub(v Wei) (out Wei) {
	var underflow bool
	out, underflow = w.SubUnderflow(v)
	if underflow {
		panic(fmt.Errorf("sub underflow: %s - %s", w, v))
	}
	return
}

// SubUnderflow subtracts v, also returning whether the computation underflowed.
func (w Wei) SubUnderflow(v Wei) (out Wei, underflow bool) {
	_, underflow = (*uint256.Int)(&out).SubOverflow((*uint256.Int)(&w), (*uint256.Int)(&v))
	return
}

// Mul multiplies by the given scalar. Mul panics on uint256 overflow.
func (w Wei) Mul(scalar uint64) (out Wei) {
	var overflow bool
	_, overflow = (*uint256.Int)(&out).MulOverflow((*uint256.Int)(&w), uint256.NewInt(scalar))
	if overflow {
		panic(fmt.Errorf("mul overflow: %s * %d", w, scalar))
	}
	return
}

// Div returns the quotient w/denominator, rounded down.
// If denominator == 0, this returns 0.
func (w Wei) Div(denominator uint64) (out Wei) {
	(*uint256.Int)(&out).Div((*uint256.Int)(&w), uint256.NewInt(denominator))
	return
}

// Lt returns if this is less than the given value.
func (w Wei) Lt(v Wei) bool {
	return (*uint256.Int)(&w).Lt((*uint256.Int)(&v))
}

// Gt returns if this is greater than the given value.
func (w Wei) Gt(v Wei) bool {
	return (*uint256.Int)(&w).Gt((*uint256.Int)(&v))
}

// IsZero returns if this equals 0.
func (w Wei) IsZero() bool {
	return (*uint256.Int)(&w).IsZero()
}

// MarshalText marshals as a decimal number, without separators or unit.
func (w Wei) MarshalText() ([]byte, error) {
	return (*uint256.Int)(&w).MarshalText()
}

// UnmarshalText supports hexadecimal (0x prefix) and decimal.
func (w *Wei) UnmarshalText(data []byte) error {
	return (*uint256.Int)(w).UnmarshalText(data)
}

// UnmarshalJSON accepts quoted hexadecimal or decimal strings, and bare
// decimal numbers.
func (w *Wei) UnmarshalJSON(data []byte) error {
	return (*uint256.Int)(w).UnmarshalJSON(data)
}

// WeiU64 turns the given raw amount into a typed Wei value.
func WeiU64(wei uint64) (out Wei) {
	(*uint256.Int)(&out).SetUint64(wei)
	return
}

// WeiBig turns the given big.Int raw amount into a typed Wei value.
// This panics if the amount is negative or does not fit in 256 bits.
func WeiBig(wei *big.Int) (out Wei) {
	if wei == nil {
		panic("nil *big.Int input to Wei constructor")
	}
	if wei.Sign() < 0 {
		panic("negative amounts are not supported")
	}
	if (*uint256.Int)(&out).SetFromBig(wei) {
		panic("*big.Int input does not fit in uint256")
	}
	return
}

func scaled(n uint64, factor *uint256.Int) Wei {
	var x uint256.Int
	x.SetUint64(n)
	x.Mul(&x, factor)
	return Wei(x)
}

// Ether denominates the given amount of whole ether into wei (18 decimals).
func Ether(ether uint64) Wei {
	return scaled(ether, weiPerEth)
}

// GWei denominates the given amount of gwei into wei (9 decimals).
func GWei(gwei uint64) Wei {
	return scaled(gwei, weiPerGWei)
}

// Usdc denominates whole USDC into its 6-decimal raw unit.
func Usdc(usdc uint64) Wei {
	return scaled(usdc, rawPerUsdc)
}

// WBTC denominates whole WBTC into its 8-decimal raw unit (satoshi).
func WBTC(wbtc uint64) Wei {
	return scaled(wbtc, rawPerWbtc)
}

var (
	ZeroWei  = WeiU64(0)
	OneWei   = WeiU64(1)
	OneGWei  = GWei(1)
	OneEther = Ether(1)
	TenEther = Ether(10)
)
