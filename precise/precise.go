// Package precise mirrors the protocol's 18-decimal fixed-point arithmetic,
// so test assertions can recompute expected on-chain values off-chain.
package precise

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("result does not fit in uint256")
	ErrDivisionByZero = errors.New("division by zero")
)

// one unit of precision: 10^18
var preciseUnit = uint256.NewInt(1_000_000_000_000_000_000)

// Unit returns the precise unit (10^18) as a fresh value.
func Unit() *uint256.Int {
	return preciseUnit.Clone()
}

// Mul returns a*b/10^18, rounded down. The intermediate product is computed
// at full width, so it only fails if the final result overflows.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulDivOverflow(a, b, preciseUnit)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulCeil returns a*b/10^18, rounded up.
func MulCeil(a, b *uint256.Int) (*uint256.Int, error) {
	out, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, b, preciseUnit)
	if !rem.IsZero() {
		if _, overflow := out.AddOverflow(out, uint256.NewInt(1)); overflow {
			return nil, ErrOverflow
		}
	}
	return out, nil
}

// Div returns a*10^18/b, rounded down. Division by zero is an error, never a
// silent zero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	out, overflow := new(uint256.Int).MulDivOverflow(a, preciseUnit, b)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// DivCeil returns a*10^18/b, rounded up.
func DivCeil(a, b *uint256.Int) (*uint256.Int, error) {
	out, err := Div(a, b)
	if err != nil {
		return nil, err
	}
	rem := new(uint256.Int).MulMod(a, preciseUnit, b)
	if !rem.IsZero() {
		if _, overflow := out.AddOverflow(out, uint256.NewInt(1)); overflow {
			return nil, ErrOverflow
		}
	}
	return out, nil
}
