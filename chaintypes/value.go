package chaintypes

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Value is an unsigned amount in wei (the smallest currency unit).
// Arithmetic saturates at the protocol maximum (2^256 - 1) rather than
// wrapping, since a wrapped balance would silently understate funds.
type Value struct {
	inner uint256.Int
}

// Zero is the additive identity, wei(0).
func Zero() Value { return Value{} }

// Wei constructs a Value from a uint64 amount.
func Wei(v uint64) Value {
	var z Value
	z.inner.SetUint64(v)
	return z
}

// WeiFromBig constructs a Value from a *big.Int, saturating if it exceeds
// the protocol maximum or clamping to zero if negative.
func WeiFromBig(v *big.Int) Value {
	var z Value
	if v == nil || v.Sign() < 0 {
		return z
	}
	overflow := z.inner.SetFromBig(v)
	if overflow {
		z.inner = *uint256.NewInt(0).Not(uint256.NewInt(0))
	}
	return z
}

// Big returns the value as a *big.Int, for interop with go-ethereum APIs
// that still speak big.Int (core/types, bind.TransactOpts, ...).
func (v Value) Big() *big.Int { return v.inner.ToBig() }

// Add returns v+other, saturating at the protocol maximum instead of
// overflowing.
func (v Value) Add(other Value) Value {
	var z Value
	_, overflow := z.inner.AddOverflow(&v.inner, &other.inner)
	if overflow {
		z.inner = *uint256.NewInt(0).Not(uint256.NewInt(0))
	}
	return z
}

// IsZero reports whether the value is wei(0).
func (v Value) IsZero() bool { return v.inner.IsZero() }

// Cmp compares two values the way big.Int.Cmp does.
func (v Value) Cmp(other Value) int { return v.inner.Cmp(&other.inner) }

func (v Value) String() string { return v.inner.Dec() }
