// Package chaintypes holds the value types shared by the submission,
// confirmation, and event-lookup components: addresses, hashes, wei
// amounts, nonces, and the request/receipt/event records that flow between
// them and the backend.
package chaintypes

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte account identifier. The zero value, AddressEmpty,
// is the sentinel used for "this transaction creates a contract."
type Address struct {
	inner common.Address
}

// AddressEmpty is the contract-creation sentinel.
var AddressEmpty = Address{}

// NewAddress wraps a go-ethereum address.
func NewAddress(a common.Address) Address { return Address{inner: a} }

// AddressFromHex parses a 0x-prefixed or bare hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	if !isHexAddress(s) {
		return Address{}, fmt.Errorf("chaintypes: %q is not a valid address", s)
	}
	b, err := fromHex(s)
	if err != nil {
		return Address{}, err
	}
	return Address{inner: common.BytesToAddress(b)}, nil
}

// Common returns the underlying go-ethereum address.
func (a Address) Common() common.Address { return a.inner }

// IsEmpty reports whether this is the contract-creation sentinel.
func (a Address) IsEmpty() bool { return a == AddressEmpty }

// Hex returns the canonical 0x-prefixed hex representation.
func (a Address) Hex() string { return a.inner.Hex() }

func (a Address) String() string { return a.Hex() }

func isHexAddress(s string) bool {
	if len(s) == 2+2*common.AddressLength && isHex(s) {
		return true
	}
	return len(s) == 2*common.AddressLength && isHex("0x"+s)
}

func isHex(s string) bool {
	l := len(s)
	return l >= 4 && l%2 == 0 && (s[0:2] == "0x" || s[0:2] == "0X")
}

func fromHex(s string) ([]byte, error) {
	if len(s) > 1 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}
