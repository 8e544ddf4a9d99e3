package chaintypes

import "github.com/ethereum/go-ethereum/common"

// Hash is a 32-byte transaction or block identifier.
type Hash struct {
	inner common.Hash
}

// HashEmpty is the zero hash.
var HashEmpty = Hash{}

// NewHash wraps a go-ethereum hash.
func NewHash(h common.Hash) Hash { return Hash{inner: h} }

// Common returns the underlying go-ethereum hash.
func (h Hash) Common() common.Hash { return h.inner }

func (h Hash) Hex() string { return h.inner.Hex() }

func (h Hash) String() string { return h.Hex() }

// IsEmpty reports whether this is the zero hash.
func (h Hash) IsEmpty() bool { return h == HashEmpty }
