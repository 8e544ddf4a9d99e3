package chaintypes

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
)

// TransactionRequest is the immutable description of a transaction to
// submit: account, recipient, value, call data, and the gas parameters the
// caller already resolved. Two requests are equal only if every field
// matches; ContentHash is the stable identity used as the submission
// future map key, so it must be deterministic across equal requests and
// must not depend on map/slice iteration order.
type TransactionRequest struct {
	Account  Address
	To       Address // AddressEmpty means contract creation
	Value    Value
	Data     []byte
	GasLimit uint64
	GasPrice Value
}

// ContentHash returns a stable Keccak256 hash over every field, used as the
// submission future map key so that re-enqueueing an identical request is
// idempotent.
func (r TransactionRequest) ContentHash() Hash {
	var buf []byte
	buf = append(buf, r.Account.Common().Bytes()...)
	buf = append(buf, r.To.Common().Bytes()...)
	value := r.Value.inner.Bytes32()
	buf = append(buf, value[:]...)
	buf = append(buf, r.Data...)
	gl := make([]byte, 8)
	binary.BigEndian.PutUint64(gl, r.GasLimit)
	buf = append(buf, gl...)
	gasPrice := r.GasPrice.inner.Bytes32()
	buf = append(buf, gasPrice[:]...)
	return NewHash(crypto.Keccak256Hash(buf))
}

// IsCreation reports whether this request deploys a contract.
func (r TransactionRequest) IsCreation() bool { return r.To.IsEmpty() }

// EventData is a raw log entry: topics, data bytes, and the transaction
// that produced it. It is the unit SolidityEvent.Match/ParseEvent operate
// on, independent of how it was retrieved (live stream or historical
// query).
type EventData struct {
	Address     Address
	Topics      []Hash
	Data        []byte
	TxHash      Hash
	BlockHash   Hash
	BlockNumber uint64
	LogIndex    uint
	Removed     bool
}

// TransactionReceipt is the chain's record of a transaction's outcome.
type TransactionReceipt struct {
	Hash            Hash
	From            Address
	To              Address // empty iff creation
	ContractAddress Address // present iff creation
	IsSuccessful    bool
	Error           string
	BlockHash       Hash
	BlockNumber     uint64
	GasUsed         uint64
	Events          []EventData
}

// TransactionStatus is the lifecycle state of a submitted transaction as
// observed by the Confirmation Waiter.
type TransactionStatus int

const (
	StatusPending TransactionStatus = iota
	StatusExecuted
	StatusDropped
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusExecuted:
		return "Executed"
	case StatusDropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// TransactionInfo is a point-in-time status notification for a tracked
// transaction hash, as delivered by the Event Handler's transaction stream
// or returned by backend.getTransactionInfo.
type TransactionInfo struct {
	Hash      Hash
	Receipt   *TransactionReceipt
	Status    TransactionStatus
	BlockHash Hash
}

// BlockInfo is a single block's number together with the receipts it
// contains, as delivered by the Event Handler's block stream.
type BlockInfo struct {
	Number   uint64
	Hash     Hash
	Receipts []TransactionReceipt
}
