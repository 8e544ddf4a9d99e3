// Package backend defines the Node Backend boundary the core components
// call through: a gateway exposing raw submit/getNonce/estimateGas/getBlock
// operations. Building an actual node is out of scope; this package only
// states the interface and supplies two implementations callers can choose
// between, an ethclient-backed adapter for production and an in-memory fake
// for tests.
package backend

import (
	"context"

	"github.com/chainflow-labs/ethproxy/chaintypes"
)

// EventHandler is the long-lived publisher of block and transaction-status
// notifications that Backend.Register attaches to the node's own
// notification source. It is defined here, not in package eventfeed, so
// that Backend can reference it without an import cycle; package eventfeed
// supplies the concrete implementation.
type EventHandler interface {
	Ready() <-chan struct{}
	ObserveTransactions() (<-chan chaintypes.TransactionInfo, func())
	ObserveBlocks() (<-chan chaintypes.BlockInfo, func())
	CurrentBlockNumber() uint64
}

// Backend is the Node Backend interface consumed by the Submission
// Serializer, Nonce Tracker, Confirmation Waiter, and Event Lookup
// components.
type Backend interface {
	// Submit synchronously sends a transaction already assigned nonce and
	// returns the canonical hash the node will use to track it.
	Submit(ctx context.Context, req chaintypes.TransactionRequest, nonce chaintypes.Nonce) (chaintypes.Hash, error)

	GetNonce(ctx context.Context, addr chaintypes.Address) (chaintypes.Nonce, error)
	EstimateGas(ctx context.Context, account, to chaintypes.Address, value chaintypes.Value, data []byte) (uint64, error)
	GetGasPrice(ctx context.Context) (chaintypes.Value, error)
	GetBalance(ctx context.Context, addr chaintypes.Address) (chaintypes.Value, error)
	AddressExists(ctx context.Context, addr chaintypes.Address) (bool, error)
	GetCode(ctx context.Context, addr chaintypes.Address) ([]byte, error)

	// GetBlock returns nil, nil if the block is not (yet) known.
	GetBlock(ctx context.Context, number uint64) (*chaintypes.BlockInfo, error)
	// GetTransactionInfo returns nil, nil if the backend has no information
	// about the hash yet (neither pending, mined, nor dropped).
	GetTransactionInfo(ctx context.Context, hash chaintypes.Hash) (*chaintypes.TransactionInfo, error)

	// Register attaches an Event Handler to the backend's notification
	// source, e.g. by subscribing to newHeads/newPendingTransactions.
	Register(ctx context.Context, handler EventHandler) error
}
