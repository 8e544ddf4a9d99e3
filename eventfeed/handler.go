// Package eventfeed implements the Event Handler boundary (spec.md §6): a
// long-lived publisher of block and transaction-status notifications that
// the Nonce Tracker and Confirmation Waiter subscribe to independently.
//
// Handler itself only holds the multicast plumbing, grounded on
// go-ethereum/event.Feed the same way the teacher's accounts.Manager fans
// wallet-update events out to many listeners: Subscribe gives each caller
// an independent, disposable channel instead of requiring the publisher to
// track consumers. Poller is the concrete producer that feeds it from a
// backend.Backend; tests drive a bare Handler directly via
// PublishBlock/PublishTransaction, the same seam backend.Fake uses.
package eventfeed

import (
	"sync/atomic"

	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/ethereum/go-ethereum/event"
)

// Handler is the shared implementation of backend.EventHandler. It is safe
// for concurrent use: PublishBlock/PublishTransaction may be called from a
// polling goroutine while ObserveBlocks/ObserveTransactions are called from
// any number of subscriber goroutines.
type Handler struct {
	txFeed    event.Feed
	blockFeed event.Feed

	blockNumber atomic.Uint64

	ready     chan struct{}
	readyOnce atomic.Bool
}

// New returns a Handler with no blocks observed yet.
func New() *Handler {
	return &Handler{ready: make(chan struct{})}
}

// Ready completes when the handler has published at least one block,
// matching the consumed Event Handler contract used to delay first
// submission (spec.md §6) until the handler is actually receiving blocks.
func (h *Handler) Ready() <-chan struct{} { return h.ready }

// CurrentBlockNumber returns the highest block number observed so far.
func (h *Handler) CurrentBlockNumber() uint64 { return h.blockNumber.Load() }

// ObserveTransactions returns a buffered subscription channel for
// transaction-status notifications and a cancel function the caller must
// invoke when done to release the subscription. The channel buffers up to
// 256 notifications; once a subscriber's buffer is full, PublishTransaction
// blocks until that subscriber reads or unsubscribes. Nothing is dropped,
// and the buffer does not grow past 256. Unsubscribing does not close the
// channel.
func (h *Handler) ObserveTransactions() (<-chan chaintypes.TransactionInfo, func()) {
	ch := make(chan chaintypes.TransactionInfo, 256)
	sub := h.txFeed.Subscribe(ch)
	return ch, sub.Unsubscribe
}

// ObserveBlocks mirrors ObserveTransactions for block notifications.
func (h *Handler) ObserveBlocks() (<-chan chaintypes.BlockInfo, func()) {
	ch := make(chan chaintypes.BlockInfo, 64)
	sub := h.blockFeed.Subscribe(ch)
	return ch, sub.Unsubscribe
}

// PublishTransaction broadcasts a transaction-status notification to every
// current ObserveTransactions subscriber. It returns once every subscriber's
// channel has accepted the value (event.Feed.Send), so a subscriber with a
// full buffer stalls the publisher until it reads or unsubscribes.
func (h *Handler) PublishTransaction(info chaintypes.TransactionInfo) {
	h.txFeed.Send(info)
}

// PublishBlock broadcasts a new block to every ObserveBlocks subscriber and
// advances CurrentBlockNumber. The first call closes the Ready channel.
func (h *Handler) PublishBlock(block chaintypes.BlockInfo) {
	for {
		cur := h.blockNumber.Load()
		if block.Number <= cur {
			break
		}
		if h.blockNumber.CompareAndSwap(cur, block.Number) {
			break
		}
	}
	if h.readyOnce.CompareAndSwap(false, true) {
		close(h.ready)
	}
	h.blockFeed.Send(block)
}
