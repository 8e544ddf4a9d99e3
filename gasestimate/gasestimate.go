// Package gasestimate provides the gas-estimation helper spec.md §4.4
// co-locates with the Confirmation Waiter: a creation-aware padded
// estimate, and a periodically refreshed gas price cache so callers get a
// timely value without hitting the backend on every send.
//
// Grounded on monetha's gasestimator package: GasLimitEstimator wraps
// EstimateGas the same way gasestimator.GasLimitEstimator wraps
// ContractTransactor.EstimateGas, and GasPriceEstimator reuses its
// cached-with-background-refresh shape (gaspriceestimator.go) rather than
// calling SuggestGasPrice synchronously on every transaction.
package gasestimate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
)

// CreationPad and UniversalPad are the safety margins spec.md §4.4 fixes as
// part of the observable contract: CreationPad accounts for
// contract-creation-code overhead, UniversalPad is a pessimistic pad
// applied to every estimate regardless of destination.
const (
	CreationPad  = 15_000
	UniversalPad = 200_000
)

// Limit returns backend.EstimateGas(account, to, value, data), padded per
// spec.md §4.4's formula: + CreationPad if to is the contract-creation
// sentinel, plus UniversalPad unconditionally.
func Limit(ctx context.Context, b backend.Backend, account, to chaintypes.Address, value chaintypes.Value, data []byte) (uint64, error) {
	raw, err := b.EstimateGas(ctx, account, to, value, data)
	if err != nil {
		return 0, fmt.Errorf("gasestimate: estimate gas: %w", err)
	}
	estimate := raw + UniversalPad
	if to.IsEmpty() {
		estimate += CreationPad
	}
	return estimate, nil
}

// PriceEstimator caches the backend's suggested gas price and refreshes it
// on an interval in the background, so SuggestGasPrice never blocks on an
// RPC round trip.
type PriceEstimator struct {
	b        backend.Backend
	interval time.Duration

	mu    sync.RWMutex
	price chaintypes.Value

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// NewPriceEstimator fetches an initial gas price from b and starts the
// background refresh loop.
func NewPriceEstimator(ctx context.Context, b backend.Backend, interval time.Duration) (*PriceEstimator, error) {
	price, err := b.GetGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gasestimate: initial gas price: %w", err)
	}
	if interval <= 0 {
		interval = 4 * time.Second
	}
	e := &PriceEstimator{b: b, interval: interval, price: price, closed: make(chan struct{})}
	e.wg.Add(1)
	go e.run()
	return e, nil
}

// SuggestGasPrice returns the most recently cached gas price.
func (e *PriceEstimator) SuggestGasPrice() chaintypes.Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.price
}

// Close stops the background refresh loop.
func (e *PriceEstimator) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.wg.Wait()
	})
}

func (e *PriceEstimator) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.closed:
			return
		case <-time.After(e.interval):
		}

		price, err := e.b.GetGasPrice(context.Background())
		if err != nil {
			slog.Warn("gasestimate: refresh gas price failed", "error", err)
			continue
		}
		e.mu.Lock()
		e.price = price
		e.mu.Unlock()
	}
}
