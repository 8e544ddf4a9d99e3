// Package noncetracker implements the Nonce Tracker (spec.md §4.2): the
// per-account next-nonce bookkeeping that keeps nonces monotonic while
// transactions submitted for an address are still in flight.
//
// Structurally this generalizes the teacher corpus's
// Eth.NewHandleNonceBackend pattern (monetha eth.go: wrap the backend,
// return PendingNonceAt as max(backend nonce, locally tracked nonce)) from
// "bump a counter after each send" to the spec's explicit
// backendNonce+pending-set-of-hashes model, combined with the
// per-address-counter-under-one-mutex idiom from the nonce-counter example.
package noncetracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
)

// Tracker maintains, for every address it has been asked about,
// nextNonce(A) = backendNonce(A) + |pending(A)|, per spec.md §3's
// invariant. All mutations are serialized under a single mutex ("nonceLock"
// in spec.md §5); reads of the derived next nonce observe a consistent
// (backendNonce, pendingSize) pair because they take the same lock.
type Tracker struct {
	b backend.Backend

	mu           sync.Mutex
	backendNonce map[chaintypes.Address]chaintypes.Nonce
	pending      map[chaintypes.Address]map[chaintypes.Hash]struct{}
	pendingOwner map[chaintypes.Hash]chaintypes.Address
}

// New returns a Tracker reading backend nonces lazily on first reference.
func New(b backend.Backend) *Tracker {
	return &Tracker{
		b:            b,
		backendNonce: make(map[chaintypes.Address]chaintypes.Nonce),
		pending:      make(map[chaintypes.Address]map[chaintypes.Hash]struct{}),
		pendingOwner: make(map[chaintypes.Hash]chaintypes.Address),
	}
}

// GetNonce returns the next nonce to use for addr: on first reference it
// fetches backendNonce from the node; every call after that returns
// backendNonce[addr] + len(pending[addr]) without hitting the backend
// again, per spec.md's invariant.
func (t *Tracker) GetNonce(ctx context.Context, addr chaintypes.Address) (chaintypes.Nonce, error) {
	t.mu.Lock()
	if _, seen := t.backendNonce[addr]; seen {
		n := t.derive(addr)
		t.mu.Unlock()
		return n, nil
	}
	t.mu.Unlock()

	n, err := t.b.GetNonce(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("noncetracker: get nonce for %s: %w", addr.Hex(), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Never let a concurrent refresh move backendNonce backwards; spec.md
	// §3 requires the observed value to never decrease.
	if cur, seen := t.backendNonce[addr]; !seen || n > cur {
		t.backendNonce[addr] = n
	}
	return t.derive(addr), nil
}

// derive must be called with mu held.
func (t *Tracker) derive(addr chaintypes.Address) chaintypes.Nonce {
	return t.backendNonce[addr].Add(uint32(len(t.pending[addr])))
}

// RecordPending inserts h into pending[addr], the step the Submission
// Serializer performs immediately after a successful backend.Submit.
func (t *Tracker) RecordPending(addr chaintypes.Address, h chaintypes.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.pending[addr]
	if !ok {
		set = make(map[chaintypes.Hash]struct{})
		t.pending[addr] = set
	}
	set[h] = struct{}{}
	t.pendingOwner[h] = addr
}

// OnMined removes the receipt's hash from pending[sender] and re-reads
// backendNonce[sender] from the backend, per spec.md §4.2.
func (t *Tracker) OnMined(ctx context.Context, receipt chaintypes.TransactionReceipt) error {
	return t.settle(ctx, receipt.Hash)
}

// OnDropped is OnMined's counterpart for a transaction the node discarded
// without inclusion.
func (t *Tracker) OnDropped(ctx context.Context, hash chaintypes.Hash) error {
	return t.settle(ctx, hash)
}

func (t *Tracker) settle(ctx context.Context, hash chaintypes.Hash) error {
	t.mu.Lock()
	addr, owned := t.pendingOwner[hash]
	if !owned {
		t.mu.Unlock()
		return nil
	}
	delete(t.pendingOwner, hash)
	if set, ok := t.pending[addr]; ok {
		delete(set, hash)
	}
	t.mu.Unlock()

	n, err := t.b.GetNonce(ctx, addr)
	if err != nil {
		return fmt.Errorf("noncetracker: refresh nonce for %s: %w", addr.Hex(), err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, seen := t.backendNonce[addr]; !seen || n > cur {
		t.backendNonce[addr] = n
	}
	return nil
}

// PendingCount reports |pending(addr)|, exposed for tests asserting the
// pending-set accounting invariant (spec.md §8, property 3).
func (t *Tracker) PendingCount(addr chaintypes.Address) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending[addr])
}

// Watch subscribes to handler's transaction stream and drives
// OnMined/OnDropped automatically as notifications arrive, so that callers
// don't have to thread every TransactionInfo through by hand. It runs until
// ctx is cancelled; the returned cancel function disposes the subscription
// early.
func (t *Tracker) Watch(ctx context.Context, handler backend.EventHandler) func() {
	ch, unsubscribe := handler.ObserveTransactions()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case info, ok := <-ch:
				if !ok {
					return
				}
				switch info.Status {
				case chaintypes.StatusExecuted:
					if info.Receipt != nil {
						_ = t.OnMined(ctx, *info.Receipt)
					}
				case chaintypes.StatusDropped:
					_ = t.OnDropped(ctx, info.Hash)
				}
			}
		}
	}()
	return func() {
		unsubscribe()
		close(stop)
		<-done
	}
}
