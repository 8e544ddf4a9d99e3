// Package submission implements the Submission Serializer (spec.md §4.3): a
// single-writer queue that assigns nonces and calls the backend, so that
// nonces assigned to one account stay monotonic no matter how many
// goroutines call Submit concurrently.
//
// Grounded on the single-goroutine serializer pattern in the
// somnia-agents submitter example: one channel, one consumer goroutine,
// a per-job result channel standing in for spec.md's "future". The bounded
// channel itself is the backpressure mechanism (non-blocking send via
// select/default), the same reject-fast shape as a bounded worker pool.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/chainflow-labs/ethproxy/noncetracker"
)

// DefaultQueueCapacity is the bounded queue size spec.md §4.3 specifies as
// "order 10^4".
const DefaultQueueCapacity = 10_000

// ErrBackpressureExceeded is returned by Submit when the internal queue is
// full; the caller enqueued faster than the single worker can drain.
var ErrBackpressureExceeded = errors.New("submission: backpressure exceeded")

// future is the per-request submission future: exactly one exists per live
// TransactionRequest identity (spec.md §3 invariant), created on enqueue and
// removed once it completes.
type future struct {
	done chan struct{}
	hash chaintypes.Hash
	err  error
}

func newFuture() *future { return &future{done: make(chan struct{})} }

func (f *future) complete(h chaintypes.Hash, err error) {
	f.hash, f.err = h, err
	close(f.done)
}

func (f *future) wait(ctx context.Context) (chaintypes.Hash, error) {
	select {
	case <-f.done:
		return f.hash, f.err
	case <-ctx.Done():
		return chaintypes.Hash{}, ctx.Err()
	}
}

type job struct {
	req chaintypes.TransactionRequest
	key chaintypes.Hash
	f   *future
}

// Serializer is the C3 component: it owns the single worker goroutine that
// drains submission jobs in FIFO order and is the only caller of
// backend.Submit.
type Serializer struct {
	b       backend.Backend
	nonces  *noncetracker.Tracker
	queue   chan job
	closed  chan struct{}
	closeWG sync.WaitGroup

	mu       sync.Mutex
	inFlight map[chaintypes.Hash]*future
}

// New returns a Serializer with the given backend, nonce tracker, and
// bounded queue capacity, and starts its single consumer goroutine.
func New(b backend.Backend, nonces *noncetracker.Tracker, capacity int) *Serializer {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	s := &Serializer{
		b:        b,
		nonces:   nonces,
		queue:    make(chan job, capacity),
		closed:   make(chan struct{}),
		inFlight: make(map[chaintypes.Hash]*future),
	}
	s.closeWG.Add(1)
	go s.run()
	return s
}

// Close closes the queue and waits for the worker goroutine to finish the
// jobs already queued and exit. A Submit call after Close panics on the
// closed queue.
func (s *Serializer) Close() {
	close(s.queue)
	s.closeWG.Wait()
}

// Submit enqueues req and returns the hash the backend assigns once the
// worker has submitted it; it does not wait for the transaction to be mined.
// If a future already exists for an equal request (same ContentHash), that
// future is returned instead of enqueuing a duplicate — spec.md §4.3's
// idempotent-enqueue contract, and the testable property "at most one
// submission per request" (spec.md §8, property 2).
func (s *Serializer) Submit(ctx context.Context, req chaintypes.TransactionRequest) (chaintypes.Hash, error) {
	key := req.ContentHash()

	s.mu.Lock()
	if f, ok := s.inFlight[key]; ok {
		s.mu.Unlock()
		return f.wait(ctx)
	}
	f := newFuture()
	s.inFlight[key] = f
	s.mu.Unlock()

	select {
	case s.queue <- job{req: req, key: key, f: f}:
	default:
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
		f.complete(chaintypes.Hash{}, ErrBackpressureExceeded)
		return chaintypes.Hash{}, ErrBackpressureExceeded
	}

	return f.wait(ctx)
}

func (s *Serializer) run() {
	defer s.closeWG.Done()
	ctx := context.Background()

	for j := range s.queue {
		hash, err := s.process(ctx, j.req)

		s.mu.Lock()
		delete(s.inFlight, j.key)
		s.mu.Unlock()

		if err != nil {
			slog.Error("submission: submit failed", "account", j.req.Account.Hex(), "error", err)
			j.f.complete(chaintypes.Hash{}, err)
			continue
		}
		slog.Info("submission: submitted", "account", j.req.Account.Hex(), "hash", hash.Hex())
		j.f.complete(hash, nil)
	}
}

// process is steps 2-4 of spec.md §4.3's worker contract (run completes the
// future and removes it from inFlight afterwards), executed under
// the implicit "submissionLock" — there is exactly one worker goroutine, so
// nonce assignment and the pending-set update are already atomic with
// respect to backend.Submit without an explicit mutex.
func (s *Serializer) process(ctx context.Context, req chaintypes.TransactionRequest) (chaintypes.Hash, error) {
	nonce, err := s.nonces.GetNonce(ctx, req.Account)
	if err != nil {
		return chaintypes.Hash{}, fmt.Errorf("submission: %w", err)
	}

	hash, err := s.b.Submit(ctx, req, nonce)
	if err != nil {
		return chaintypes.Hash{}, fmt.Errorf("submission: backend submit: %w", err)
	}

	s.nonces.RecordPending(req.Account, hash)
	return hash, nil
}
