package submission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/chainflow-labs/ethproxy/noncetracker"
)

func mustAddr(t *testing.T, hex string) chaintypes.Address {
	t.Helper()
	a, err := chaintypes.AddressFromHex(hex)
	if err != nil {
		t.Fatalf("address from hex: %v", err)
	}
	return a
}

// TestNonceMonotonicityS1 is the happy path (spec.md §8 S1 / property 1):
// N requests submitted one after another for one account each reach
// backend.Submit, and the tracker's next nonce advances from backendNonce to
// backendNonce+N.
func TestNonceMonotonicityS1(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 7)

	nonces := noncetracker.New(b)
	s := New(b, nonces, 0)
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		req := chaintypes.TransactionRequest{Account: acct, To: mustAddr(t, "0x00000000000000000000000000000000000b0b"), Value: chaintypes.Wei(uint64(i))}
		if _, err := s.Submit(ctx, req); err != nil {
			t.Fatalf("Submit[%d]: %v", i, err)
		}
	}

	submitted := b.Submitted()
	if len(submitted) != 5 {
		t.Fatalf("want 5 submissions, got %d", len(submitted))
	}

	next, err := nonces.GetNonce(ctx, acct)
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	if next != 12 {
		t.Fatalf("next nonce = %d, want 12 (7 + 5 pending)", next)
	}
}

// TestAtMostOneSubmissionPerRequest is property 2: re-submitting an
// identical, still in-flight request never calls backend.Submit twice.
func TestAtMostOneSubmissionPerRequest(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)

	nonces := noncetracker.New(b)
	s := New(b, nonces, 0)
	defer s.Close()

	req := chaintypes.TransactionRequest{Account: acct, To: mustAddr(t, "0x00000000000000000000000000000000000b0b"), Value: chaintypes.Wei(100)}

	var wg sync.WaitGroup
	hashes := make([]chaintypes.Hash, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := s.Submit(context.Background(), req)
			hashes[i] = h
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Submit[%d]: %v", i, err)
		}
	}
	for i := 1; i < len(hashes); i++ {
		if hashes[i] != hashes[0] {
			t.Fatalf("duplicate submissions returned different hashes: %v vs %v", hashes[0], hashes[i])
		}
	}
	if len(b.Submitted()) != 1 {
		t.Fatalf("want exactly 1 backend.Submit call, got %d", len(b.Submitted()))
	}
}

// blockingBackend wraps a Fake and stalls every Submit call until release is
// closed, so a test can deterministically fill the serializer's bounded
// queue behind one in-flight job.
type blockingBackend struct {
	*backend.Fake
	release chan struct{}
}

func (b *blockingBackend) Submit(ctx context.Context, req chaintypes.TransactionRequest, nonce chaintypes.Nonce) (chaintypes.Hash, error) {
	<-b.release
	return b.Fake.Submit(ctx, req, nonce)
}

func TestBackpressureExceeded(t *testing.T) {
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	fake := backend.NewFake()
	fake.SetNonce(acct, 1)
	b := &blockingBackend{Fake: fake, release: make(chan struct{})}

	nonces := noncetracker.New(b)
	s := New(b, nonces, 1)

	// Submit job 0, which the worker dequeues and blocks on inside Submit.
	done0 := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(1)})
		done0 <- err
	}()

	// Give the worker a moment to dequeue job 0 and enter blockingBackend.Submit.
	time.Sleep(20 * time.Millisecond)

	// Job 1 fills the queue's single slot.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(2)})
	}()
	time.Sleep(20 * time.Millisecond)

	// Job 2 finds the worker busy and the queue full: immediate backpressure.
	_, err := s.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(3)})
	if err != ErrBackpressureExceeded {
		t.Fatalf("want ErrBackpressureExceeded, got %v", err)
	}

	close(b.release)
	wg.Wait()
	<-done0
	s.Close()
}

func TestSubmitContextCancelled(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)

	nonces := noncetracker.New(b)
	s := New(b, nonces, 0)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	req := chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(1)}
	if _, err := s.Submit(ctx, req); err == nil {
		t.Fatal("want context error, got nil")
	}
}
