package confirm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/chainflow-labs/ethproxy/eventfeed"
)

func mustAddr(t *testing.T, hex string) chaintypes.Address {
	t.Helper()
	a, err := chaintypes.AddressFromHex(hex)
	if err != nil {
		t.Fatalf("address from hex: %v", err)
	}
	return a
}

func newTestWaiter(b backend.Backend, handler *eventfeed.Handler, cfg Config) *Waiter {
	return New(b, handler, cfg)
}

// TestWaitForResultHappyPathS1 mirrors scenario S1: a block-receipt
// notification with isSuccessful=true resolves WaitForResult to that
// receipt.
func TestWaitForResultHappyPathS1(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 7)
	handler := eventfeed.New()
	if err := b.Register(context.Background(), handler); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := newTestWaiter(b, handler, Config{BlockWaitLimit: 10, PollInterval: time.Hour})

	hash, err := b.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, To: mustAddr(t, "0x00000000000000000000000000000000000b0b"), Value: chaintypes.Wei(100)}, 7)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.MarkMined(hash, true)
	}()

	receipt, err := w.WaitForResult(context.Background(), hash)
	if err != nil {
		t.Fatalf("WaitForResult: %v", err)
	}
	if !receipt.IsSuccessful {
		t.Fatal("want successful receipt")
	}
}

// TestWaitForResultRevertS3 mirrors scenario S3.
func TestWaitForResultRevertS3(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)
	handler := eventfeed.New()
	_ = b.Register(context.Background(), handler)

	w := newTestWaiter(b, handler, Config{BlockWaitLimit: 10, PollInterval: time.Hour})

	hash, err := b.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(1)}, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.MarkMined(hash, false)
	}()

	_, err = w.WaitForResult(context.Background(), hash)
	var reverted *RevertedError
	if !errors.As(err, &reverted) {
		t.Fatalf("want RevertedError, got %v", err)
	}
}

// TestWaitForResultDropS4 mirrors scenario S4.
func TestWaitForResultDropS4(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)
	handler := eventfeed.New()
	_ = b.Register(context.Background(), handler)

	w := newTestWaiter(b, handler, Config{BlockWaitLimit: 10, PollInterval: time.Hour})

	hash, err := b.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(1)}, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.MarkDropped(hash)
	}()

	_, err = w.WaitForResult(context.Background(), hash)
	var dropped *DroppedError
	if !errors.As(err, &dropped) {
		t.Fatalf("want DroppedError, got %v", err)
	}
}

// TestWaitForResultTimeout exercises the block-wait-limit timeout path:
// blocks advance past startBlock+BlockWaitLimit without the hash ever being
// mined or dropped.
func TestWaitForResultTimeout(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)
	handler := eventfeed.New()
	_ = b.Register(context.Background(), handler)

	// Establish a non-zero starting block so the timeout path can exceed it.
	b.AdvanceBlock()

	w := newTestWaiter(b, handler, Config{BlockWaitLimit: 2, PollInterval: time.Hour})

	hash, err := b.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, Value: chaintypes.Wei(1)}, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		b.AdvanceBlock()
		b.AdvanceBlock()
		b.AdvanceBlock()
		b.AdvanceBlock()
	}()

	_, err = w.WaitForResult(context.Background(), hash)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
}
