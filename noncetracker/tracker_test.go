package noncetracker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/chainflow-labs/ethproxy/eventfeed"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustAddr(t *testing.T, hex string) chaintypes.Address {
	t.Helper()
	a, err := chaintypes.AddressFromHex(hex)
	if err != nil {
		t.Fatalf("address from hex: %v", err)
	}
	return a
}

func seedHash(seed string) chaintypes.Hash {
	return chaintypes.NewHash(crypto.Keccak256Hash([]byte(seed)))
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestGetNonceMonotonic(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 7)

	tr := New(b)
	ctx := context.Background()

	for i, want := range []chaintypes.Nonce{7, 8, 9} {
		n, err := tr.GetNonce(ctx, acct)
		if err != nil {
			t.Fatalf("GetNonce[%d]: %v", i, err)
		}
		if n != want {
			t.Fatalf("GetNonce[%d] = %d, want %d", i, n, want)
		}
		tr.RecordPending(acct, seedHash(fmt.Sprintf("tx-%d", i)))
	}
}

func TestGetNonceIndependentPerAccount(t *testing.T) {
	b := backend.NewFake()
	a := mustAddr(t, "0x0000000000000000000000000000000000000a")
	c := mustAddr(t, "0x0000000000000000000000000000000000000c")
	b.SetNonce(a, 3)
	b.SetNonce(c, 100)

	tr := New(b)
	ctx := context.Background()

	na, err := tr.GetNonce(ctx, a)
	if err != nil || na != 3 {
		t.Fatalf("GetNonce(a) = %d, %v", na, err)
	}
	nc, err := tr.GetNonce(ctx, c)
	if err != nil || nc != 100 {
		t.Fatalf("GetNonce(c) = %d, %v", nc, err)
	}
}

func TestPendingSetAccountingOnMined(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 7)

	tr := New(b)
	ctx := context.Background()

	hash := seedHash("mine-me")
	tr.RecordPending(acct, hash)
	if tr.PendingCount(acct) != 1 {
		t.Fatalf("want 1 pending, got %d", tr.PendingCount(acct))
	}

	if err := tr.OnMined(ctx, chaintypes.TransactionReceipt{Hash: hash, From: acct}); err != nil {
		t.Fatalf("OnMined: %v", err)
	}
	if tr.PendingCount(acct) != 0 {
		t.Fatalf("want 0 pending after mined, got %d", tr.PendingCount(acct))
	}

	n, err := tr.GetNonce(ctx, acct)
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	backendNonce, err := b.GetNonce(ctx, acct)
	if err != nil {
		t.Fatalf("backend GetNonce: %v", err)
	}
	if n != backendNonce {
		t.Fatalf("tracker nonce %d diverged from backend nonce %d after settle", n, backendNonce)
	}
}

func TestPendingSetAccountingOnDropped(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 7)

	tr := New(b)
	ctx := context.Background()

	hash := seedHash("drop-me")
	tr.RecordPending(acct, hash)
	if tr.PendingCount(acct) != 1 {
		t.Fatalf("want 1 pending, got %d", tr.PendingCount(acct))
	}

	if err := tr.OnDropped(ctx, hash); err != nil {
		t.Fatalf("OnDropped: %v", err)
	}
	if tr.PendingCount(acct) != 0 {
		t.Fatalf("want 0 pending after drop, got %d", tr.PendingCount(acct))
	}
}

func TestWatchDrivesFromEventHandler(t *testing.T) {
	b := backend.NewFake()
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)

	tr := New(b)
	handler := eventfeed.New()
	stop := tr.Watch(context.Background(), handler)
	defer stop()

	hash := seedHash("watched")
	tr.RecordPending(acct, hash)

	handler.PublishTransaction(chaintypes.TransactionInfo{
		Hash:    hash,
		Status:  chaintypes.StatusExecuted,
		Receipt: &chaintypes.TransactionReceipt{Hash: hash, From: acct, IsSuccessful: true},
	})

	waitForCondition(t, func() bool { return tr.PendingCount(acct) == 0 })
}
