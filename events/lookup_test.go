package events

import (
	"context"
	"encoding/binary"
	"errors"
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

func newTestHandler() *eventfeed.Handler { return eventfeed.New() }

type transferEvent struct {
	Amount uint64
}

func transferDescriptor(sig chaintypes.Hash) SolidityEvent[transferEvent] {
	return SolidityEvent[transferEvent]{
		Match: BySignature(sig),
		Parse: func(d chaintypes.EventData) (transferEvent, error) {
			if len(d.Data) < 8 {
				return transferEvent{}, errors.New("short data")
			}
			return transferEvent{Amount: binary.BigEndian.Uint64(d.Data[len(d.Data)-8:])}, nil
		},
	}
}

func TestGetEventsAtBlockFiltersByAddressAndSignature(t *testing.T) {
	b := backend.NewFake()
	contract := mustAddr(t, "0x00000000000000000000000000000000000b0b")
	other := mustAddr(t, "0x00000000000000000000000000000000000c0c")
	sig := Signature("Transfer(address,address,uint256)")

	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, 42)

	log := chaintypes.EventData{Address: contract, Topics: []chaintypes.Hash{sig}, Data: data}
	otherLog := chaintypes.EventData{Address: contract, Topics: []chaintypes.Hash{Signature("Approval(address,address,uint256)")}, Data: data}

	b.SeedBlock(chaintypes.BlockInfo{
		Number: 1,
		Receipts: []chaintypes.TransactionReceipt{
			{Hash: seedHash("tx1"), To: contract, Events: []chaintypes.EventData{log, otherLog}},
			{Hash: seedHash("tx2"), To: other, Events: []chaintypes.EventData{log}},
		},
	})

	lookup := New(b, nil)
	got, err := GetEventsAtBlock(context.Background(), lookup, transferDescriptor(sig), contract, 1)
	if err != nil {
		t.Fatalf("GetEventsAtBlock: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 event, got %d", len(got))
	}
	if got[0].Amount != 42 {
		t.Fatalf("Amount = %d, want 42", got[0].Amount)
	}
}

func TestGetEventsAtBlockMissingIsEmpty(t *testing.T) {
	b := backend.NewFake()
	lookup := New(b, nil)
	contract := mustAddr(t, "0x00000000000000000000000000000000000b0b")
	sig := Signature("Transfer(address,address,uint256)")

	got, err := GetEventsAtBlock(context.Background(), lookup, transferDescriptor(sig), contract, 999)
	if err != nil {
		t.Fatalf("want nil error for missing block, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want 0 events for missing block, got %d", len(got))
	}
}

func TestGetEventsAtTransactionMissingIsError(t *testing.T) {
	b := backend.NewFake()
	lookup := New(b, nil)
	contract := mustAddr(t, "0x00000000000000000000000000000000000b0b")
	sig := Signature("Transfer(address,address,uint256)")

	_, err := GetEventsAtTransaction(context.Background(), lookup, transferDescriptor(sig), contract, seedHash("missing"))
	if !errors.Is(err, ErrReceiptNotFound) {
		t.Fatalf("want ErrReceiptNotFound, got %v", err)
	}
}

func TestObserveEventsLiveStream(t *testing.T) {
	b := backend.NewFake()
	contract := mustAddr(t, "0x00000000000000000000000000000000000b0b")
	acct := mustAddr(t, "0x0000000000000000000000000000000000000a")
	b.SetNonce(acct, 1)
	handler := newTestHandler()
	if err := b.Register(context.Background(), handler); err != nil {
		t.Fatalf("register: %v", err)
	}

	sig := Signature("Transfer(address,address,uint256)")
	lookup := New(b, handler)
	stream, unsubscribe := ObserveEvents(lookup, transferDescriptor(sig), contract)
	defer unsubscribe()

	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, 7)
	hash, err := b.Submit(context.Background(), chaintypes.TransactionRequest{Account: acct, To: contract}, 1)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	handler.PublishTransaction(chaintypes.TransactionInfo{
		Hash:   hash,
		Status: chaintypes.StatusExecuted,
		Receipt: &chaintypes.TransactionReceipt{
			Hash:   hash,
			To:     contract,
			Events: []chaintypes.EventData{{Address: contract, Topics: []chaintypes.Hash{sig}, Data: data}},
		},
	})

	select {
	case v := <-stream:
		if v.Amount != 7 {
			t.Fatalf("Amount = %d, want 7", v.Amount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live event")
	}
}
