package eventfeed

import (
	"testing"
	"time"

	"github.com/chainflow-labs/ethproxy/chaintypes"
)

func TestReadyClosesOnFirstBlock(t *testing.T) {
	h := New()
	select {
	case <-h.Ready():
		t.Fatal("Ready closed before any block was published")
	default:
	}

	h.PublishBlock(chaintypes.BlockInfo{Number: 1})

	select {
	case <-h.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready did not close after PublishBlock")
	}
}

func TestCurrentBlockNumberNeverDecreases(t *testing.T) {
	h := New()
	h.PublishBlock(chaintypes.BlockInfo{Number: 5})
	h.PublishBlock(chaintypes.BlockInfo{Number: 3})
	if h.CurrentBlockNumber() != 5 {
		t.Fatalf("CurrentBlockNumber = %d, want 5", h.CurrentBlockNumber())
	}
	h.PublishBlock(chaintypes.BlockInfo{Number: 9})
	if h.CurrentBlockNumber() != 9 {
		t.Fatalf("CurrentBlockNumber = %d, want 9", h.CurrentBlockNumber())
	}
}

func TestObserveBlocksMulticast(t *testing.T) {
	h := New()
	ch1, unsub1 := h.ObserveBlocks()
	defer unsub1()
	ch2, unsub2 := h.ObserveBlocks()
	defer unsub2()

	h.PublishBlock(chaintypes.BlockInfo{Number: 1})

	for i, ch := range []<-chan chaintypes.BlockInfo{ch1, ch2} {
		select {
		case b := <-ch:
			if b.Number != 1 {
				t.Fatalf("subscriber %d got block %d, want 1", i, b.Number)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the block", i)
		}
	}
}

func TestObserveTransactionsUnsubscribe(t *testing.T) {
	h := New()
	ch, unsub := h.ObserveTransactions()
	unsub()

	h.PublishTransaction(chaintypes.TransactionInfo{Status: chaintypes.StatusExecuted})

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received a notification after unsubscribing")
		}
	case <-time.After(50 * time.Millisecond):
	}
}
