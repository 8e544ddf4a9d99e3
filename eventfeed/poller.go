package eventfeed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
)

// Poller drives a Handler by polling backend.Backend.GetBlock on an
// interval, the same shape as monetha's blocksource.BlockSource: advance a
// cursor block number, fetch it, deliver it, repeat, backing off when the
// next block isn't there yet. It is generalized from "deliver blocks with N
// confirmations" to "deliver blocks and an Executed notification for every
// transaction they contain" since this package has no separate mempool feed
// to source Dropped/Pending notifications from.
type Poller struct {
	b        backend.Backend
	interval time.Duration
	handler  *Handler

	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// NewPoller returns a Poller that will publish onto handler once started.
func NewPoller(b backend.Backend, handler *Handler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &Poller{b: b, handler: handler, interval: interval, closed: make(chan struct{})}
}

// Start begins polling at block number startBlock and moves forward one
// block at a time; 0 is not special and starts at block 0. It returns
// immediately; polling runs in its own goroutine until Close is called.
func (p *Poller) Start(ctx context.Context, startBlock uint64) {
	ctx, cancel := context.WithCancel(ctx)
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		defer cancel()
		<-p.closed
	}()
	go func() {
		defer p.wg.Done()
		p.run(ctx, startBlock)
	}()
}

// Close stops the polling goroutine and waits for it to exit.
func (p *Poller) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.wg.Wait()
	})
}

func (p *Poller) run(ctx context.Context, cursor uint64) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		block, err := p.b.GetBlock(ctx, cursor)
		if err != nil {
			slog.Warn("eventfeed: poll GetBlock failed", "block", cursor, "error", err)
			if !p.sleep(ctx) {
				return
			}
			continue
		}
		if block == nil {
			// Not mined yet; wait and retry the same cursor.
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		p.handler.PublishBlock(*block)
		for _, receipt := range block.Receipts {
			p.handler.PublishTransaction(chaintypes.TransactionInfo{
				Hash:      receipt.Hash,
				Receipt:   receiptCopy(receipt),
				Status:    chaintypes.StatusExecuted,
				BlockHash: receipt.BlockHash,
			})
		}
		cursor++
	}
}

func (p *Poller) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.closed:
		return false
	case <-time.After(p.interval):
		return true
	}
}

func receiptCopy(r chaintypes.TransactionReceipt) *chaintypes.TransactionReceipt {
	rc := r
	return &rc
}
