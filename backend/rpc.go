package backend

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPC is the production Backend: every operation is a thin, typed wrapper
// around an *ethclient.Client call. Production code should never import
// ethclient outside of this file, keeping the rest of the module testable
// against backend.Fake.
type RPC struct {
	client *ethclient.Client
}

// Dial connects to a JSON-RPC endpoint and returns an RPC backend.
func Dial(ctx context.Context, url string) (*RPC, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("backend: dial %s: %w", url, err)
	}
	return &RPC{client: c}, nil
}

// Close releases the underlying RPC connection.
func (r *RPC) Close() { r.client.Close() }

// Submit never has a signed transaction to send: signing is out of scope
// (see Non-goals) and happens entirely outside this package. Callers reach
// the node through SubmitRaw once they have a signed envelope.
func (r *RPC) Submit(ctx context.Context, req chaintypes.TransactionRequest, nonce chaintypes.Nonce) (chaintypes.Hash, error) {
	return chaintypes.Hash{}, errors.New("backend: Submit requires a pre-signed raw transaction; use SubmitRaw")
}

// SubmitRaw relays an already-signed transaction to the node. Signing
// itself is explicitly out of scope (see Non-goals); callers that need a
// signing path are expected to construct *types.Transaction themselves and
// call this directly.
func (r *RPC) SubmitRaw(ctx context.Context, tx *types.Transaction) (chaintypes.Hash, error) {
	if err := r.client.SendTransaction(ctx, tx); err != nil {
		return chaintypes.Hash{}, fmt.Errorf("backend: send transaction: %w", err)
	}
	return chaintypes.NewHash(tx.Hash()), nil
}

func (r *RPC) GetNonce(ctx context.Context, addr chaintypes.Address) (chaintypes.Nonce, error) {
	n, err := r.client.PendingNonceAt(ctx, addr.Common())
	if err != nil {
		return 0, fmt.Errorf("backend: get nonce: %w", err)
	}
	return chaintypes.Nonce(n), nil
}

func (r *RPC) EstimateGas(ctx context.Context, account, to chaintypes.Address, value chaintypes.Value, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{
		From:  account.Common(),
		Value: value.Big(),
		Data:  data,
	}
	if !to.IsEmpty() {
		t := to.Common()
		msg.To = &t
	}
	gas, err := r.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("backend: estimate gas: %w", err)
	}
	return gas, nil
}

func (r *RPC) GetGasPrice(ctx context.Context) (chaintypes.Value, error) {
	p, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return chaintypes.Value{}, fmt.Errorf("backend: suggest gas price: %w", err)
	}
	return chaintypes.WeiFromBig(p), nil
}

func (r *RPC) GetBalance(ctx context.Context, addr chaintypes.Address) (chaintypes.Value, error) {
	b, err := r.client.BalanceAt(ctx, addr.Common(), nil)
	if err != nil {
		return chaintypes.Value{}, fmt.Errorf("backend: get balance: %w", err)
	}
	return chaintypes.WeiFromBig(b), nil
}

func (r *RPC) AddressExists(ctx context.Context, addr chaintypes.Address) (bool, error) {
	code, err := r.client.CodeAt(ctx, addr.Common(), nil)
	if err != nil {
		return false, fmt.Errorf("backend: code at: %w", err)
	}
	if len(code) > 0 {
		return true, nil
	}
	bal, err := r.client.BalanceAt(ctx, addr.Common(), nil)
	if err != nil {
		return false, fmt.Errorf("backend: balance at: %w", err)
	}
	return bal.Sign() > 0, nil
}

func (r *RPC) GetCode(ctx context.Context, addr chaintypes.Address) ([]byte, error) {
	code, err := r.client.CodeAt(ctx, addr.Common(), nil)
	if err != nil {
		return nil, fmt.Errorf("backend: get code: %w", err)
	}
	return code, nil
}

func (r *RPC) GetBlock(ctx context.Context, number uint64) (*chaintypes.BlockInfo, error) {
	header, err := r.client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("backend: header by number: %w", err)
	}
	return &chaintypes.BlockInfo{Number: header.Number.Uint64(), Hash: chaintypes.NewHash(header.Hash())}, nil
}

func (r *RPC) GetTransactionInfo(ctx context.Context, hash chaintypes.Hash) (*chaintypes.TransactionInfo, error) {
	receipt, err := r.client.TransactionReceipt(ctx, hash.Common())
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return &chaintypes.TransactionInfo{Hash: hash, Status: chaintypes.StatusPending}, nil
		}
		return nil, fmt.Errorf("backend: transaction receipt: %w", err)
	}
	tr := receiptFromGeth(hash, receipt)
	return &chaintypes.TransactionInfo{Hash: hash, Receipt: &tr, Status: chaintypes.StatusExecuted, BlockHash: chaintypes.NewHash(receipt.BlockHash)}, nil
}

// Register subscribes to new block headers and forwards each one into
// handler as a BlockInfo carrying only the block number and hash; no
// receipts are attached. It publishes no transaction-status notifications
// (pending, executed or dropped). If handler has no PublishBlock method,
// Register does nothing.
func (r *RPC) Register(ctx context.Context, handler EventHandler) error {
	publisher, ok := handler.(interface {
		PublishBlock(chaintypes.BlockInfo)
	})
	if !ok {
		return nil
	}
	headers := make(chan *types.Header)
	sub, err := r.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return fmt.Errorf("backend: subscribe new head: %w", err)
	}
	go func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					return
				}
			case h := <-headers:
				publisher.PublishBlock(chaintypes.BlockInfo{Number: h.Number.Uint64(), Hash: chaintypes.NewHash(h.Hash())})
			}
		}
	}()
	return nil
}

func receiptFromGeth(hash chaintypes.Hash, receipt *types.Receipt) chaintypes.TransactionReceipt {
	events := make([]chaintypes.EventData, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		topics := make([]chaintypes.Hash, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = chaintypes.NewHash(t)
		}
		events = append(events, chaintypes.EventData{
			Address:     chaintypes.NewAddress(l.Address),
			Topics:      topics,
			Data:        l.Data,
			TxHash:      hash,
			BlockHash:   chaintypes.NewHash(l.BlockHash),
			BlockNumber: l.BlockNumber,
			LogIndex:    l.Index,
			Removed:     l.Removed,
		})
	}
	tr := chaintypes.TransactionReceipt{
		Hash:         hash,
		IsSuccessful: receipt.Status == types.ReceiptStatusSuccessful,
		BlockHash:    chaintypes.NewHash(receipt.BlockHash),
		BlockNumber:  receipt.BlockNumber.Uint64(),
		GasUsed:      receipt.GasUsed,
		Events:       events,
	}
	if receipt.ContractAddress != (chaintypes.Address{}).Common() {
		tr.ContractAddress = chaintypes.NewAddress(receipt.ContractAddress)
	}
	if !tr.IsSuccessful {
		tr.Error = "execution reverted"
	}
	return tr
}
