package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fake is an in-memory Backend used by component tests in place of a real
// node. It is deliberately simple: submitted transactions are recorded and
// must be driven to a terminal state explicitly via MarkMined/MarkDropped,
// mirroring the way monetha's simulated-backend tests commit blocks by
// hand rather than waiting on real consensus.
type Fake struct {
	mu sync.Mutex

	nonces   map[chaintypes.Address]chaintypes.Nonce
	balances map[chaintypes.Address]chaintypes.Value
	gasPrice chaintypes.Value

	submitted []chaintypes.TransactionRequest
	byHash    map[chaintypes.Hash]chaintypes.TransactionRequest
	infos     map[chaintypes.Hash]chaintypes.TransactionInfo

	blocks      map[uint64]chaintypes.BlockInfo
	blockNumber uint64

	handler EventHandler

	// SubmitErr, when non-nil, is returned by the next call to Submit.
	SubmitErr error
}

// NewFake returns a Fake backend ready for use.
func NewFake() *Fake {
	return &Fake{
		nonces:   make(map[chaintypes.Address]chaintypes.Nonce),
		balances: make(map[chaintypes.Address]chaintypes.Value),
		gasPrice: chaintypes.Wei(1_000_000_000),
		byHash:   make(map[chaintypes.Hash]chaintypes.TransactionRequest),
		infos:    make(map[chaintypes.Hash]chaintypes.TransactionInfo),
		blocks:   make(map[uint64]chaintypes.BlockInfo),
	}
}

// SetNonce seeds the backend-observed nonce for an address.
func (f *Fake) SetNonce(addr chaintypes.Address, n chaintypes.Nonce) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonces[addr] = n
}

// SetBalance seeds an address's balance.
func (f *Fake) SetBalance(addr chaintypes.Address, v chaintypes.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr] = v
}

// SetGasPrice overrides the value GetGasPrice returns.
func (f *Fake) SetGasPrice(v chaintypes.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPrice = v
}

// SeedBlock installs a block directly, for tests exercising historical
// queries (GetBlock) without driving a transaction through Submit/MarkMined
// first.
func (f *Fake) SeedBlock(block chaintypes.BlockInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[block.Number] = block
}

func (f *Fake) Submit(_ context.Context, req chaintypes.TransactionRequest, nonce chaintypes.Nonce) (chaintypes.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		err := f.SubmitErr
		f.SubmitErr = nil
		return chaintypes.Hash{}, err
	}
	h := syntheticHash(req, nonce)
	f.submitted = append(f.submitted, req)
	f.byHash[h] = req
	f.infos[h] = chaintypes.TransactionInfo{Hash: h, Status: chaintypes.StatusPending}
	return h, nil
}

func syntheticHash(req chaintypes.TransactionRequest, nonce chaintypes.Nonce) chaintypes.Hash {
	base := req.ContentHash().Common()
	return chaintypes.NewHash(crypto.Keccak256Hash(base[:], []byte(fmt.Sprintf("%d", nonce))))
}

func (f *Fake) GetNonce(_ context.Context, addr chaintypes.Address) (chaintypes.Nonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonces[addr], nil
}

func (f *Fake) EstimateGas(_ context.Context, _, to chaintypes.Address, _ chaintypes.Value, _ []byte) (uint64, error) {
	if to.IsEmpty() {
		return 500_000, nil
	}
	return 50_000, nil
}

func (f *Fake) GetGasPrice(_ context.Context) (chaintypes.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gasPrice, nil
}

func (f *Fake) GetBalance(_ context.Context, addr chaintypes.Address) (chaintypes.Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[addr], nil
}

func (f *Fake) AddressExists(_ context.Context, addr chaintypes.Address) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.balances[addr]
	return ok, nil
}

func (f *Fake) GetCode(_ context.Context, _ chaintypes.Address) ([]byte, error) {
	return nil, nil
}

func (f *Fake) GetBlock(_ context.Context, number uint64) (*chaintypes.BlockInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blocks[number]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (f *Fake) GetTransactionInfo(_ context.Context, hash chaintypes.Hash) (*chaintypes.TransactionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.infos[hash]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (f *Fake) Register(_ context.Context, handler EventHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

// MarkMined advances the fake chain by one block and records hash as
// executed in it, with the given success flag.
func (f *Fake) MarkMined(hash chaintypes.Hash, successful bool) chaintypes.TransactionInfo {
	f.mu.Lock()
	f.blockNumber++
	num := f.blockNumber
	req := f.byHash[hash]
	receipt := chaintypes.TransactionReceipt{
		Hash:         hash,
		From:         req.Account,
		To:           req.To,
		IsSuccessful: successful,
		BlockNumber:  num,
	}
	if req.IsCreation() {
		receipt.ContractAddress = chaintypes.NewAddress(crypto.CreateAddress(req.Account.Common(), 0))
	}
	if !successful {
		receipt.Error = "execution reverted"
	}
	info := chaintypes.TransactionInfo{Hash: hash, Receipt: &receipt, Status: chaintypes.StatusExecuted}
	f.infos[hash] = info
	f.blocks[num] = chaintypes.BlockInfo{Number: num, Receipts: []chaintypes.TransactionReceipt{receipt}}
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		if publisher, ok := handler.(interface {
			PublishTransaction(chaintypes.TransactionInfo)
			PublishBlock(chaintypes.BlockInfo)
		}); ok {
			publisher.PublishTransaction(info)
			publisher.PublishBlock(chaintypes.BlockInfo{Number: num, Receipts: []chaintypes.TransactionReceipt{receipt}})
		}
	}
	return info
}

// MarkDropped reports hash as dropped from the mempool.
func (f *Fake) MarkDropped(hash chaintypes.Hash) chaintypes.TransactionInfo {
	f.mu.Lock()
	info := chaintypes.TransactionInfo{Hash: hash, Status: chaintypes.StatusDropped}
	f.infos[hash] = info
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		if publisher, ok := handler.(interface {
			PublishTransaction(chaintypes.TransactionInfo)
			PublishBlock(chaintypes.BlockInfo)
		}); ok {
			publisher.PublishTransaction(info)
		}
	}
	return info
}

// AdvanceBlock advances the fake chain number without mining anything,
// used to exercise the Confirmation Waiter's timeout stream.
func (f *Fake) AdvanceBlock() uint64 {
	f.mu.Lock()
	f.blockNumber++
	num := f.blockNumber
	block := chaintypes.BlockInfo{Number: num}
	f.blocks[num] = block
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		if publisher, ok := handler.(interface {
			PublishBlock(chaintypes.BlockInfo)
		}); ok {
			publisher.PublishBlock(block)
		}
	}
	return num
}

// Submitted returns every request passed to Submit so far, for assertions.
func (f *Fake) Submitted() []chaintypes.TransactionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chaintypes.TransactionRequest, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// PendingHashes returns the hash of every submitted transaction still
// awaiting MarkMined/MarkDropped, for tests that need the hash a concurrent
// Submit call produced without threading it back through the caller.
func (f *Fake) PendingHashes() []chaintypes.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chaintypes.Hash
	for h, info := range f.infos {
		if info.Status == chaintypes.StatusPending {
			out = append(out, h)
		}
	}
	return out
}
