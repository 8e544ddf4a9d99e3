// Package proxy assembles the Submission Serializer, Nonce Tracker,
// Confirmation Waiter, gas estimator, ABI Converter Registry, and Event
// Lookup into the single Core-exposed interface spec.md §6 describes:
// EthereumProxy is the "SmartContract façade... these boundaries are
// specified in §6 but not implemented [in the core packages]" — this
// package is that implementation, wiring every internal component behind
// one client-facing type so an application never touches noncetracker,
// submission, or confirm directly.
package proxy

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/chainflow-labs/ethproxy/abi"
	"github.com/chainflow-labs/ethproxy/backend"
	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/chainflow-labs/ethproxy/confirm"
	"github.com/chainflow-labs/ethproxy/eventfeed"
	"github.com/chainflow-labs/ethproxy/events"
	"github.com/chainflow-labs/ethproxy/gasestimate"
	"github.com/chainflow-labs/ethproxy/noncetracker"
	"github.com/chainflow-labs/ethproxy/submission"
)

// Config holds the tunables spec.md §6 assigns to the core: the inclusion
// timeout (blockWaitLimit), the confirmation poll fallback interval, the
// bounded submission queue capacity, and the gas price refresh cadence.
type Config struct {
	BlockWaitLimit          uint64
	ConfirmPollInterval     time.Duration
	SubmissionQueueCapacity int
	GasPriceRefreshInterval time.Duration
}

// EthereumProxy is the Core-exposed interface: the only type an application
// built on this module needs to hold a reference to.
type EthereumProxy struct {
	b       backend.Backend
	handler *eventfeed.Handler
	poller  *eventfeed.Poller

	registry *abi.Registry
	nonces   *noncetracker.Tracker
	sub      *submission.Serializer
	waiter   *confirm.Waiter
	prices   *gasestimate.PriceEstimator
	lookup   *events.Lookup

	unwatch func()
}

// New wires every core component against b, registers the handler with the
// backend, and starts the nonce tracker's watch loop and gas price
// refresher. It blocks until the Event Handler reports at least one block
// notification (spec.md §6: "used to delay first submission"), or until ctx
// is cancelled.
func New(ctx context.Context, b backend.Backend, cfg Config) (*EthereumProxy, error) {
	handler := eventfeed.New()
	if err := b.Register(ctx, handler); err != nil {
		return nil, fmt.Errorf("proxy: register event handler: %w", err)
	}

	nonces := noncetracker.New(b)
	unwatch := nonces.Watch(ctx, handler)

	sub := submission.New(b, nonces, cfg.SubmissionQueueCapacity)

	waiter := confirm.New(b, handler, confirm.Config{
		BlockWaitLimit: cfg.BlockWaitLimit,
		PollInterval:   cfg.ConfirmPollInterval,
	})

	prices, err := gasestimate.NewPriceEstimator(ctx, b, cfg.GasPriceRefreshInterval)
	if err != nil {
		unwatch()
		sub.Close()
		return nil, err
	}

	p := &EthereumProxy{
		b:        b,
		handler:  handler,
		registry: abi.NewRegistry(),
		nonces:   nonces,
		sub:      sub,
		waiter:   waiter,
		prices:   prices,
		lookup:   events.New(b, handler),
		unwatch:  unwatch,
	}

	select {
	case <-handler.Ready():
	case <-ctx.Done():
		p.Close()
		return nil, ctx.Err()
	}
	return p, nil
}

// RunPoller starts an eventfeed.Poller against the backend and attaches it
// to the proxy's lifecycle, so Close also stops it. Use this when b has no
// independent subscription push source (spec.md's Node Backend is not
// required to provide one) and blocks must be discovered by polling, per
// the eventfeed package's grounding on blocksource's cursor/backoff loop.
func (p *EthereumProxy) RunPoller(ctx context.Context, interval time.Duration, startBlock uint64) {
	p.poller = eventfeed.NewPoller(p.b, p.handler, interval)
	p.poller.Start(ctx, startBlock)
}

// Close tears down the serialization worker, the nonce watch subscription,
// the gas price refresher, and the poller if one was started. The backend
// connection itself is borrowed, not owned, per spec.md §5, and is left
// untouched.
func (p *EthereumProxy) Close() {
	if p.poller != nil {
		p.poller.Close()
	}
	p.sub.Close()
	p.prices.Close()
	p.unwatch()
}

// Registry exposes the ABI Converter Registry for callers that want to
// build SolidityEvent descriptors or SmartContract constructor parameter
// lists against the same converters Publish/PublishWithValue use.
func (p *EthereumProxy) Registry() *abi.Registry { return p.registry }

// AddEncoder, AddDecoder, AddListEncoder, AddListDecoder, and AddVoidClass
// are the registry mutators spec.md §6 lists as part of the Core-exposed
// interface, forwarded directly onto the proxy's registry.
func (p *EthereumProxy) AddEncoder(group abi.SolidityTypeGroup, enc abi.Encoder) {
	p.registry.AddEncoder(group, enc)
}

func (p *EthereumProxy) AddDecoder(group abi.SolidityTypeGroup, dec abi.Decoder) {
	p.registry.AddDecoder(group, dec)
}

func (p *EthereumProxy) AddListEncoder(factory any) error {
	return p.registry.AddListEncoder(factory)
}

func (p *EthereumProxy) AddListDecoder(factory any) error {
	return p.registry.AddListDecoder(factory)
}

func (p *EthereumProxy) AddVoidClass(t reflect.Type) {
	p.registry.AddVoidClass(t)
}

// CallDetails is the (future<Receipt>, Hash) pair spec.md §6 specifies for
// sendTx: the hash is available immediately once the Submission Serializer
// accepts the request, while Wait blocks for the Confirmation Waiter's
// outcome.
type CallDetails struct {
	Hash chaintypes.Hash
	Wait func(ctx context.Context) (*chaintypes.TransactionReceipt, error)
}

// SendTx is the Core-exposed sendTx(value, data, account, to): it estimates
// gas, submits through the serializer, and returns a hash plus a future for
// the eventual receipt. to.IsEmpty() requests contract creation.
func (p *EthereumProxy) SendTx(ctx context.Context, value chaintypes.Value, data []byte, account, to chaintypes.Address) (CallDetails, error) {
	gasLimit, err := gasestimate.Limit(ctx, p.b, account, to, value, data)
	if err != nil {
		return CallDetails{}, err
	}

	req := chaintypes.TransactionRequest{
		Account:  account,
		To:       to,
		Value:    value,
		Data:     data,
		GasLimit: gasLimit,
		GasPrice: p.prices.SuggestGasPrice(),
	}

	hash, err := p.sub.Submit(ctx, req)
	if err != nil {
		return CallDetails{}, err
	}

	return CallDetails{
		Hash: hash,
		Wait: func(ctx context.Context) (*chaintypes.TransactionReceipt, error) {
			return p.waiter.WaitForResult(ctx, hash)
		},
	}, nil
}

// Publish is the Core-exposed publish(contract, account, args…): it
// deploys contract with no attached value and returns the resulting
// contract address once the deployment is confirmed.
func (p *EthereumProxy) Publish(ctx context.Context, contract SmartContract, account chaintypes.Address, args ...any) (chaintypes.Address, error) {
	return p.PublishWithValue(ctx, contract, account, chaintypes.Zero(), args...)
}

// PublishWithValue is Publish, additionally forwarding value to the
// creation transaction (for payable constructors).
func (p *EthereumProxy) PublishWithValue(ctx context.Context, contract SmartContract, account chaintypes.Address, value chaintypes.Value, args ...any) (chaintypes.Address, error) {
	data, err := encodeConstructorCall(p.registry, contract, args)
	if err != nil {
		return chaintypes.Address{}, err
	}

	call, err := p.SendTx(ctx, value, data, account, chaintypes.Address{})
	if err != nil {
		return chaintypes.Address{}, err
	}

	receipt, err := call.Wait(ctx)
	if err != nil {
		return chaintypes.Address{}, err
	}
	return receipt.ContractAddress, nil
}

// ObserveEvents is the Core-exposed observeEvents, delegating to the Event
// Lookup component. Declared as a free function, not a method, because Go
// methods cannot introduce their own type parameters.
func ObserveEvents[T any](p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address) (<-chan T, func()) {
	return events.ObserveEvents(p.lookup, eventDef, address)
}

// ObserveEventsWithInfo is the Core-exposed observeEventsWithInfo.
func ObserveEventsWithInfo[T any](p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address) (<-chan events.Info[T], func()) {
	return events.ObserveEventsWithInfo(p.lookup, eventDef, address)
}

// GetEventsAtBlock is the Core-exposed getEventsAtBlock.
func GetEventsAtBlock[T any](ctx context.Context, p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address, blockNumber uint64) ([]T, error) {
	return events.GetEventsAtBlock(ctx, p.lookup, eventDef, address, blockNumber)
}

// GetEventsAtBlockWithInfo is the Core-exposed getEventsAtBlockWithInfo.
func GetEventsAtBlockWithInfo[T any](ctx context.Context, p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address, blockNumber uint64) ([]events.Info[T], error) {
	return events.GetEventsAtBlockWithInfo(ctx, p.lookup, eventDef, address, blockNumber)
}

// GetEventsAtTransaction is the Core-exposed getEventsAtTransaction.
func GetEventsAtTransaction[T any](ctx context.Context, p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address, txHash chaintypes.Hash) ([]T, error) {
	return events.GetEventsAtTransaction(ctx, p.lookup, eventDef, address, txHash)
}

// GetEventsAtTransactionWithInfo is the Core-exposed getEventsAtTransactionWithInfo.
func GetEventsAtTransactionWithInfo[T any](ctx context.Context, p *EthereumProxy, eventDef events.SolidityEvent[T], address chaintypes.Address, txHash chaintypes.Hash) ([]events.Info[T], error) {
	return events.GetEventsAtTransactionWithInfo(ctx, p.lookup, eventDef, address, txHash)
}

// AddressExists, GetBalance, GetCode, GetCurrentBlockNumber, and
// GetTransactionInfo are the Core-exposed info accessors, forwarded
// directly onto the backend and Event Handler.
func (p *EthereumProxy) AddressExists(ctx context.Context, addr chaintypes.Address) (bool, error) {
	return p.b.AddressExists(ctx, addr)
}

func (p *EthereumProxy) GetBalance(ctx context.Context, addr chaintypes.Address) (chaintypes.Value, error) {
	return p.b.GetBalance(ctx, addr)
}

func (p *EthereumProxy) GetCode(ctx context.Context, addr chaintypes.Address) ([]byte, error) {
	return p.b.GetCode(ctx, addr)
}

func (p *EthereumProxy) GetCurrentBlockNumber() uint64 {
	return p.handler.CurrentBlockNumber()
}

func (p *EthereumProxy) GetTransactionInfo(ctx context.Context, hash chaintypes.Hash) (*chaintypes.TransactionInfo, error) {
	return p.b.GetTransactionInfo(ctx, hash)
}
