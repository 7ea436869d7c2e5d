// Package evmtest provides an in-memory chain backend that executes the
// AuditLog contract ABI, for tests that exercise the evm store and deployer
// without a node.
package evmtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	ethereum "github.com/ava-labs/libevm"
	"github.com/ava-labs/libevm/accounts/abi"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"github.com/ava-labs/libevm/crypto"

	"github.com/ava-labs/auditlog/pkg/ledger/evm"
)

// ErrReverted is returned by calls that the contract would revert.
var ErrReverted = errors.New("execution reverted")

type entry struct {
	actor       common.Address
	payloadHash [32]byte
	verb        string
	refID       string
	timestamp   uint64
}

// Backend satisfies evm.Backend. Every sent transaction is mined immediately.
type Backend struct {
	mu        sync.Mutex
	abi       abi.ABI
	chainID   *big.Int
	signer    types.Signer
	now       func() time.Time
	nonces    map[common.Address]uint64
	code      map[common.Address][]byte
	logs      map[common.Address][]entry
	receipts  map[common.Hash]*types.Receipt
	block     uint64
	revert    bool
	callErr   error
	sendCount int
}

var _ evm.Backend = (*Backend)(nil)

// NewBackend creates an empty chain with the given chain ID.
func NewBackend(chainID int64) *Backend {
	parsed, err := evm.ParseABI()
	if err != nil {
		panic(err)
	}
	id := big.NewInt(chainID)
	return &Backend{
		abi:      parsed,
		chainID:  id,
		signer:   types.LatestSignerForChainID(id),
		now:      time.Now,
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
		logs:     make(map[common.Address][]entry),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// ChainIDBig returns the chain ID the backend validates signatures against.
func (b *Backend) ChainIDBig() *big.Int {
	return new(big.Int).Set(b.chainID)
}

// SetClock overrides the block timestamp source.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// SetRevert makes subsequent writeLog transactions mine with a failed status.
func (b *Backend) SetRevert(revert bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revert = revert
}

// SetCallError makes subsequent read calls fail with err.
func (b *Backend) SetCallError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callErr = err
}

// InstallContract places an AuditLog contract at a fresh address.
func (b *Backend) InstallContract() common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := crypto.CreateAddress(common.Address{}, uint64(len(b.code)))
	b.code[addr] = []byte{0x60, 0x80}
	return addr
}

// Sent returns how many transactions have been accepted.
func (b *Backend) Sent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sendCount
}

func (b *Backend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.code[account], nil
}

func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// No base fee: bind falls back to legacy transactions.
	return &types.Header{
		Number: new(big.Int).SetUint64(b.block),
		Time:   uint64(b.now().Unix()),
	}, nil
}

func (b *Backend) BlockNumber(_ context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

func (b *Backend) ChainID(_ context.Context) (*big.Int, error) {
	return b.ChainIDBig(), nil
}

func (b *Backend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(25_000_000_000), nil
}

func (b *Backend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 200_000, nil
}

func (b *Backend) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *Backend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.callErr != nil {
		return nil, b.callErr
	}
	if call.To == nil || len(b.code[*call.To]) == 0 {
		return nil, nil
	}
	if len(call.Data) < 4 {
		return nil, ErrReverted
	}
	method, err := b.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, ErrReverted
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	entries := b.logs[*call.To]
	switch method.Name {
	case evm.MethodTotalLogs:
		return method.Outputs.Pack(big.NewInt(int64(len(entries))))
	case evm.MethodGetLog:
		index := args[0].(*big.Int)
		if !index.IsUint64() || index.Uint64() >= uint64(len(entries)) {
			return nil, fmt.Errorf("%w: AuditLog: index out of range", ErrReverted)
		}
		e := entries[index.Uint64()]
		return method.Outputs.Pack(evm.EntryTuple{
			Actor:       e.actor,
			PayloadHash: e.payloadHash,
			Verb:        e.verb,
			Timestamp:   new(big.Int).SetUint64(e.timestamp),
			RefID:       e.refID,
		})
	default:
		return nil, ErrReverted
	}
}

func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sendCount++
	b.block++
	b.nonces[from]++
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.block),
		GasUsed:     21_000,
	}
	b.receipts[tx.Hash()] = receipt

	if tx.To() == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		b.code[addr] = tx.Data()
		receipt.ContractAddress = addr
		return nil
	}

	to := *tx.To()
	if len(b.code[to]) == 0 || b.revert {
		receipt.Status = types.ReceiptStatusFailed
		return nil
	}
	if len(tx.Data()) < 4 {
		receipt.Status = types.ReceiptStatusFailed
		return nil
	}
	method, err := b.abi.MethodById(tx.Data()[:4])
	if err != nil || method.Name != evm.MethodWriteLog {
		receipt.Status = types.ReceiptStatusFailed
		return nil
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		return nil
	}

	e := entry{
		actor:       from,
		verb:        args[0].(string),
		payloadHash: args[1].([32]byte),
		refID:       args[2].(string),
		timestamp:   uint64(b.now().Unix()),
	}
	index := uint64(len(b.logs[to]))
	b.logs[to] = append(b.logs[to], e)

	event := b.abi.Events[evm.EventLogWritten]
	data, err := event.Inputs.NonIndexed().Pack(e.payloadHash, e.verb, e.refID, new(big.Int).SetUint64(e.timestamp))
	if err != nil {
		return err
	}
	receipt.Logs = []*types.Log{{
		Address: to,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(new(big.Int).SetUint64(index)),
			common.BytesToHash(from.Bytes()),
		},
		Data:   data,
		TxHash: tx.Hash(),
	}}
	return nil
}
