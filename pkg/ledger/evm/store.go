// Package evm implements ledger.Store on top of the AuditLog smart contract.
//
// Appends are sent as signed writeLog transactions and wait for a mined
// receipt. The contract records msg.sender as the actor, so the ledger, not
// the caller, decides who wrote an entry.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ava-labs/libevm/accounts/abi"
	"github.com/ava-labs/libevm/accounts/abi/bind"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/core/types"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/metrics"
)

var _ ledger.Store = (*Store)(nil)

// Backend is the chain access a Store needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Store is a ledger.Store bound to one deployed AuditLog contract.
type Store struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	backend  Backend
	chainID  *big.Int
	metrics  *metrics.Metrics // nil if metrics disabled
	log      *zap.SugaredLogger
}

// Option configures the Store.
type Option func(*Store)

// WithMetrics enables metrics collection for contract calls.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore binds the AuditLog contract at address.
func NewStore(address common.Address, backend Backend, chainID *big.Int, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil chain backend", ledger.ErrConfiguration)
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("%w: chain id must be positive", ledger.ErrConfiguration)
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, err
	}

	s := &Store{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:  backend,
		chainID:  new(big.Int).Set(chainID),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Address returns the contract address the store is bound to.
func (s *Store) Address() common.Address {
	return s.address
}

// Append sends writeLog and waits for the transaction to be mined.
//
// If ctx is cancelled while waiting, the transaction may still be mined; the
// returned error carries the transaction hash so callers can check.
func (s *Store) Append(ctx context.Context, signer ledger.Signer, req ledger.AppendRequest) (*ledger.Receipt, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: no signer for writeLog", ledger.ErrConfiguration)
	}

	var tx *types.Transaction
	err := s.observe(MethodWriteLog, func() error {
		var err error
		tx, err = s.contract.Transact(TransactOpts(ctx, signer, s.chainID), MethodWriteLog,
			req.Verb, [32]byte(req.PayloadHash), req.RefID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: send %s: %v", ledger.ErrTransport, MethodWriteLog, err)
	}

	s.log.Debugw("writeLog sent",
		"contract", s.address.Hex(),
		"tx", tx.Hash().Hex(),
		"from", signer.Address().Hex(),
	)

	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for transaction %s: %v", ledger.ErrTransport, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s reverted", ledger.ErrTransport, tx.Hash().Hex())
	}

	out := &ledger.Receipt{TxHash: receipt.TxHash.Hex()}
	if idx, ok := s.indexFromLogs(receipt.Logs); ok {
		out.Index = &idx
	}
	return out, nil
}

// TotalCount calls totalLogs.
func (s *Store) TotalCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	err := s.observe(MethodTotalLogs, func() error {
		return s.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodTotalLogs)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: call %s: %v", ledger.ErrTransport, MethodTotalLogs, err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: %s returned %d values", ledger.ErrTransport, MethodTotalLogs, len(out))
	}

	total, ok := out[0].(*big.Int)
	if !ok || !total.IsUint64() {
		return 0, fmt.Errorf("%w: %s returned %v", ledger.ErrTransport, MethodTotalLogs, out[0])
	}
	return total.Uint64(), nil
}

// GetEntry calls getLog after checking index against totalLogs, so an index
// at or past the end is reported as *ledger.OutOfRangeError rather than as a
// revert.
func (s *Store) GetEntry(ctx context.Context, index uint64) (*ledger.LogEntry, error) {
	total, err := s.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	if index >= total {
		return nil, &ledger.OutOfRangeError{Index: index, Total: total}
	}

	var out []interface{}
	err = s.observe(MethodGetLog, func() error {
		return s.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodGetLog, new(big.Int).SetUint64(index))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: call %s(%d): %v", ledger.ErrTransport, MethodGetLog, index, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: %s returned %d values", ledger.ErrTransport, MethodGetLog, len(out))
	}

	var raw EntryTuple
	if err := convertTuple(out[0], &raw); err != nil {
		return nil, fmt.Errorf("%w: decode %s(%d): %v", ledger.ErrTransport, MethodGetLog, index, err)
	}
	return mapToLogEntry(index, raw)
}

func (s *Store) indexFromLogs(logs []*types.Log) (uint64, bool) {
	event, ok := s.abi.Events[EventLogWritten]
	if !ok {
		return 0, false
	}
	for _, lg := range logs {
		if lg == nil || lg.Address != s.address || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		var ev LogWritten
		if err := s.contract.UnpackLog(&ev, EventLogWritten, *lg); err != nil {
			s.log.Warnw("failed to decode LogWritten", "tx", lg.TxHash.Hex(), "error", err)
			continue
		}
		if ev.Index == nil || !ev.Index.IsUint64() {
			continue
		}
		return ev.Index.Uint64(), true
	}
	return 0, false
}

func (s *Store) observe(method string, call func() error) error {
	start := time.Now()
	s.metrics.IncRPCInFlight()
	defer s.metrics.DecRPCInFlight()

	err := call()
	s.metrics.RecordRPCCall(method, err, time.Since(start).Seconds())
	return err
}

// convertTuple copies the anonymous struct produced by the ABI decoder into
// dst. abi.ConvertType panics on shape mismatch.
func convertTuple(in interface{}, dst *EntryTuple) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected tuple shape: %v", r)
		}
	}()
	*dst = *abi.ConvertType(in, new(EntryTuple)).(*EntryTuple)
	return nil
}

func mapToLogEntry(index uint64, raw EntryTuple) (*ledger.LogEntry, error) {
	if raw.Timestamp == nil || !raw.Timestamp.IsUint64() {
		return nil, fmt.Errorf("%w: entry %d has invalid timestamp", ledger.ErrTransport, index)
	}
	return &ledger.LogEntry{
		Index:       index,
		Actor:       raw.Actor,
		PayloadHash: common.Hash(raw.PayloadHash),
		Verb:        raw.Verb,
		RefID:       raw.RefID,
		Timestamp:   raw.Timestamp.Uint64(),
	}, nil
}

// TransactOpts builds transaction options that sign with signer for chainID.
func TransactOpts(ctx context.Context, signer ledger.Signer, chainID *big.Int) *bind.TransactOpts {
	txSigner := types.LatestSignerForChainID(chainID)
	from := signer.Address()
	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != from {
				return nil, bind.ErrNotAuthorized
			}
			sig, err := signer.SignHash(txSigner.Hash(tx).Bytes())
			if err != nil {
				return nil, err
			}
			return tx.WithSignature(txSigner, sig)
		},
	}
}
