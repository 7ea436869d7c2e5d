// Package ledgerrepo stores the audit log in a ClickHouse table.
//
// ClickHouse has no row-level compare-and-set, so index assignment relies on
// a single logical writer: the Store serializes its own appends, and only one
// process should append to a given table.
package ledgerrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
	"github.com/ava-labs/libevm/crypto"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store is a ledger.Store backed by a Repository.
type Store struct {
	mu   sync.Mutex
	repo Repository
	now  func() time.Time
	log  *zap.SugaredLogger
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore wraps repo.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo, now: time.Now, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append authenticates the signer, then writes the entry at the current count.
func (s *Store) Append(ctx context.Context, signer ledger.Signer, req ledger.AppendRequest) (*ledger.Receipt, error) {
	actor, sig, err := ledger.Authenticate(signer, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrTransport, err)
	}
	row := &EntryRow{
		Index:       index,
		Actor:       strings.ToLower(actor.Hex()),
		PayloadHash: req.PayloadHash.Hex(),
		Verb:        req.Verb,
		RefID:       req.RefID,
		Timestamp:   uint64(s.now().Unix()),
		Signature:   hexutil.Encode(sig),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrTransport, err)
	}

	s.log.Debugw("ledger entry inserted", "index", index, "actor", row.Actor, "verb", row.Verb)

	txn := crypto.Keccak256Hash(ledger.AppendDigest(req), sig)
	return &ledger.Receipt{TxnHash: txn.Hex(), Index: &index}, nil
}

// TotalCount implements ledger.Store.
func (s *Store) TotalCount(ctx context.Context) (uint64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ledger.ErrTransport, err)
	}
	return count, nil
}

// GetEntry implements ledger.Store.
func (s *Store) GetEntry(ctx context.Context, index uint64) (*ledger.LogEntry, error) {
	row, err := s.repo.Get(ctx, index)
	if errors.Is(err, ErrNotFound) {
		total, cerr := s.TotalCount(ctx)
		if cerr != nil {
			return nil, cerr
		}
		return nil, &ledger.OutOfRangeError{Index: index, Total: total}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrTransport, err)
	}
	return mapToLogEntry(row)
}

func mapToLogEntry(row *EntryRow) (*ledger.LogEntry, error) {
	if !common.IsHexAddress(row.Actor) {
		return nil, fmt.Errorf("%w: entry %d has malformed actor %q", ledger.ErrTransport, row.Index, row.Actor)
	}
	hash, err := ledger.ParsePayloadHash(row.PayloadHash)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %d: %v", ledger.ErrTransport, row.Index, err)
	}
	return &ledger.LogEntry{
		Index:       row.Index,
		Actor:       common.HexToAddress(row.Actor),
		PayloadHash: hash,
		Verb:        row.Verb,
		RefID:       row.RefID,
		Timestamp:   row.Timestamp,
	}, nil
}
