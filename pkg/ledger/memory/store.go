// Package memory provides an in-process ledger.Store backed by a growable slice.
//
// Entries are only ever appended; the slice index is the entry index. The actor
// of each entry is recovered from the signature the signer produces over the
// append digest, so a signer cannot claim another account.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ava-labs/libevm/crypto"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store is a thread-safe, append-only in-memory ledger.
type Store struct {
	mu      sync.RWMutex
	entries []ledger.LogEntry
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append implements ledger.Store.
func (s *Store) Append(_ context.Context, signer ledger.Signer, req ledger.AppendRequest) (*ledger.Receipt, error) {
	actor, sig, err := ledger.Authenticate(signer, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := uint64(len(s.entries))
	s.entries = append(s.entries, ledger.LogEntry{
		Index:       index,
		Actor:       actor,
		PayloadHash: req.PayloadHash,
		Verb:        req.Verb,
		RefID:       req.RefID,
		Timestamp:   uint64(s.now().Unix()),
	})

	txn := crypto.Keccak256Hash(ledger.AppendDigest(req), sig)
	return &ledger.Receipt{TxnHash: txn.Hex(), Index: &index}, nil
}

// TotalCount implements ledger.Store.
func (s *Store) TotalCount(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}

// GetEntry implements ledger.Store.
func (s *Store) GetEntry(_ context.Context, index uint64) (*ledger.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := uint64(len(s.entries))
	if index >= total {
		return nil, &ledger.OutOfRangeError{Index: index, Total: total}
	}
	e := s.entries[index]
	return &e, nil
}
