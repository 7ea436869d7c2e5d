package ledger

import (
	"context"

	"github.com/ava-labs/libevm/common"
)

// Store is an append-only sequence of LogEntry records.
//
// Implementations assign the index and timestamp of every entry and derive the
// actor from the signer's proof; neither is ever taken from the caller.
type Store interface {
	// Append creates the entry at the next index, authorized by signer.
	Append(ctx context.Context, signer Signer, req AppendRequest) (*Receipt, error)

	// TotalCount returns the number of entries. It never decreases.
	TotalCount(ctx context.Context) (uint64, error)

	// GetEntry returns the entry at index, or an *OutOfRangeError when
	// index >= TotalCount.
	GetEntry(ctx context.Context, index uint64) (*LogEntry, error)
}

// Signer is a signing identity able to authorize an append.
type Signer interface {
	// Address is the account the signer claims. Stores must not trust it for
	// the recorded actor; it is only used to address transactions.
	Address() common.Address

	// SignHash returns a 65-byte [R || S || V] secp256k1 signature over hash.
	SignHash(hash []byte) ([]byte, error)
}

// AppendRequest carries the caller-controlled fields of a new entry.
type AppendRequest struct {
	Verb        string
	PayloadHash common.Hash
	RefID       string
}

// LogEntry is one immutable persisted record.
type LogEntry struct {
	Index       uint64
	Actor       common.Address
	PayloadHash common.Hash
	Verb        string
	RefID       string
	Timestamp   uint64 // unix seconds
}

// Receipt is returned by Store.Append.
//
// Backends report the transaction hash under one of two names: in-process
// backends fill TxnHash, the contract backend fills TxHash.
type Receipt struct {
	TxnHash string  `json:"txn_hash,omitempty"`
	TxHash  string  `json:"tx_hash,omitempty"`
	Index   *uint64 `json:"index,omitempty"`
}
