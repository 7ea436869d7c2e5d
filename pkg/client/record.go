package client

import (
	"encoding/hex"
	"strings"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

// LogPayload is a caller-built submission. Verb and RefID are passed through
// unvalidated; PayloadHash must be 0x followed by 64 hex characters.
type LogPayload struct {
	Verb        string `json:"verb"`
	PayloadHash string `json:"payload_hash"`
	RefID       string `json:"ref_id"`
	// Metadata is never persisted.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Record is the normalized external form of a ledger entry.
type Record struct {
	Index       uint64 `json:"index"`
	Actor       string `json:"actor"`        // lowercase 0x address
	PayloadHash string `json:"payload_hash"` // 64 lowercase hex chars, no 0x
	Verb        string `json:"verb"`
	Timestamp   uint64 `json:"timestamp"`
	RefID       string `json:"ref_id"`
}

// NewRecord normalizes entry.
func NewRecord(entry *ledger.LogEntry) Record {
	return Record{
		Index:       entry.Index,
		Actor:       strings.ToLower(entry.Actor.Hex()),
		PayloadHash: hex.EncodeToString(entry.PayloadHash[:]),
		Verb:        entry.Verb,
		Timestamp:   entry.Timestamp,
		RefID:       entry.RefID,
	}
}
