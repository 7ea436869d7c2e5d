package ledgerrepo

// EntryRow is one ledger entry as stored in ClickHouse.
type EntryRow struct {
	Index       uint64 `json:"idx"`
	Actor       string `json:"actor"`
	PayloadHash string `json:"payload_hash"`
	Verb        string `json:"verb"`
	RefID       string `json:"ref_id"`
	Timestamp   uint64 `json:"timestamp"`
	Signature   string `json:"signature"`
}
