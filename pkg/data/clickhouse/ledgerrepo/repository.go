package ledgerrepo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ava-labs/auditlog/pkg/clickhouse"
)

// ErrNotFound is returned by Get when no row has the requested index.
var ErrNotFound = errors.New("entry not found")

// Repository reads and writes ledger rows in one ClickHouse table.
type Repository interface {
	// Initialize creates the table if it does not exist.
	Initialize(ctx context.Context) error
	Insert(ctx context.Context, row *EntryRow) error
	Count(ctx context.Context) (uint64, error)
	Get(ctx context.Context, index uint64) (*EntryRow, error)
}

var _ Repository = (*repository)(nil)

//go:embed queries/create-table.sql
var createTableQuery string

//go:embed queries/insert-entry.sql
var insertEntryQuery string

//go:embed queries/count-entries.sql
var countEntriesQuery string

//go:embed queries/select-entry.sql
var selectEntryQuery string

type repository struct {
	client    clickhouse.Client
	database  string
	tableName string
}

// NewRepository creates a repository for database.tableName and ensures the
// table exists. Both names must already be validated identifiers.
func NewRepository(ctx context.Context, client clickhouse.Client, database, tableName string) (Repository, error) {
	repo := &repository{client: client, database: database, tableName: tableName}
	if err := repo.Initialize(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// Initialize ensures the ledger table exists.
// Schema:
//   - idx: UInt64 (ordering key, gap-free from 0)
//   - actor: String (lowercase 0x address recovered from signature)
//   - payload_hash: String (0x + 64 lowercase hex)
//   - verb, ref_id: String
//   - timestamp: UInt64 (unix seconds)
//   - signature: String (hex of the 65-byte append signature)
func (r *repository) Initialize(ctx context.Context) error {
	query := fmt.Sprintf(createTableQuery, r.database, r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create ledger table %s.%s: %w", r.database, r.tableName, err)
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, row *EntryRow) error {
	query := fmt.Sprintf(insertEntryQuery, r.database, r.tableName)
	err := r.client.Conn().Exec(ctx, query,
		row.Index, row.Actor, row.PayloadHash, row.Verb, row.RefID, row.Timestamp, row.Signature)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry %d: %w", row.Index, err)
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (uint64, error) {
	var count uint64
	query := fmt.Sprintf(countEntriesQuery, r.database, r.tableName)
	if err := r.client.Conn().QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

func (r *repository) Get(ctx context.Context, index uint64) (*EntryRow, error) {
	var row EntryRow
	query := fmt.Sprintf(selectEntryQuery, r.database, r.tableName)
	err := r.client.Conn().
		QueryRow(ctx, query, index).
		Scan(&row.Index, &row.Actor, &row.PayloadHash, &row.Verb, &row.RefID, &row.Timestamp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read ledger entry %d: %w", index, err)
	}
	return &row, nil
}
