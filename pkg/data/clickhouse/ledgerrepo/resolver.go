package ledgerrepo

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/ava-labs/auditlog/pkg/clickhouse"
	"github.com/ava-labs/auditlog/pkg/ledger"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidIdentifier reports whether name can be interpolated into a query as a
// database or table name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Resolver maps store targets (table names) to Stores, creating each table on
// first use. Stores are cached so appends to one table share a lock.
type Resolver struct {
	client   clickhouse.Client
	database string
	opts     []Option

	mu     sync.Mutex
	stores map[string]*Store
}

// NewResolver creates a Resolver over database.
func NewResolver(client clickhouse.Client, database string, opts ...Option) (*Resolver, error) {
	if !ValidIdentifier(database) {
		return nil, fmt.Errorf("%w: invalid clickhouse database name %q", ledger.ErrConfiguration, database)
	}
	return &Resolver{
		client:   client,
		database: database,
		opts:     opts,
		stores:   make(map[string]*Store),
	}, nil
}

// ResolveStore returns the store for table, creating the table if needed.
func (r *Resolver) ResolveStore(ctx context.Context, table string) (ledger.Store, error) {
	if !ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid ledger table name %q", ledger.ErrConfiguration, table)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[table]; ok {
		return s, nil
	}

	repo, err := NewRepository(ctx, r.client, r.database, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrTransport, err)
	}
	s := NewStore(repo, r.opts...)
	r.stores[table] = s
	return s, nil
}
