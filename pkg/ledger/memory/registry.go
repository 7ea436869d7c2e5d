package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

// Registry hands out one Store per address, creating stores on first use.
// It stands in for a chain when running locally.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	opts   []Option
}

// NewRegistry creates a Registry whose stores are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{stores: make(map[string]*Store), opts: opts}
}

// ResolveStore returns the store registered at address. Addresses are
// case-insensitive.
func (r *Registry) ResolveStore(_ context.Context, address string) (ledger.Store, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: empty store address", ledger.ErrConfiguration)
	}
	key := strings.ToLower(address)

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[key]
	if !ok {
		s = New(r.opts...)
		r.stores[key] = s
	}
	return s, nil
}
