package client

import "github.com/ava-labs/auditlog/pkg/ledger"

type callOptions struct {
	signer          ledger.Signer
	accountAlias    string
	store           ledger.Store
	storeAddress    string
	limit           int
	readConcurrency int
}

// CallOption overrides configuration for a single Submit or Fetch call.
type CallOption func(*callOptions)

// WithSigner signs the submission with signer, bypassing alias resolution.
func WithSigner(signer ledger.Signer) CallOption {
	return func(o *callOptions) {
		o.signer = signer
	}
}

// WithAccountAlias resolves the signer from alias instead of the configured one.
func WithAccountAlias(alias string) CallOption {
	return func(o *callOptions) {
		o.accountAlias = alias
	}
}

// WithStore addresses store directly, bypassing target resolution.
func WithStore(store ledger.Store) CallOption {
	return func(o *callOptions) {
		o.store = store
	}
}

// WithStoreAddress resolves the store from address instead of the configured one.
func WithStoreAddress(address string) CallOption {
	return func(o *callOptions) {
		o.storeAddress = address
	}
}

// WithLimit restricts Fetch to the n most recent entries. Zero means no
// limit; negative values are rejected.
func WithLimit(n int) CallOption {
	return func(o *callOptions) {
		o.limit = n
	}
}

// WithReadConcurrency bounds how many GetEntry calls Fetch runs at once.
func WithReadConcurrency(n int) CallOption {
	return func(o *callOptions) {
		o.readConcurrency = n
	}
}

func (c *Client) callOptions(opts []CallOption) callOptions {
	o := callOptions{readConcurrency: c.cfg.ReadConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
