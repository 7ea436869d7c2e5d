// Package client is the caller-facing adapter over a ledger.Store.
//
// It validates submissions, resolves the signing identity and the store
// target, pages through the ledger on reads and normalizes entries into
// Records. The client holds only immutable configuration; ordering of
// concurrent submissions is whatever the store provides.
package client

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/metrics"
	"github.com/ava-labs/auditlog/pkg/utils"
)

// IdentityResolver turns an account alias into a signing identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, alias string) (ledger.Signer, error)
}

// StoreResolver turns a store target (contract address or table name) into a store.
type StoreResolver interface {
	ResolveStore(ctx context.Context, target string) (ledger.Store, error)
}

// Config is the process-wide fallback used when a call does not name a
// signer or a store target.
type Config struct {
	StoreAddress    string `env:"AUDIT_LOG_ADDRESS"`
	AccountAlias    string `env:"AUDITLOG_ACCOUNT_ALIAS"`
	ReadConcurrency int    `env:"AUDITLOG_READ_CONCURRENCY" envDefault:"1"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse client config: %v", ledger.ErrConfiguration, err)
	}
	return cfg, nil
}

// Client submits and fetches audit log entries.
type Client struct {
	cfg        Config
	identities IdentityResolver
	stores     StoreResolver
	metrics    *metrics.Metrics // nil if metrics disabled
	log        *zap.SugaredLogger
}

// Option configures the Client.
type Option func(*Client)

// WithMetrics enables metrics collection for submissions and fetches.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client. Either resolver may be nil if every call supplies
// the corresponding value explicitly.
func New(cfg Config, identities IdentityResolver, stores StoreResolver, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		identities: identities,
		stores:     stores,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit validates payload, appends it to the resolved store and returns the
// transaction hash as 0x-prefixed lowercase hex.
//
// An invalid payload hash fails with *ledger.ValidationError before any
// resolution or store call. If ctx is cancelled mid-append the entry may
// still land; check with Fetch before resubmitting.
func (c *Client) Submit(ctx context.Context, payload LogPayload, opts ...CallOption) (txID string, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordSubmission(err, time.Since(start).Seconds())
		c.countError(err)
	}()

	hash, err := ledger.ParsePayloadHash(payload.PayloadHash)
	if err != nil {
		return "", err
	}

	o := c.callOptions(opts)
	signer, err := c.resolveSigner(ctx, o)
	if err != nil {
		return "", err
	}
	store, err := c.resolveStore(ctx, o)
	if err != nil {
		return "", err
	}

	receipt, err := store.Append(ctx, signer, ledger.AppendRequest{
		Verb:        payload.Verb,
		PayloadHash: hash,
		RefID:       payload.RefID,
	})
	if err != nil {
		return "", classify("append", err)
	}

	txID, err = TransactionID(receipt)
	if err != nil {
		return "", err
	}

	c.log.Infow("audit log submitted",
		"tx", txID,
		"verb", payload.Verb,
		"ref_id", payload.RefID,
	)
	return txID, nil
}

// Fetch returns entries in ascending index order. With WithLimit(k), k > 0,
// only the k most recent entries are returned; without a limit (or k == 0)
// the whole ledger is returned.
func (c *Client) Fetch(ctx context.Context, opts ...CallOption) (records []Record, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordFetch(err, time.Since(start).Seconds(), len(records))
		c.countError(err)
	}()

	o := c.callOptions(opts)
	if o.limit < 0 {
		return nil, &ledger.ValidationError{
			Field:      "limit",
			Constraint: ledger.ConstraintRange,
			Msg:        fmt.Sprintf("must not be negative, got %d", o.limit),
		}
	}

	store, err := c.resolveStore(ctx, o)
	if err != nil {
		return nil, err
	}

	total, err := store.TotalCount(ctx)
	if err != nil {
		return nil, classify("total count", err)
	}
	if total == 0 {
		return []Record{}, nil
	}

	first := uint64(0)
	if o.limit > 0 && uint64(o.limit) < total {
		first = total - uint64(o.limit)
	}

	records = make([]Record, total-first)
	read := func(ctx context.Context, index uint64) error {
		entry, err := store.GetEntry(ctx, index)
		if err != nil {
			return classify(fmt.Sprintf("get entry %d", index), err)
		}
		records[index-first] = NewRecord(entry)
		return nil
	}

	concurrency := o.readConcurrency
	if concurrency <= 1 {
		for i := first; i < total; i++ {
			if err := read(ctx, i); err != nil {
				return nil, err
			}
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := first; i < total; i++ {
		g.Go(func() error {
			return read(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadPendingEntries is reserved for ingesting queued submissions from an
// external source. No source is supported yet, so it always fails.
func (c *Client) LoadPendingEntries(_ context.Context, source string) (iter.Seq[LogPayload], error) {
	return nil, fmt.Errorf("%w: loading pending entries from %q", ledger.ErrNotImplemented, source)
}

// TransactionID extracts the transaction hash from a receipt, preferring
// TxnHash over TxHash, and normalizes it to 0x-prefixed lowercase hex.
func TransactionID(receipt *ledger.Receipt) (string, error) {
	if receipt == nil {
		return "", fmt.Errorf("%w: store returned no receipt", ledger.ErrTransport)
	}
	raw := receipt.TxnHash
	if raw == "" {
		raw = receipt.TxHash
	}
	if raw == "" {
		return "", fmt.Errorf("%w: receipt has neither txn_hash nor tx_hash", ledger.ErrTransport)
	}
	id, err := utils.NormalizeHex(raw)
	if err != nil {
		return "", fmt.Errorf("%w: receipt transaction hash: %v", ledger.ErrTransport, err)
	}
	return id, nil
}

func (c *Client) resolveSigner(ctx context.Context, o callOptions) (ledger.Signer, error) {
	if o.signer != nil {
		return o.signer, nil
	}
	alias := o.accountAlias
	if alias == "" {
		alias = c.cfg.AccountAlias
	}
	if alias == "" {
		return nil, fmt.Errorf("%w: no signing identity (set AUDITLOG_ACCOUNT_ALIAS or pass an account alias)", ledger.ErrConfiguration)
	}
	if c.identities == nil {
		return nil, fmt.Errorf("%w: no identity resolver for account alias %q", ledger.ErrConfiguration, alias)
	}
	signer, err := c.identities.ResolveIdentity(ctx, alias)
	if err != nil {
		return nil, classify("resolve identity", err)
	}
	return signer, nil
}

func (c *Client) resolveStore(ctx context.Context, o callOptions) (ledger.Store, error) {
	if o.store != nil {
		return o.store, nil
	}
	target := o.storeAddress
	if target == "" {
		target = c.cfg.StoreAddress
	}
	if target == "" {
		return nil, fmt.Errorf("%w: no store target (set AUDIT_LOG_ADDRESS or pass a store address)", ledger.ErrConfiguration)
	}
	if c.stores == nil {
		return nil, fmt.Errorf("%w: no store resolver for target %q", ledger.ErrConfiguration, target)
	}
	store, err := c.stores.ResolveStore(ctx, target)
	if err != nil {
		return nil, classify("resolve store", err)
	}
	return store, nil
}

func (c *Client) countError(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, ledger.ErrValidation):
		c.metrics.IncError(metrics.ErrTypeValidation)
	case errors.Is(err, ledger.ErrConfiguration):
		c.metrics.IncError(metrics.ErrTypeConfiguration)
	case errors.Is(err, ledger.ErrOutOfRange):
		c.metrics.IncError(metrics.ErrTypeOutOfRange)
	default:
		c.metrics.IncError(metrics.ErrTypeTransport)
	}
}

// classify keeps errors that already carry a class and files everything
// else under ErrTransport.
func classify(op string, err error) error {
	for _, class := range []error{
		ledger.ErrValidation,
		ledger.ErrConfiguration,
		ledger.ErrTransport,
		ledger.ErrOutOfRange,
		ledger.ErrNotImplemented,
	} {
		if errors.Is(err, class) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ledger.ErrTransport, op, err)
}
