package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/ethclient"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/client"
	"github.com/ava-labs/auditlog/pkg/clickhouse"
	"github.com/ava-labs/auditlog/pkg/data/clickhouse/ledgerrepo"
	"github.com/ava-labs/auditlog/pkg/identity"
	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/ledger/evm"
	"github.com/ava-labs/auditlog/pkg/ledger/memory"
	"github.com/ava-labs/auditlog/pkg/metrics"
)

// defaultAlias names the signer built from --private-key when no alias is set.
const defaultAlias = "default"

// backend bundles what the commands need from the configured ledger.
type backend struct {
	identities client.IdentityResolver
	stores     client.StoreResolver

	// Set only for the evm backend.
	eth     *ethclient.Client
	chainID *big.Int

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects to the ledger selected by cfg.Backend. m may be nil.
func openBackend(ctx context.Context, cfg *Config, sugar *zap.SugaredLogger, m *metrics.Metrics) (*backend, error) {
	identities, err := buildIdentities(cfg)
	if err != nil {
		return nil, err
	}
	b := &backend{identities: identities}

	switch cfg.Backend {
	case backendEVM:
		eth, chainID, err := evm.Dial(ctx, cfg.RPCURL, cfg.ChainID)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, eth.Close)
		b.eth = eth
		b.chainID = chainID
		b.stores = evm.NewResolver(eth, chainID, evm.WithMetrics(m), evm.WithLogger(sugar))
		sugar.Infow("connected to chain", "rpcURL", cfg.RPCURL, "chainID", chainID)

	case backendClickHouse:
		chClient, err := clickhouse.New(cfg.ClickHouse, sugar)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to create ClickHouse client: %v", ledger.ErrTransport, err)
		}
		b.closers = append(b.closers, func() {
			if err := chClient.Close(); err != nil {
				sugar.Warnw("clickhouse close error", "error", err)
			}
		})
		resolver, err := ledgerrepo.NewResolver(chClient, cfg.ClickHouse.Database, ledgerrepo.WithLogger(sugar))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.stores = resolver
		sugar.Infow("ClickHouse client created successfully", "hosts", cfg.ClickHouse.Hosts, "database", cfg.ClickHouse.Database)

	case backendMemory:
		b.stores = memory.NewRegistry()
		sugar.Warn("using in-memory ledger; entries are lost on exit")
	}
	return b, nil
}

// buildIdentities prefers an explicit private key over the keystore. The key
// is registered under the configured alias, which is defaulted if unset.
func buildIdentities(cfg *Config) (client.IdentityResolver, error) {
	if cfg.PrivateKey == "" {
		return identity.NewKeystoreResolver(cfg.KeystoreDir, cfg.KeystorePassword), nil
	}
	signer, err := identity.NewKeySignerFromHex(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: --private-key: %v", ledger.ErrConfiguration, err)
	}
	if cfg.Client.AccountAlias == "" {
		cfg.Client.AccountAlias = defaultAlias
	}
	r := identity.NewStaticResolver()
	r.Add(cfg.Client.AccountAlias, signer)
	return r, nil
}

func newClient(cfg *Config, b *backend, sugar *zap.SugaredLogger, m *metrics.Metrics) *client.Client {
	return client.New(cfg.Client, b.identities, b.stores, client.WithLogger(sugar), client.WithMetrics(m))
}
