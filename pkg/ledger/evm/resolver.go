package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/ethclient"

	"github.com/ava-labs/auditlog/pkg/ledger"
)

// Resolver binds Stores to contract addresses on one chain.
type Resolver struct {
	backend Backend
	chainID *big.Int
	opts    []Option
}

// NewResolver creates a Resolver whose stores share backend and opts.
func NewResolver(backend Backend, chainID *big.Int, opts ...Option) *Resolver {
	return &Resolver{backend: backend, chainID: chainID, opts: opts}
}

// ResolveStore binds the AuditLog contract at address.
func (r *Resolver) ResolveStore(_ context.Context, address string) (ledger.Store, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: invalid contract address %q", ledger.ErrConfiguration, address)
	}
	return NewStore(common.HexToAddress(address), r.backend, r.chainID, r.opts...)
}

// Dial connects to an EVM JSON-RPC endpoint and checks that it serves the
// expected chain. A zero expectedChainID skips the check and adopts the
// endpoint's chain ID.
func Dial(ctx context.Context, url string, expectedChainID uint64) (*ethclient.Client, *big.Int, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("%w: rpc url is required", ledger.ErrConfiguration)
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", ledger.ErrTransport, url, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("%w: fetch chain id: %v", ledger.ErrTransport, err)
	}
	if expectedChainID != 0 && chainID.Uint64() != expectedChainID {
		client.Close()
		return nil, nil, fmt.Errorf("%w: rpc serves chain %s, expected %d", ledger.ErrConfiguration, chainID, expectedChainID)
	}
	return client, chainID, nil
}
