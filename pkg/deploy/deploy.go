// Package deploy publishes the AuditLog contract and records where it went.
package deploy

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ava-labs/libevm/accounts/abi/bind"
	"github.com/ava-labs/libevm/common"
	"github.com/ava-labs/libevm/common/hexutil"
	"go.uber.org/zap"

	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/ledger/evm"
)

// Result describes a mined contract deployment.
type Result struct {
	Address  common.Address
	TxHash   common.Hash
	Deployer common.Address
}

// Deploy sends the AuditLog creation transaction signed by signer and waits
// until code is present at the new address.
func Deploy(
	ctx context.Context,
	backend evm.Backend,
	chainID *big.Int,
	signer ledger.Signer,
	bytecode []byte,
	log *zap.SugaredLogger,
) (*Result, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: no deployer identity", ledger.ErrConfiguration)
	}
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%w: empty contract bytecode", ledger.ErrConfiguration)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	parsed, err := evm.ParseABI()
	if err != nil {
		return nil, err
	}

	opts := evm.TransactOpts(ctx, signer, chainID)
	_, tx, _, err := bind.DeployContract(opts, parsed, bytecode, backend)
	if err != nil {
		return nil, fmt.Errorf("%w: send deployment: %v", ledger.ErrTransport, err)
	}
	log.Infow("deployment sent", "tx", tx.Hash().Hex(), "deployer", signer.Address().Hex())

	addr, err := bind.WaitDeployed(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for deployment %s: %v", ledger.ErrTransport, tx.Hash().Hex(), err)
	}

	return &Result{Address: addr, TxHash: tx.Hash(), Deployer: signer.Address()}, nil
}

// ReadBytecode loads hex-encoded creation bytecode, as emitted by solc --bin,
// from path.
func ReadBytecode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read bytecode: %v", ledger.ErrConfiguration, err)
	}
	text := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(text, "0x") {
		text = "0x" + text
	}
	code, err := hexutil.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: decode bytecode in %s: %v", ledger.ErrConfiguration, path, err)
	}
	return code, nil
}

// BalanceReader reads account balances. *ethclient.Client satisfies it.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// FormatBalance renders a wei amount in whole native units with four decimals.
func FormatBalance(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}
	units := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return units.Text('f', 4)
}

// Balance returns the latest balance of account formatted with FormatBalance.
func Balance(ctx context.Context, reader BalanceReader, account common.Address) (string, error) {
	wei, err := reader.BalanceAt(ctx, account, nil)
	if err != nil {
		return "", fmt.Errorf("%w: balance of %s: %v", ledger.ErrTransport, account.Hex(), err)
	}
	return FormatBalance(wei), nil
}
