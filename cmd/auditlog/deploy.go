package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/auditlog/pkg/deploy"
	"github.com/ava-labs/auditlog/pkg/ledger"
)

func deployContract(c *cli.Context) error {
	cfg, sugar, flush, err := setup(c)
	if err != nil {
		return err
	}
	defer flush()

	if cfg.Backend != backendEVM {
		return fmt.Errorf("%w: deploy requires the %s backend, got %q", ledger.ErrConfiguration, backendEVM, cfg.Backend)
	}
	bytecode, err := deploy.ReadBytecode(c.String("bytecode-file"))
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg, sugar, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	alias := cfg.Client.AccountAlias
	if alias == "" {
		return fmt.Errorf("%w: no account alias provided; pass --account-alias or set AUDITLOG_ACCOUNT_ALIAS", ledger.ErrConfiguration)
	}
	signer, err := b.identities.ResolveIdentity(ctx, alias)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Deploying AuditLog with account %q (%s)...\n", alias, signer.Address().Hex())
	if balance, err := deploy.Balance(ctx, b.eth, signer.Address()); err != nil {
		sugar.Warnw("could not read deployer balance", "error", err)
	} else {
		fmt.Fprintf(out, "Account balance: %s\n", balance)
	}

	res, err := deploy.Deploy(ctx, b.eth, b.chainID, signer, bytecode, sugar)
	if err != nil {
		return err
	}
	address := res.Address.Hex()
	fmt.Fprintf(out, "AuditLog deployed to %s\n", address)
	fmt.Fprintf(out, "Set %s=%s for client/API usage.\n", deploy.AddressEnvKey, address)

	if envPath := deploy.ResolveEnvPath(c.String("save-env")); envPath != "" {
		if err := deploy.UpsertEnv(envPath, deploy.AddressEnvKey, address); err != nil {
			return fmt.Errorf("failed to update %s: %w", envPath, err)
		}
		fmt.Fprintf(out, "Updated %s with %s=%s\n", envPath, deploy.AddressEnvKey, address)
	}

	if c.Bool("no-record") {
		return nil
	}
	network := c.String("network")
	if network == "" {
		network = fmt.Sprintf("evm-%s", b.chainID)
	}
	path, err := deploy.WriteRecord(c.String("record-dir"), deploy.NewRecord(network, address, alias))
	if err != nil {
		return fmt.Errorf("failed to write deployment record: %w", err)
	}
	fmt.Fprintf(out, "Wrote deployment record to %s\n", path)
	return nil
}

