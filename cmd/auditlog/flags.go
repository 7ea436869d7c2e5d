package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/auditlog/pkg/deploy"
	"github.com/ava-labs/auditlog/pkg/monitor"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"AUDITLOG_VERBOSE"},
		},
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Env file loaded before command flags are read",
			EnvVars: []string{"AUDITLOG_ENV_FILE"},
			Value:   defaultEnvFile,
		},
	}
}

func ledgerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "Ledger backend: evm, clickhouse or memory",
			EnvVars: []string{"AUDITLOG_BACKEND"},
			Value:   backendEVM,
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Aliases: []string{"r"},
			Usage:   "EVM JSON-RPC endpoint (evm backend)",
			EnvVars: []string{"RPC_URL"},
		},
		&cli.Uint64Flag{
			Name:    "chain-id",
			Aliases: []string{"C"},
			Usage:   "Expected EVM chain ID; 0 adopts the endpoint's",
			EnvVars: []string{"CHAIN_ID"},
		},
		&cli.StringFlag{
			Name:    "keystore-dir",
			Usage:   "Directory holding <alias>.json keystore files",
			EnvVars: []string{"AUDITLOG_KEYSTORE_DIR"},
			Value:   "keystore",
		},
		&cli.StringFlag{
			Name:    "keystore-password",
			Usage:   "Passphrase for keystore files",
			EnvVars: []string{"AUDITLOG_KEYSTORE_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Hex private key used for the account alias instead of the keystore",
			EnvVars: []string{"AUDITLOG_PRIVATE_KEY"},
		},
		&cli.StringFlag{
			Name:    "account-alias",
			Aliases: []string{"a"},
			Usage:   "Signing account alias",
			EnvVars: []string{"AUDITLOG_ACCOUNT_ALIAS"},
		},
		&cli.StringFlag{
			Name:    "contract-address",
			Aliases: []string{"c"},
			Usage:   "Ledger target: contract address (evm), table name (clickhouse) or any key (memory)",
			EnvVars: []string{deploy.AddressEnvKey},
		},
		&cli.IntFlag{
			Name:    "read-concurrency",
			Usage:   "Maximum concurrent entry reads during fetch",
			EnvVars: []string{"AUDITLOG_READ_CONCURRENCY"},
			Value:   4,
		},
	}
}

func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Return only the N most recent entries; 0 returns all",
			Value:   100,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the JSON array to this file instead of stdout",
		},
	}
}

func metricsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for the metrics server",
			EnvVars: []string{"METRICS_HOST"},
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Usage:   "Port for the metrics server",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Deployment environment label for metrics",
			EnvVars: []string{"ENVIRONMENT"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Cloud region label for metrics",
			EnvVars: []string{"REGION"},
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Usage:   "Cloud provider label for metrics",
			EnvVars: []string{"CLOUD_PROVIDER"},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "listen-addr",
			Aliases: []string{"l"},
			Usage:   "Address for the HTTP API",
			EnvVars: []string{"AUDITLOG_LISTEN_ADDR"},
			Value:   ":8080",
		},
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "Interval between ledger count polls",
			EnvVars: []string{"AUDITLOG_POLL_INTERVAL"},
			Value:   monitor.DefaultConfig().Interval,
		},
		&cli.DurationFlag{
			Name:    "shutdown-timeout",
			Usage:   "Grace period for in-flight requests on shutdown",
			EnvVars: []string{"AUDITLOG_SHUTDOWN_TIMEOUT"},
			Value:   5 * time.Second,
		},
	}
}

func deployFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "bytecode-file",
			Usage:    "File with the hex creation bytecode of AuditLog (solc --bin output)",
			EnvVars:  []string{"AUDITLOG_BYTECODE_FILE"},
			Required: true,
		},
		&cli.StringFlag{
			Name:  "save-env",
			Usage: "Env file to update with " + deploy.AddressEnvKey + "; defaults to $" + deploy.EnvPathEnvKey + " or ./.env if present",
		},
		&cli.BoolFlag{
			Name:  "no-record",
			Usage: "Skip writing the deployment record",
		},
		&cli.StringFlag{
			Name:    "record-dir",
			Usage:   "Directory for deployment records",
			EnvVars: []string{"AUDITLOG_RECORD_DIR"},
			Value:   deploy.DefaultRecordDir,
		},
		&cli.StringFlag{
			Name:    "network",
			Usage:   "Network name used for the deployment record; defaults to evm-<chain id>",
			EnvVars: []string{"AUDITLOG_NETWORK"},
		},
	}
}
