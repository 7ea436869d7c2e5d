package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ava-labs/auditlog/pkg/client"
	"github.com/ava-labs/auditlog/pkg/clickhouse"
	"github.com/ava-labs/auditlog/pkg/ledger"
	"github.com/ava-labs/auditlog/pkg/monitor"
)

const (
	backendEVM        = "evm"
	backendClickHouse = "clickhouse"
	backendMemory     = "memory"
)

// Config holds all configuration for the auditlog commands
type Config struct {
	// Application settings
	Verbose bool

	// Ledger settings
	Backend          string
	RPCURL           string
	ChainID          uint64
	KeystoreDir      string
	KeystorePassword string
	PrivateKey       string
	Client           client.Config

	// ClickHouse settings, loaded from CLICKHOUSE_* when the backend needs them
	ClickHouse clickhouse.Config

	// Serve settings
	ListenAddr      string
	PollInterval    time.Duration
	ShutdownTimeout time.Duration

	// Metrics settings
	MetricsHost   string
	MetricsPort   int
	Environment   string
	Region        string
	CloudProvider string
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// MonitorConfig returns the count monitor settings.
func (c *Config) MonitorConfig() monitor.Config {
	cfg := monitor.DefaultConfig()
	if c.PollInterval > 0 {
		cfg.Interval = c.PollInterval
	}
	return cfg
}

// buildConfig builds a Config from CLI context flags. Flags a command does not
// define read as zero values.
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := &Config{
		Verbose:          c.Bool("verbose"),
		Backend:          c.String("backend"),
		RPCURL:           c.String("rpc-url"),
		ChainID:          c.Uint64("chain-id"),
		KeystoreDir:      c.String("keystore-dir"),
		KeystorePassword: c.String("keystore-password"),
		PrivateKey:       c.String("private-key"),
		Client: client.Config{
			StoreAddress:    c.String("contract-address"),
			AccountAlias:    c.String("account-alias"),
			ReadConcurrency: c.Int("read-concurrency"),
		},
		ListenAddr:      c.String("listen-addr"),
		PollInterval:    c.Duration("poll-interval"),
		ShutdownTimeout: c.Duration("shutdown-timeout"),
		MetricsHost:     c.String("metrics-host"),
		MetricsPort:     c.Int("metrics-port"),
		Environment:     c.String("environment"),
		Region:          c.String("region"),
		CloudProvider:   c.String("cloud-provider"),
	}

	switch cfg.Backend {
	case backendEVM:
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("%w: --rpc-url is required for the %s backend", ledger.ErrConfiguration, backendEVM)
		}
	case backendClickHouse:
		chCfg, err := clickhouse.Load()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to build ClickHouse config: %v", ledger.ErrConfiguration, err)
		}
		cfg.ClickHouse = chCfg
	case backendMemory:
	default:
		return nil, fmt.Errorf("%w: unknown backend %q (want %s, %s or %s)",
			ledger.ErrConfiguration, cfg.Backend, backendEVM, backendClickHouse, backendMemory)
	}

	if cfg.Client.ReadConcurrency < 0 {
		return nil, fmt.Errorf("%w: --read-concurrency must not be negative", ledger.ErrConfiguration)
	}
	return cfg, nil
}
